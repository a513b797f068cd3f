package adminapi

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchmena/catalogd/internal/domain"
)

func TestRecentActivity(t *testing.T) {
	newTestServer(t)
	cl := newClient(t, "192.0.2.20")
	csrf := cl.login()
	rec, _ := cl.postForm("/admin/products/create", productForm(csrf, "p1", "P1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := cl.get("/admin/activity?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []domain.ActivityEntry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionProductCreated, entries[0].Action)
	assert.Equal(t, domain.ActionLogin, entries[1].Action)
	assert.Equal(t, "192.0.2.20", entries[1].IP)

	for _, limit := range []string{"0", "501", "abc"} {
		rec, resp = cl.get("/admin/activity?limit=" + limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error, limit)
	}
}

func TestClearRateLimits(t *testing.T) {
	a, _ := newTestServer(t)

	attacker := newClient(t, "192.0.2.99")
	token := attacker.csrfToken()
	for i := 0; i < 5; i++ {
		attacker.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"x"}, "csrf_token": {token}})
	}
	rec, _ := attacker.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"x"}, "csrf_token": {token}})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	admin := newClient(t, "192.0.2.21")
	csrf := admin.login()

	rec, resp := admin.postForm("/admin/rate-limits/clear", url.Values{"csrf_token": {"wrong"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", resp.Error)

	rec, resp = admin.postForm("/admin/rate-limits/clear", url.Values{"csrf_token": {csrf}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":2}`, string(resp.Data))

	rec, _ = attacker.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"x"}, "csrf_token": {token}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	entries, err := a.Activity().Recent(2)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionRateLimitCleared, entries[1].Action)
	assert.Equal(t, "Removed 2 records", entries[1].Details)
}

func TestConsistencyReport(t *testing.T) {
	a, _ := newTestServer(t)
	cl := newClient(t, "192.0.2.22")
	csrf := cl.login()
	rec, _ := cl.postForm("/admin/products/create", productForm(csrf, "p1", "P1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := cl.get("/admin/consistency")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.True(t, out.OK)

	require.NoError(t, os.RemoveAll(filepath.Join(a.Store().Root(), "products", "p1")))
	require.NoError(t, os.MkdirAll(filepath.Join(a.Store().Root(), "products", "stray"), 0o755))

	rec, resp = cl.get("/admin/consistency")
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		OK     bool `json:"ok"`
		Report struct {
			MissingData []domain.OrphanedRecordError `json:"missingData"`
			Unlisted    []domain.OrphanedRecordError `json:"unlisted"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.False(t, report.OK)
	require.Len(t, report.Report.MissingData, 1)
	assert.Equal(t, "p1", report.Report.MissingData[0].ID)
	require.Len(t, report.Report.Unlisted, 1)
	assert.Equal(t, "stray", report.Report.Unlisted[0].ID)
}
