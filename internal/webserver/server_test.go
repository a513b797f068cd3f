package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchmena/catalogd/internal/app/apptest"
)

type pingQuery struct {
	Name string `query:"name" validate:"required,max=5"`
}

func setup(t *testing.T) {
	t.Helper()
	a := apptest.New(t, nil, nil)
	Init(a)

	AdminGET("/ping", func(c echo.Context) error {
		require.NotNil(t, GetAppContext(c))
		return c.JSON(http.StatusOK, map[string]string{"ip": c.RealIP()})
	})
	ApiGET("/ping", func(c echo.Context) error {
		var q pingQuery
		if err := c.Bind(&q); err != nil {
			return err
		}
		if err := c.Validate(&q); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid name")
		}
		return c.String(http.StatusOK, q.Name)
	})
	AdminPOST("/echo", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	RootGET("/boom", func(c echo.Context) error {
		panic("boom")
	})
}

func serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Root().ServeHTTP(rec, req)
	return rec
}

func TestAdminGroup_SecurityHeadersAndDirectIP(t *testing.T) {
	setup(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.RemoteAddr = "192.0.2.7:5000"
	req.Header.Set("X-Forwarded-For", "10.9.9.9")
	rec := serve(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ip":"192.0.2.7"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, contentSecurityPolicy, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	_, err := uuid.Parse(rec.Header().Get(echo.HeaderXRequestID))
	assert.NoError(t, err)
}

func TestApiGroup_Validator(t *testing.T) {
	setup(t)

	rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/ping?name=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Frame-Options"))

	rec = serve(httptest.NewRequest(http.MethodGet, "/api/v1/ping?name=toolong", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"INVALID_REQUEST","message":"invalid name"}`, rec.Body.String())
}

func TestErrorEnvelope(t *testing.T) {
	setup(t)

	rec := serve(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"NOT_FOUND"`)

	rec = serve(httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	req := httptest.NewRequest(http.MethodPost, "/admin/echo", strings.NewReader(strings.Repeat("x", 3<<20)))
	req.Header.Set("Content-Type", "application/octet-stream")
	rec = serve(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"REQUEST_TOO_LARGE"`)
}
