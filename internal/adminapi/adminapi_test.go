package adminapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/launchmena/catalogd/internal/app"
	"github.com/launchmena/catalogd/internal/app/apptest"
	"github.com/launchmena/catalogd/internal/webserver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type testResponse struct {
	Success bool                   `json:"success"`
	Data    jsoniter.RawMessage    `json:"data"`
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	t       *testing.T
	ip      string
	cookies map[string]*http.Cookie
}

func newTestServer(t *testing.T) (*app.Application, *apptest.Clock) {
	t.Helper()
	clock := apptest.NewClock()
	a := apptest.New(t, nil, clock)
	webserver.Init(a)
	Init()
	return a, clock
}

func newClient(t *testing.T, ip string) *client {
	return &client{t: t, ip: ip, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) (*httptest.ResponseRecorder, testResponse) {
	cl.t.Helper()
	req.RemoteAddr = cl.ip + ":40000"
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	webserver.Root().ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(cl.cookies, ck.Name)
		} else {
			cl.cookies[ck.Name] = ck
		}
	}
	var resp testResponse
	require.NoError(cl.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (cl *client) get(target string) (*httptest.ResponseRecorder, testResponse) {
	return cl.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (cl *client) postForm(target string, form url.Values) (*httptest.ResponseRecorder, testResponse) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) csrfToken() string {
	cl.t.Helper()
	rec, resp := cl.get("/admin/csrf")
	require.Equal(cl.t, http.StatusOK, rec.Code)
	var data struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(cl.t, json.Unmarshal(resp.Data, &data))
	require.Len(cl.t, data.CSRFToken, 64)
	return data.CSRFToken
}

// login signs in and returns the post-login CSRF token.
func (cl *client) login() string {
	cl.t.Helper()
	rec, resp := cl.postForm("/admin/login", url.Values{
		"username":   {apptest.AdminUsername},
		"password":   {apptest.AdminPassword},
		"csrf_token": {cl.csrfToken()},
	})
	require.Equal(cl.t, http.StatusOK, rec.Code, rec.Body.String())
	var info sessionInfo
	require.NoError(cl.t, json.Unmarshal(resp.Data, &info))
	return info.CSRFToken
}

func productForm(csrf, id, name string) url.Values {
	return url.Values{
		"csrf_token":     {csrf},
		"product_id":     {id},
		"name":           {name},
		"categoryId":     {"diagnostic-tools"},
		"category":       {"Diagnostic Tools"},
		"price":          {"1299.00"},
		"features":       {"Bidirectional control\nECU coding\n\n"},
		"specifications": {"Android 10"},
		"translations":   {`{"ar":{"name":"لانش"}}`},
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func manifestPath(a *app.Application) string {
	return filepath.Join(a.Store().Root(), "products", "manifest.json")
}
