package adminapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/launchmena/catalogd/internal/auth"
	"github.com/launchmena/catalogd/internal/domain"
	"github.com/launchmena/catalogd/internal/webserver"
)

type loginPayload struct {
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
	CSRFToken string `json:"csrf_token" form:"csrf_token"`
}

type sessionInfo struct {
	Username  string    `json:"username"`
	LoginTime time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expiresAt"`
	CSRFToken string    `json:"csrfToken"`
}

func registerAuthRoutes() {
	webserver.AdminGET("/csrf", withSession(issueCSRFToken))
	webserver.AdminPOST("/login", withSession(login))
	webserver.AdminGET("/logout", withSession(logout))
	webserver.AdminPOST("/logout", withSession(logout))
	webserver.AdminGET("/session", withSession(requireLogin(currentSession)))
}

func issueCSRFToken(c echo.Context, s *auth.Session) (interface{}, error) {
	token, err := GetAppContext(c).Guard().IssueCSRFToken(s)
	if err != nil {
		return nil, err
	}
	return map[string]string{"csrfToken": token}, nil
}

func login(c echo.Context, s *auth.Session) (interface{}, error) {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return nil, domain.NewValidationError("body", "Unable to parse login form.")
	}
	token := strings.TrimSpace(payload.CSRFToken)
	if token == "" {
		token = strings.TrimSpace(c.Request().Header.Get(csrfHeader))
	}

	appCtx := GetAppContext(c)
	err := appCtx.Authenticator().Login(c.Request().Context(), s, auth.LoginRequest{
		Username:  payload.Username,
		Password:  payload.Password,
		CSRFToken: token,
		ClientIP:  c.RealIP(),
	})
	if err != nil {
		return nil, err
	}
	return newSessionInfo(s, appCtx.Guard().Timeout()), nil
}

func logout(c echo.Context, s *auth.Session) (interface{}, error) {
	GetAppContext(c).Authenticator().Logout(c.Request().Context(), s, c.RealIP())
	return map[string]bool{"loggedOut": true}, nil
}

func currentSession(c echo.Context, s *auth.Session) (interface{}, error) {
	return newSessionInfo(s, GetAppContext(c).Guard().Timeout()), nil
}

func newSessionInfo(s *auth.Session, timeout time.Duration) sessionInfo {
	return sessionInfo{
		Username:  s.Username,
		LoginTime: s.LoginTime,
		ExpiresAt: s.LoginTime.Add(timeout),
		CSRFToken: s.CSRFToken,
	}
}
