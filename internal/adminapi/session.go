package adminapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/auth"
	"github.com/launchmena/catalogd/internal/domain"
)

const (
	sessionName = "catalogd_admin"

	keyLoggedIn  = "admin_logged_in"
	keyUsername  = "admin_username"
	keyLoginTime = "login_time"
	keyCSRFToken = "csrf_token"

	csrfHeader = "X-CSRF-Token"
	csrfField  = "csrf_token"
)

// sessionHandler returns the response data; withSession writes it after the
// session has been saved.
type sessionHandler func(c echo.Context, s *auth.Session) (interface{}, error)

// withSession loads the admin session, runs h, saves the session and then
// writes the envelope.
func withSession(h sessionHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, s, err := loadSession(c)
		if err != nil {
			return failErr(c, err)
		}
		wasLoggedIn := s.LoggedIn

		data, herr := h(c, s)

		// a fresh login gets a fresh session id
		if !wasLoggedIn && s.LoggedIn {
			raw.ID = ""
		}
		if err := saveSession(c, raw, s); err != nil {
			zap.L().Error("save admin session", zap.Error(err))
			if herr == nil {
				herr = &domain.StorageError{Op: "save session", Err: err}
			}
		}
		if herr != nil {
			return failErr(c, herr)
		}
		return ok(c, data)
	}
}

// requireLogin rejects sessions that are not logged in or have been idle too long.
func requireLogin(h sessionHandler) sessionHandler {
	return func(c echo.Context, s *auth.Session) (interface{}, error) {
		if err := GetAppContext(c).Guard().EnsureAuthenticated(s); err != nil {
			return nil, err
		}
		return h(c, s)
	}
}

// requireCSRF rejects the request unless it carries the session's CSRF token,
// either in the X-CSRF-Token header or the csrf_token form field.
func requireCSRF(h sessionHandler) sessionHandler {
	return func(c echo.Context, s *auth.Session) (interface{}, error) {
		if !GetAppContext(c).Guard().VerifyCSRFToken(s, submittedCSRFToken(c)) {
			zap.L().Warn("csrf token mismatch", zap.String("uri", c.Request().RequestURI), zap.String("ip", c.RealIP()))
			return nil, domain.ErrInvalidToken
		}
		return h(c, s)
	}
}

func submittedCSRFToken(c echo.Context) string {
	if v := strings.TrimSpace(c.Request().Header.Get(csrfHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(c.FormValue(csrfField))
}

func loadSession(c echo.Context) (*sessions.Session, *auth.Session, error) {
	raw, err := session.Get(sessionName, c)
	if err != nil {
		// stale or tampered cookie; gorilla still hands back a new session
		zap.L().Debug("discarding unreadable admin session", zap.Error(err))
		if raw == nil {
			return nil, nil, &domain.StorageError{Op: "load session", Err: err}
		}
	}
	s := &auth.Session{}
	s.LoggedIn, _ = raw.Values[keyLoggedIn].(bool)
	s.Username, _ = raw.Values[keyUsername].(string)
	s.CSRFToken, _ = raw.Values[keyCSRFToken].(string)
	if ts, ok := raw.Values[keyLoginTime].(int64); ok && ts > 0 {
		s.LoginTime = time.Unix(ts, 0)
	}
	return raw, s, nil
}

func saveSession(c echo.Context, raw *sessions.Session, s *auth.Session) error {
	if s.Destroyed() {
		opts := *raw.Options
		opts.MaxAge = -1
		raw.Options = &opts
		raw.Values = map[interface{}]interface{}{}
		err := raw.Save(c.Request(), c.Response())
		if os.IsNotExist(err) {
			// never persisted, only the cookie needs expiring
			http.SetCookie(c.Response(), sessions.NewCookie(sessionName, "", &opts))
			return nil
		}
		return err
	}
	if raw.IsNew && !s.LoggedIn && s.CSRFToken == "" {
		return nil
	}
	raw.Values[keyLoggedIn] = s.LoggedIn
	raw.Values[keyUsername] = s.Username
	raw.Values[keyCSRFToken] = s.CSRFToken
	if s.LoginTime.IsZero() {
		delete(raw.Values, keyLoginTime)
	} else {
		raw.Values[keyLoginTime] = s.LoginTime.Unix()
	}
	return raw.Save(c.Request(), c.Response())
}
