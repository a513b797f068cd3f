// Package webserver owns the echo instance. Route packages register their
// handlers through the Api* and Admin* helpers after Init.
package webserver

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/app"
)

const (
	// AppContextKey is the echo context key holding the app.AppContext.
	AppContextKey = "appCtx"

	bodyLimit           = "2M"
	shutdownTimeout     = 10 * time.Second
	sessionCookieMaxAge = 86400
)

type AdminServer struct {
	root   *echo.Echo
	api    *echo.Group
	admin  *echo.Group
	appCtx app.AppContext
}

var server *AdminServer

// Init builds the echo instance and its middleware chain.
func Init(appCtx app.AppContext) {
	server = NewAdminServer(appCtx)
}

// NewAdminServer creates the echo instance, the /api/v1 group and the /admin group.
func NewAdminServer(appCtx app.AppContext) *AdminServer {
	cfg := appCtx.Config()
	s := &AdminServer{appCtx: appCtx}
	s.root = echo.New()
	s.root.HideBanner = true
	s.root.HidePort = true
	s.root.Debug = cfg.System.Debug
	s.root.Validator = &defaultValidator{validator: validator.New()}
	s.root.HTTPErrorHandler = httpErrorHandler
	// login rate limiting keys on the peer address; forwarded headers are not trusted
	s.root.IPExtractor = echo.ExtractIPDirect()

	s.root.Use(requestID())
	s.root.Use(requestLogger())
	s.root.Use(middleware.Recover())
	s.root.Use(middleware.BodyLimit(bodyLimit))
	s.root.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	s.api = s.root.Group("/api/v1")

	s.admin = s.root.Group("/admin")
	s.admin.Use(SecurityHeaders())
	s.admin.Use(session.Middleware(newSessionStore(appCtx)))
	return s
}

func newSessionStore(appCtx app.AppContext) sessions.Store {
	cfg := appCtx.Config()
	secret := []byte(cfg.Web.Secret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		zap.S().Warnf("web.secret is empty, generated an ephemeral session key %s...", hex.EncodeToString(secret[:4]))
	}
	store := sessions.NewFilesystemStore(cfg.GetSessionDir(), secret)
	store.MaxLength(0)
	// FilesystemStore deletes sessions saved with MaxAge <= 0; idle expiry is the guard's job
	store.MaxAge(sessionCookieMaxAge)
	store.Options.Path = "/admin"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Web.SecureCookie
	store.Options.SameSite = http.SameSiteStrictMode
	return store
}

// Root returns the echo instance of the server created by Init.
func Root() *echo.Echo {
	return server.root
}

// GetAppContext returns the application context injected by the server middleware.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(AppContextKey).(app.AppContext)
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func RootGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.root.GET(path, h, m...)
}

func AdminGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.GET(path, h, m...)
}

func AdminPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.admin.POST(path, h, m...)
}

// Listen serves until SIGINT or SIGTERM, then shuts down gracefully.
func Listen() error {
	cfg := server.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("catalogd web server listening on %s", addr)
		if err := server.root.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zap.S().Infof("received %s, shutting down web server", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.root.Shutdown(ctx)
}
