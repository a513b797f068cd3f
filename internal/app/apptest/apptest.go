// Package apptest builds a fully initialized Application rooted in a test's
// temporary directory.
package apptest

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/launchmena/catalogd/config"
	"github.com/launchmena/catalogd/internal/app"
	"github.com/launchmena/catalogd/internal/auth"
)

const (
	AdminUsername = "admin"
	AdminPassword = "Xk9#mP2$vL5@nQ8w"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Config returns a configuration with every path under a temp dir and a
// known admin password.
func Config(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	hash, err := auth.NewPasswordHasher(bcrypt.MinCost).Hash(AdminPassword)
	require.NoError(t, err)

	cfg := config.DefaultAppConfig()
	cfg.System.Workdir = filepath.Join(dir, "work")
	cfg.System.Location = "UTC"
	cfg.Content.Root = filepath.Join(dir, "public")
	cfg.Web.Secret = "test-session-secret"
	cfg.Admin.PasswordHash = hash
	cfg.Logger.Filename = filepath.Join(dir, "work", "logs", "catalogd.log")
	return cfg
}

// New initializes an Application for cfg (Config(t) when nil) and releases
// it when the test ends.
func New(t *testing.T, cfg *config.AppConfig, clock *Clock) *app.Application {
	t.Helper()
	if cfg == nil {
		cfg = Config(t)
	}
	var opts []app.Option
	if clock != nil {
		opts = append(opts, app.WithClock(clock.Now))
	}
	a := app.NewApplication(cfg, opts...)
	require.NoError(t, a.Init(cfg))
	t.Cleanup(a.Release)
	return a
}
