package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/launchmena/catalogd/config"
	"github.com/launchmena/catalogd/internal/activity"
	"github.com/launchmena/catalogd/internal/auth"
	"github.com/launchmena/catalogd/internal/catalog"
	"github.com/launchmena/catalogd/internal/contentstore"
	"github.com/launchmena/catalogd/internal/ratelimit"
)

const activityLogMaxSizeMB = 32

type Application struct {
	appConfig *config.AppConfig
	now       func() time.Time

	store         *contentstore.FileStore
	limiter       *ratelimit.BoltLimiter
	activityLog   *activity.Logger
	guard         *auth.Guard
	authenticator *auth.Authenticator
	catalog       *catalog.Service
	sched         *cron.Cron
}

// Ensure Application implements all interfaces
var (
	_ ConfigProvider    = (*Application)(nil)
	_ StoreProvider     = (*Application)(nil)
	_ LimiterProvider   = (*Application)(nil)
	_ ActivityProvider  = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ AuthProvider      = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

// Option configures an Application before Init.
type Option func(*Application)

// WithClock replaces time.Now for session expiry and rate limit windows (used in tests).
func WithClock(now func() time.Time) Option {
	return func(a *Application) { a.now = now }
}

func NewApplication(appConfig *config.AppConfig, opts ...Option) *Application {
	a := &Application{appConfig: appConfig, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Store() *contentstore.FileStore {
	return a.store
}

func (a *Application) Limiter() ratelimit.Limiter {
	return a.limiter
}

func (a *Application) Activity() *activity.Logger {
	return a.activityLog
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalog
}

func (a *Application) Guard() *auth.Guard {
	return a.guard
}

func (a *Application) Authenticator() *auth.Authenticator {
	return a.authenticator
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Init sets up logging and opens every component. The scheduler is
// created but not started.
func (a *Application) Init(cfg *config.AppConfig) error {
	a.appConfig = cfg

	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	if err := cfg.InitDirs(); err != nil {
		return errors.Wrap(err, "create work dirs")
	}

	zap.ReplaceGlobals(newLogger(cfg.Logger))

	a.store, err = contentstore.New(cfg.Content.Root)
	if err != nil {
		return errors.Wrap(err, "open content store")
	}

	a.limiter, err = ratelimit.Open(cfg.GetRateLimitDB(), ratelimit.WithClock(a.now))
	if err != nil {
		return err
	}

	a.activityLog = activity.NewLogger(cfg.GetActivityLogFile(), activityLogMaxSizeMB)
	a.guard = auth.NewGuard(cfg.SessionTimeout(), a.now)
	a.authenticator = auth.NewAuthenticator(auth.Credentials{
		Username:      cfg.Admin.Username,
		PasswordHash:  cfg.Admin.PasswordHash,
		MaxAttempts:   cfg.Admin.MaxLoginAttempts,
		LockoutWindow: cfg.LockoutWindow(),
	}, a.guard, a.limiter, auth.NewPasswordHasher(auth.DefaultBcryptCost), a.activityLog)
	a.catalog = catalog.NewService(a.store, a.activityLog)

	a.checkContent()
	a.initJob()

	zap.S().Infof("catalogd initialized, content root: %s", cfg.Content.Root)
	return nil
}

// Release stops the scheduler and closes the rate limit db and the activity log.
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.limiter != nil {
		if err := a.limiter.Close(); err != nil {
			zap.L().Error("close rate limit db", zap.Error(err))
		}
	}
	if a.activityLog != nil {
		if err := a.activityLog.Close(); err != nil {
			zap.L().Error("close activity log", zap.Error(err))
		}
	}
	_ = zap.L().Sync()
}

func newLogger(cfg config.LogConfig) *zap.Logger {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	if !cfg.FileEnable {
		logger, err := zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
		return logger
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lumberJackLogger),
			zapConfig.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zapConfig.Level,
		),
	)
	return zap.New(core, zap.AddCaller())
}
