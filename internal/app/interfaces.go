package app

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/launchmena/catalogd/config"
	"github.com/launchmena/catalogd/internal/activity"
	"github.com/launchmena/catalogd/internal/auth"
	"github.com/launchmena/catalogd/internal/catalog"
	"github.com/launchmena/catalogd/internal/contentstore"
	"github.com/launchmena/catalogd/internal/ratelimit"
)

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the content store
type StoreProvider interface {
	Store() *contentstore.FileStore
}

// LimiterProvider provides the login rate limiter
type LimiterProvider interface {
	Limiter() ratelimit.Limiter
}

// ActivityProvider provides the admin activity log
type ActivityProvider interface {
	Activity() *activity.Logger
}

// CatalogProvider provides the catalog service
type CatalogProvider interface {
	Catalog() *catalog.Service
}

// AuthProvider provides session guard and authenticator
type AuthProvider interface {
	Guard() *auth.Guard
	Authenticator() *auth.Authenticator
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	ConfigProvider
	StoreProvider
	LimiterProvider
	ActivityProvider
	CatalogProvider
	AuthProvider
	SchedulerProvider

	// SweepRateLimits drops rate limit records idle for longer than the lockout window.
	SweepRateLimits(ctx context.Context) (int, error)
	// RunConsistencyCheck builds the manifest reconciliation report and logs its findings.
	RunConsistencyCheck(ctx context.Context) (*catalog.ConsistencyReport, error)
}
