package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/catalog"
)

const jobTimeout = 5 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 1h", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_, _ = a.SweepRateLimits(ctx)
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 15m", func() {
		_, _ = a.SweepSessions()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_, _ = a.RunConsistencyCheck(ctx)
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}
}

// StartScheduler starts the cron jobs.
func (a *Application) StartScheduler() {
	a.sched.Start()
}

func (a *Application) SweepRateLimits(ctx context.Context) (int, error) {
	n, err := a.limiter.Sweep(ctx, a.appConfig.LockoutWindow())
	if err != nil {
		zap.L().Error("rate limit sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		zap.L().Info("rate limit records swept", zap.Int("removed", n))
	}
	return n, nil
}

func (a *Application) RunConsistencyCheck(ctx context.Context) (*catalog.ConsistencyReport, error) {
	report, err := a.catalog.CheckConsistency(ctx)
	if err != nil {
		zap.L().Error("consistency check failed", zap.Error(err))
		return nil, err
	}
	if report.OK() {
		zap.L().Info("content store consistent", zap.Int("products", report.Listed))
		return report, nil
	}
	for _, f := range report.Findings() {
		zap.L().Warn("content store inconsistency", zap.Error(f))
	}
	return report, nil
}

// SweepSessions removes session files untouched for longer than the session
// timeout. Every request rewrites its session file, so these can only belong
// to expired or abandoned sessions. FilesystemStore never deletes them itself.
func (a *Application) SweepSessions() (int, error) {
	dir := a.appConfig.GetSessionDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		zap.L().Error("session sweep failed", zap.String("dir", dir), zap.Error(err))
		return 0, err
	}
	cutoff := a.now().Add(-a.appConfig.SessionTimeout())
	var removed int
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "session_") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("remove stale session", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		zap.L().Info("stale sessions removed", zap.Int("removed", removed))
	}
	return removed, nil
}
