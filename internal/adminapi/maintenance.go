package adminapi

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/launchmena/catalogd/internal/auth"
	"github.com/launchmena/catalogd/internal/domain"
	"github.com/launchmena/catalogd/internal/webserver"
)

const defaultActivityLimit = 50

type activityQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

func registerMaintenanceRoutes() {
	webserver.AdminGET("/activity", withSession(requireLogin(recentActivity)))
	webserver.AdminGET("/consistency", withSession(requireLogin(checkConsistency)))
	webserver.AdminPOST("/rate-limits/clear", withSession(requireLogin(requireCSRF(clearRateLimits))))
}

func recentActivity(c echo.Context, _ *auth.Session) (interface{}, error) {
	var q activityQuery
	if err := c.Bind(&q); err != nil {
		return nil, domain.NewValidationError("limit", "Limit must be a number.")
	}
	if err := c.Validate(&q); err != nil {
		return nil, domain.NewValidationError("limit", "Limit must be between 1 and 500.")
	}
	if q.Limit == 0 {
		q.Limit = defaultActivityLimit
	}
	entries, err := GetAppContext(c).Activity().Recent(q.Limit)
	if err != nil {
		return nil, &domain.StorageError{Op: "read activity log", Err: err}
	}
	return entries, nil
}

func checkConsistency(c echo.Context, _ *auth.Session) (interface{}, error) {
	report, err := GetAppContext(c).RunConsistencyCheck(c.Request().Context())
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"ok":     report.OK(),
		"report": report,
	}, nil
}

// clearRateLimits drops every login attempt record, unlocking all clients.
func clearRateLimits(c echo.Context, s *auth.Session) (interface{}, error) {
	appCtx := GetAppContext(c)
	n, err := appCtx.Limiter().Clear(c.Request().Context())
	if err != nil {
		return nil, &domain.StorageError{Op: "clear rate limits", Err: err}
	}
	appCtx.Activity().Log(s.Actor(c.RealIP()), domain.ActionRateLimitCleared, fmt.Sprintf("Removed %d records", n))
	return map[string]int{"removed": n}, nil
}
