// Package adminapi serves the admin panel API under /admin.
package adminapi

import (
	"github.com/labstack/echo/v4"

	"github.com/launchmena/catalogd/internal/app"
	"github.com/launchmena/catalogd/internal/webserver"
)

// Init registers every admin route on the web server.
func Init() {
	registerAuthRoutes()
	registerProductRoutes()
	registerMaintenanceRoutes()
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}
