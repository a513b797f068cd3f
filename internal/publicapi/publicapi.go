// Package publicapi serves the read-only storefront: the raw content files
// and list/search endpoints over them.
package publicapi

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/app"
	"github.com/launchmena/catalogd/internal/catalog"
	"github.com/launchmena/catalogd/internal/domain"
	"github.com/launchmena/catalogd/internal/webserver"
)

// Init registers the storefront routes.
func Init() {
	webserver.RootGET("/products/*", serveContentFile("products"))
	webserver.RootGET("/categories/*", serveContentFile("categories"))

	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiGET("/categories/:id/products", listCategoryProducts)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]interface{}{"success": false, "error": code, "message": message})
}

func failErr(c echo.Context, err error, what string) error {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", what+" not found.")
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message)
	default:
		zap.L().Error("storefront read failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "Content is temporarily unavailable.")
	}
}

// serveContentFile serves JSON files below <content root>/<dir>, the way a
// static host would serve the site's public folder.
func serveContentFile(dir string) echo.HandlerFunc {
	return func(c echo.Context) error {
		rel := path.Clean("/" + c.Param("*"))
		if rel == "/" || path.Ext(rel) != ".json" {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "File not found.")
		}
		root := GetAppContext(c).Store().Root()
		file := filepath.Join(root, dir, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
		c.Response().Header().Set("Cache-Control", "no-cache")
		return c.File(file)
	}
}

func listProducts(c echo.Context) error {
	var filter catalog.ProductFilter
	if err := c.Bind(&filter); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query.")
	}
	if err := c.Validate(&filter); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Query parameters are too long.")
	}
	products, err := GetAppContext(c).Catalog().SearchProducts(c.Request().Context(), filter)
	if err != nil {
		return failErr(c, err, "Products")
	}
	return ok(c, products)
}

func getProduct(c echo.Context) error {
	p, err := GetAppContext(c).Catalog().GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failErr(c, err, "Product")
	}
	return ok(c, p.Localized(c.QueryParam("locale")))
}

func listCategories(c echo.Context) error {
	svc := GetAppContext(c).Catalog()
	var (
		categories []domain.Category
		err        error
	)
	if c.QueryParam("featured") == "true" {
		categories, err = svc.FeaturedCategories(c.Request().Context())
	} else {
		categories, err = svc.ListCategories(c.Request().Context())
	}
	if err != nil {
		return failErr(c, err, "Categories")
	}
	return ok(c, categories)
}

func getCategory(c echo.Context) error {
	category, err := GetAppContext(c).Catalog().GetCategory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failErr(c, err, "Category")
	}
	return ok(c, category)
}

func listCategoryProducts(c echo.Context) error {
	products, err := GetAppContext(c).Catalog().ProductsInCategory(c.Request().Context(), c.Param("id"), c.QueryParam("locale"))
	if err != nil {
		return failErr(c, err, "Category")
	}
	return ok(c, products)
}
