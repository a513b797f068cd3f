package adminapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/launchmena/catalogd/internal/auth"
	"github.com/launchmena/catalogd/internal/catalog"
	"github.com/launchmena/catalogd/internal/domain"
	"github.com/launchmena/catalogd/internal/webserver"
)

const (
	actionUpdateProduct = "update_product"
	actionDeleteProduct = "delete_product"
)

type productPayload struct {
	ProductID string `json:"product_id" form:"product_id"`
	catalog.ProductInput
}

type dashboardPayload struct {
	Action    string `json:"action" form:"action" validate:"required,oneof=update_product delete_product"`
	ProductID string `json:"product_id" form:"product_id"`
	catalog.ProductInput
}

type productListing struct {
	Products []domain.Product `json:"products"`
	Counts   catalog.Counts   `json:"counts"`
}

// registerProductRoutes registers the product authoring endpoints
func registerProductRoutes() {
	webserver.AdminGET("/products", withSession(requireLogin(listProducts)))
	webserver.AdminGET("/categories", withSession(requireLogin(listCategoryOptions)))
	webserver.AdminPOST("/products/create", withSession(requireLogin(requireCSRF(createProduct))))
	webserver.AdminPOST("/dashboard", withSession(requireLogin(requireCSRF(dashboardAction))))
}

func listProducts(c echo.Context, _ *auth.Session) (interface{}, error) {
	svc := GetAppContext(c).Catalog()
	ctx := c.Request().Context()
	products, err := svc.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := svc.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return productListing{Products: products, Counts: counts}, nil
}

func listCategoryOptions(c echo.Context, _ *auth.Session) (interface{}, error) {
	return GetAppContext(c).Catalog().CategoryOptions(c.Request().Context())
}

func createProduct(c echo.Context, s *auth.Session) (interface{}, error) {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return nil, domain.NewValidationError("body", "Unable to parse product form.")
	}
	return GetAppContext(c).Catalog().CreateProduct(c.Request().Context(), s.Actor(c.RealIP()), payload.ProductID, payload.ProductInput)
}

// dashboardAction dispatches the dashboard form by its action field.
func dashboardAction(c echo.Context, s *auth.Session) (interface{}, error) {
	var payload dashboardPayload
	if err := c.Bind(&payload); err != nil {
		return nil, domain.NewValidationError("body", "Unable to parse dashboard form.")
	}
	payload.Action = strings.TrimSpace(payload.Action)
	if err := c.Validate(&payload); err != nil {
		return nil, errInvalidAction
	}

	svc := GetAppContext(c).Catalog()
	ctx := c.Request().Context()
	actor := s.Actor(c.RealIP())
	switch payload.Action {
	case actionUpdateProduct:
		return svc.UpdateProduct(ctx, actor, payload.ProductID, payload.ProductInput)
	default:
		id := strings.TrimSpace(payload.ProductID)
		if err := svc.DeleteProduct(ctx, actor, id); err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil
	}
}
