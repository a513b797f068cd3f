package adminapi

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/launchmena/catalogd/internal/domain"
)

var errInvalidAction = errors.New("invalid dashboard action")

// Response is the JSON envelope of every admin endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, Response{Success: false, Error: code, Message: message, Details: details})
}

// failErr maps a domain error onto its status and error code.
func failErr(c echo.Context, err error) error {
	var (
		verr *domain.ValidationError
		rle  *domain.RateLimitError
	)
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Your session has expired. Please log in again.", map[string]bool{"timeout": true})
	case errors.Is(err, domain.ErrUnauthenticated):
		return fail(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Please log in to continue.", nil)
	case errors.Is(err, domain.ErrInvalidToken):
		return fail(c, http.StatusForbidden, "INVALID_TOKEN", "Invalid security token. Please try again.", nil)
	case errors.As(err, &rle):
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rle.RetryAfter.Seconds()))))
		return fail(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many login attempts. Please try again later.", nil)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password.", nil)
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Message, map[string]string{"field": verr.Field})
	case errors.Is(err, errInvalidAction):
		return fail(c, http.StatusBadRequest, "INVALID_ACTION", "Unknown dashboard action.", nil)
	case errors.Is(err, domain.ErrDuplicateID):
		return fail(c, http.StatusConflict, "DUPLICATE_ID", "A product with this ID already exists.", nil)
	case errors.Is(err, domain.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found.", nil)
	case errors.Is(err, domain.ErrStorage):
		zap.L().Error("storage failure", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "STORAGE_ERROR", "The operation could not be saved. Please try again.", nil)
	default:
		zap.L().Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred.", nil)
	}
}
