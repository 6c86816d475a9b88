package httpserver

import (
	"log/slog"
	"time"

	apperrors "github.com/G-m007/EmoStream/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter limits requests per client IP.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		// Echo renders the deny result itself, bypassing ErrorHandlingMiddleware.
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			denied := apperrors.RateLimitedError("rate limit exceeded")
			slog.WarnContext(c.Request().Context(), "Request rate limited", "remote_ip", identifier, "path", c.Request().URL.Path)
			return c.JSON(denied.HTTPStatus(), denied.ToResponse())
		},
	})
}
