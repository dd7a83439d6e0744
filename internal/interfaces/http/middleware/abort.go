package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// AbortRequestOption options for request abortion
type AbortRequestOption struct {
	Timeout time.Duration
}

// AbortRequest attach a deadline to the request context
func AbortRequest(options ...*AbortRequestOption) echo.MiddlewareFunc {
	var timeout time.Duration
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}
			req := c.Request()
			ctx, cancel := context.WithTimeout(req.Context(), timeout)
			defer cancel()

			c.SetRequest(req.WithContext(ctx))
			err := next(c)
			if ctx.Err() == context.DeadlineExceeded {
				return c.NoContent(http.StatusGatewayTimeout)
			}
			return err
		}
	}
}
