package middleware

import (
	"net/http"

	infra "github.com/coursebay/player-session/internal/infrastructure"
	"github.com/labstack/echo/v4"
)

// NoRouteMatched render unknown paths as the standard error body instead
// of echo's default HTML message, the web player consumes JSON only
func NoRouteMatched() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if v, ok := err.(*echo.HTTPError); ok && v.Code == http.StatusNotFound {
				return c.JSON(v.Code, infra.NewRESTStandardError(v.Code, "No such route"))
			}
			return err
		}
	}
}
