package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	applogger "Veritas/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					if l != nil {
						l.Error("http handler panic",
							applogger.Error(perr),
							applogger.String("route", c.Path()),
							applogger.String("request_id", applogger.RequestIDFromContext(c.Request().Context())),
							applogger.String("stack", string(debug.Stack())),
						)
					}
					err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"error":     "internal server error",
						"timestamp": time.Now().Unix(),
					})
				}
			}()
			return next(c)
		}
	}
}
