package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

// Recover turns a handler panic into ErrInternal so the response goes
// through the app ErrorHandler like any other failure.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error("panic recovered",
				slog.Any("panic", r),
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("request_id", c.Locals("requestid")),
				slog.String("stack", string(debug.Stack())),
			)
			err = domain.ErrInternal
		}()
		return c.Next()
	}
}
