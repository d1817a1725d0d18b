package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			// render now so the logged status is the one the client gets
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
			slog.Any("request_id", c.Locals("requestid")),
		}
		if account := c.Params("account_id"); account != "" {
			attrs = append(attrs, slog.String("account_id", account))
		}

		logger.LogAttrs(c.UserContext(), requestLevel(c.Path(), status), "http request", attrs...)
		return nil
	}
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case path == "/health" || path == "/ready":
		// probes hit these every few seconds
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
