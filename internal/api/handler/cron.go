package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/monitor"
)

type MonitorRunner interface {
	Run(ctx context.Context) (*monitor.Summary, error)
}

type CronHandler struct {
	monitor MonitorRunner
	logger  *slog.Logger
}

func NewCronHandler(m MonitorRunner, logger *slog.Logger) *CronHandler {
	return &CronHandler{monitor: m, logger: logger}
}

// BudgetMonitor handles GET /api/cron/budget-monitor
func (h *CronHandler) BudgetMonitor(c *fiber.Ctx) error {
	summary, err := h.monitor.Run(c.UserContext())
	if err != nil {
		h.logger.Error("budget monitor run failed", "error", err)
		// the scheduler only sees this body, so it carries the cause
		return c.Status(fiber.StatusInternalServerError).JSON(middleware.ErrorResponse{
			Error:   domain.ErrMonitorFailed.Code,
			Message: err.Error(),
		})
	}

	return c.JSON(summary)
}
