package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/database"
)

const version = "0.1.0"

type HealthHandler struct {
	db database.Pinger
}

// NewHealthHandler builds the probes. A nil db makes /ready always succeed.
func NewHealthHandler(db database.Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.db != nil {
		if err := database.HealthCheck(c.UserContext(), h.db); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(middleware.ErrorResponse{
				Error:   "NOT_READY",
				Message: err.Error(),
			})
		}
	}

	return c.JSON(HealthResponse{
		Status: "ready",
	})
}
