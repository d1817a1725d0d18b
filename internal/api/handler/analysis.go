package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/analysis"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type Analyzer interface {
	Analyze(ctx context.Context, accountID, campaignID string) (*analysis.Result, error)
	ListInsights(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Insight, error)
}

type AnalysisHandler struct {
	service Analyzer
	logger  *slog.Logger
}

func NewAnalysisHandler(service Analyzer, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{service: service, logger: logger}
}

type InsightListResponse struct {
	Insights []*domain.Insight `json:"insights"`
	Count    int               `json:"count"`
}

// Analyze handles POST /v1/accounts/:account_id/campaigns/:campaign_id/analyze
func (h *AnalysisHandler) Analyze(c *fiber.Ctx) error {
	accountID := strings.TrimSpace(c.Params("account_id"))
	campaignID := strings.TrimSpace(c.Params("campaign_id"))
	if accountID == "" || campaignID == "" {
		return domain.ErrBadRequest
	}

	result, err := h.service.Analyze(c.UserContext(), accountID, campaignID)
	if err != nil {
		return asAppError(err)
	}

	return c.JSON(result)
}

// ListInsights handles GET /v1/insights
func (h *AnalysisHandler) ListInsights(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		return &domain.AppError{
			Code:       domain.ErrValidationFailed.Code,
			Message:    "user_id must be a UUID",
			StatusCode: domain.ErrValidationFailed.StatusCode,
		}
	}

	insights, err := h.service.ListInsights(c.UserContext(), userID, c.QueryInt("limit", 50))
	if err != nil {
		return asAppError(err)
	}
	if insights == nil {
		insights = []*domain.Insight{}
	}

	return c.JSON(InsightListResponse{Insights: insights, Count: len(insights)})
}

// asAppError keeps known domain errors and hides everything else behind ErrInternal.
func asAppError(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.ErrInternal.WithError(err)
}
