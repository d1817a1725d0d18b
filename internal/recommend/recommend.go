// Package recommend turns campaign data into free-text optimization advice
// produced by a hosted language model.
package recommend

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Recommendation struct {
	Title            string   `json:"title"`
	Message          string   `json:"message"`
	Priority         Priority `json:"priority"`
	SuggestedActions []string `json:"suggestedActions"`
}

// CampaignData is everything the model gets to see about one campaign.
type CampaignData struct {
	Campaign     *domain.Campaign     `json:"campaign"`
	Current      domain.Metrics       `json:"current_metrics"`
	History      []domain.MetricPoint `json:"history"`
	SpendPercent *float64             `json:"spend_percent,omitempty"`
}

type Generator interface {
	Generate(ctx context.Context, data CampaignData) ([]Recommendation, error)
}

// Insight wraps the recommendation into an optimization insight.
func (r Recommendation) Insight(userID uuid.UUID, accountID, campaignID string) *domain.Insight {
	sev := domain.SeverityInfo
	switch Priority(strings.ToLower(string(r.Priority))) {
	case PriorityHigh:
		sev = domain.SeverityCritical
	case PriorityMedium:
		sev = domain.SeverityOpportunity
	}

	return domain.NewCampaignInsight(userID, accountID, campaignID,
		domain.InsightOptimization, sev, r.Title, r.Message, r.SuggestedActions...)
}

// Safe shields callers from generator failures: errors are logged and an
// empty list is returned.
type Safe struct {
	gen    Generator
	logger *slog.Logger
}

func NewSafe(gen Generator, logger *slog.Logger) *Safe {
	return &Safe{gen: gen, logger: logger}
}

func (s *Safe) Generate(ctx context.Context, data CampaignData) []Recommendation {
	if s == nil || s.gen == nil {
		return nil
	}

	recs, err := s.gen.Generate(ctx, data)
	if err != nil {
		attrs := []any{"error", err}
		if data.Campaign != nil {
			attrs = append(attrs, "campaign_id", data.Campaign.ID)
		}
		s.logger.Warn("recommendation generation failed", attrs...)
		return nil
	}

	return recs
}
