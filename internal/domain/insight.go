package domain

import (
	"time"

	"github.com/google/uuid"
)

type InsightType string

const (
	InsightBudgetOverspend    InsightType = "budget_overspend"
	InsightPerformanceAnomaly InsightType = "performance_anomaly"
	InsightOptimization       InsightType = "optimization"
	InsightAlert              InsightType = "alert"
)

type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeverityOpportunity Severity = "opportunity"
	SeverityInfo        Severity = "info"
)

// Rank orders severities so the most urgent compares highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityOpportunity:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Suggested next actions attached to insights.
const (
	ActionPauseCampaign  = "pause_campaign"
	ActionIncreaseBudget = "increase_budget"
	ActionInvestigate    = "investigate"
	ActionMonitor        = "monitor"
	ActionReviewBudget   = "review_budget"
	ActionResumeCampaign = "resume_campaign"
)

// Insight is a persisted, user-facing record of a detected condition.
// At most one insight exists per (user, account, campaign, type).
type Insight struct {
	ID               uuid.UUID              `json:"id"`
	UserID           uuid.UUID              `json:"user_id"`
	AccountID        *string                `json:"account_id,omitempty"`
	CampaignID       *string                `json:"campaign_id,omitempty"`
	Type             InsightType            `json:"type"`
	Severity         Severity               `json:"severity"`
	Title            string                 `json:"title"`
	Message          string                 `json:"message"`
	SuggestedActions []string               `json:"suggested_actions"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	Dismissed        bool                   `json:"dismissed"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NewCampaignInsight builds an insight scoped to one campaign of one account.
func NewCampaignInsight(userID uuid.UUID, accountID, campaignID string, typ InsightType, sev Severity, title, message string, actions ...string) *Insight {
	acc, camp := accountID, campaignID
	if actions == nil {
		actions = []string{}
	}
	return &Insight{
		UserID:           userID,
		AccountID:        &acc,
		CampaignID:       &camp,
		Type:             typ,
		Severity:         sev,
		Title:            title,
		Message:          message,
		SuggestedActions: actions,
	}
}
