package domain

import (
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertBudgetWarning  AlertType = "budget_warning"
	AlertBudgetExceeded AlertType = "budget_exceeded"
)

type AlertAction string

const (
	ActionAlerted    AlertAction = "alerted"
	ActionAutoPaused AlertAction = "auto_paused"
)

// BudgetAlert records one budget threshold crossing for a campaign on one calendar day.
// AutoPaused only ever moves from false to true.
type BudgetAlert struct {
	ID           uuid.UUID   `json:"id"`
	AccountID    string      `json:"account_id"`
	CampaignID   string      `json:"campaign_id"`
	AlertType    AlertType   `json:"alert_type"`
	Threshold    float64     `json:"threshold"`
	SpendMicros  Micros      `json:"spend_micros"`
	BudgetMicros Micros      `json:"budget_micros"`
	ActionTaken  AlertAction `json:"action_taken"`
	AutoPaused   bool        `json:"auto_paused"`
	AlertDate    time.Time   `json:"alert_date"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Day truncates t to its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
