// Package budget classifies a campaign's same-day spend against its daily budget.
package budget

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type Level int

const (
	LevelNone Level = iota
	LevelWarning
	LevelExceeded
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelExceeded:
		return "exceeded"
	default:
		return "none"
	}
}

// Policy holds the spend thresholds, in percent of the daily budget.
// With Inclusive set a threshold fires when spend reaches it; otherwise spend
// has to go strictly above it.
type Policy struct {
	WarningPercent  float64
	ExceededPercent float64
	Inclusive       bool
}

var (
	// InsightPolicy is used by on-demand analysis: >90% warns, >100% is overspend.
	InsightPolicy = Policy{WarningPercent: 90, ExceededPercent: 100, Inclusive: false}

	// MonitorPolicy is used by the scheduled monitor: >=90% warns, >=100% pauses.
	MonitorPolicy = Policy{WarningPercent: 90, ExceededPercent: 100, Inclusive: true}
)

type Verdict struct {
	Level        Level
	SpendPercent float64
	Threshold    float64
	Cost         domain.Micros
	Budget       domain.Micros
}

// SpendPercent returns cost as a percentage of budget. ok is false when the
// budget is zero or negative and no ratio can be computed.
func SpendPercent(cost, budget domain.Micros) (pct float64, ok bool) {
	if budget <= 0 {
		return 0, false
	}
	return float64(cost) * 100 / float64(budget), true
}

// Classify evaluates cost against budget. ok is false when no evaluation is possible.
func (p Policy) Classify(cost, budget domain.Micros) (Verdict, bool) {
	pct, ok := SpendPercent(cost, budget)
	if !ok {
		return Verdict{}, false
	}

	v := Verdict{Level: LevelNone, SpendPercent: pct, Cost: cost, Budget: budget}
	switch {
	case p.crossed(pct, p.ExceededPercent):
		v.Level = LevelExceeded
		v.Threshold = p.ExceededPercent
	case p.crossed(pct, p.WarningPercent):
		v.Level = LevelWarning
		v.Threshold = p.WarningPercent
	}

	return v, true
}

func (p Policy) crossed(pct, threshold float64) bool {
	if p.Inclusive {
		return pct >= threshold
	}
	return pct > threshold
}

// Detect evaluates a campaign snapshot with InsightPolicy and returns the
// budget insight to record, or nil when spend is within budget.
func Detect(c *domain.Campaign, userID uuid.UUID) *domain.Insight {
	v, ok := InsightPolicy.Classify(c.Cost, c.DailyBudget)
	if !ok {
		return nil
	}

	switch v.Level {
	case LevelExceeded:
		return domain.NewCampaignInsight(userID, c.AccountID, c.ID,
			domain.InsightBudgetOverspend, domain.SeverityCritical,
			"Budget Overspend",
			fmt.Sprintf("Campaign %q has spent $%s against a daily budget of $%s (%.1f%% over budget).",
				c.Name, v.Cost, v.Budget, v.SpendPercent-100),
			domain.ActionPauseCampaign, domain.ActionIncreaseBudget, domain.ActionInvestigate,
		)
	case LevelWarning:
		return domain.NewCampaignInsight(userID, c.AccountID, c.ID,
			domain.InsightBudgetOverspend, domain.SeverityCritical,
			"Budget Warning",
			fmt.Sprintf("Campaign %q has used %.1f%% of its $%s daily budget ($%s spent).",
				c.Name, v.SpendPercent, v.Budget, v.Cost),
			domain.ActionMonitor, domain.ActionIncreaseBudget,
		)
	default:
		return nil
	}
}
