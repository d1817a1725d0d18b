package budget

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

const dailyBudget = domain.Micros(500 * domain.MicrosPerUnit)

func spendAt(pct float64) domain.Micros {
	return domain.Micros(math.Round(float64(dailyBudget) * pct / 100))
}

func TestPolicy_Classify_Boundaries(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		percent float64
		want    Level
	}{
		{"monitor 89.9% nothing", MonitorPolicy, 89.9, LevelNone},
		{"monitor 90% warns", MonitorPolicy, 90, LevelWarning},
		{"monitor 99.9% warns", MonitorPolicy, 99.9, LevelWarning},
		{"monitor 100% exceeded", MonitorPolicy, 100, LevelExceeded},
		{"monitor 268% exceeded", MonitorPolicy, 268, LevelExceeded},
		{"insight 89.9% nothing", InsightPolicy, 89.9, LevelNone},
		{"insight 90% nothing", InsightPolicy, 90, LevelNone},
		{"insight 90.1% warns", InsightPolicy, 90.1, LevelWarning},
		{"insight 100% warns", InsightPolicy, 100, LevelWarning},
		{"insight 100.1% overspend", InsightPolicy, 100.1, LevelExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.policy.Classify(spendAt(tt.percent), dailyBudget)
			require.True(t, ok)
			assert.Equal(t, tt.want, v.Level)
			assert.InDelta(t, tt.percent, v.SpendPercent, 1e-6)
		})
	}
}

func TestPolicy_Classify_ZeroBudget(t *testing.T) {
	for _, p := range []Policy{InsightPolicy, MonitorPolicy} {
		v, ok := p.Classify(1_000_000, 0)
		assert.False(t, ok)
		assert.Equal(t, LevelNone, v.Level)
	}

	_, ok := MonitorPolicy.Classify(1_000_000, -5)
	assert.False(t, ok)
}

func TestDetect(t *testing.T) {
	userID := uuid.New()

	t.Run("overspend", func(t *testing.T) {
		c := &domain.Campaign{ID: "c1", AccountID: "a1", Name: "Brand", DailyBudget: dailyBudget, Cost: spendAt(268)}

		got := Detect(c, userID)
		require.NotNil(t, got)
		assert.Equal(t, "Budget Overspend", got.Title)
		assert.Equal(t, domain.InsightBudgetOverspend, got.Type)
		assert.Equal(t, domain.SeverityCritical, got.Severity)
		assert.Equal(t, []string{"pause_campaign", "increase_budget", "investigate"}, got.SuggestedActions)
		assert.Contains(t, got.Message, "$1340.00")
		assert.Contains(t, got.Message, "$500.00")
		assert.Contains(t, got.Message, "168.0% over budget")
		assert.Equal(t, "c1", *got.CampaignID)
		assert.Equal(t, "a1", *got.AccountID)
		assert.Equal(t, userID, got.UserID)
	})

	t.Run("warning", func(t *testing.T) {
		c := &domain.Campaign{ID: "c1", AccountID: "a1", DailyBudget: dailyBudget, Cost: spendAt(95)}

		got := Detect(c, userID)
		require.NotNil(t, got)
		assert.Equal(t, "Budget Warning", got.Title)
		assert.Equal(t, domain.SeverityCritical, got.Severity)
		assert.Equal(t, []string{"monitor", "increase_budget"}, got.SuggestedActions)
	})

	t.Run("within budget", func(t *testing.T) {
		c := &domain.Campaign{ID: "c1", AccountID: "a1", DailyBudget: dailyBudget, Cost: spendAt(50)}
		assert.Nil(t, Detect(c, userID))
	})

	t.Run("zero budget", func(t *testing.T) {
		c := &domain.Campaign{ID: "c1", AccountID: "a1", Cost: spendAt(50)}
		assert.Nil(t, Detect(c, userID))
	})
}
