package monitor

import (
	"context"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/anomaly"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

// checkAnomalies records the most severe metric swing of a campaign. Only one
// performance_anomaly insight can exist per campaign, so lesser findings are dropped.
func (m *Monitor) checkAnomalies(ctx context.Context, account *domain.Account, c *domain.Campaign, summary *Summary) {
	var history []domain.MetricPoint
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		history, err = m.campaigns.ListHistory(ctx, account.ID, c.ID, m.cfg.HistoryLimit)
		return err
	})
	if err != nil {
		m.logger.Error("failed to load metric history", "campaign_id", c.ID, "error", err)
		summary.fail("campaign %s: anomaly history: %v", c.ID, err)
		return
	}

	finding, ok := anomaly.MostSevere(anomaly.Detect(c.CurrentMetrics(), history))
	if !ok {
		return
	}

	insight := finding.Insight(account.UserID, account.ID, c.ID)
	if err := m.call(ctx, func(ctx context.Context) error { return m.insights.Upsert(ctx, insight) }); err != nil {
		m.logger.Error("failed to record anomaly insight", "campaign_id", c.ID, "error", err)
		summary.fail("campaign %s: anomaly insight: %v", c.ID, err)
		return
	}

	m.logger.Info("performance anomaly recorded",
		"campaign_id", c.ID,
		"metric", finding.Metric,
		"z_score", finding.ZScore,
	)
}
