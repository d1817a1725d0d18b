package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/budget"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/webhook"
)

func (m *Monitor) checkBudget(ctx context.Context, account *domain.Account, c *domain.Campaign, now time.Time, summary *Summary) {
	verdict, ok := budget.MonitorPolicy.Classify(c.Cost, c.DailyBudget)
	if !ok {
		return
	}

	var err error
	switch verdict.Level {
	case budget.LevelWarning:
		err = m.warn(ctx, account, c, verdict, now, summary)
	case budget.LevelExceeded:
		err = m.pause(ctx, account, c, verdict, now, summary)
	}
	if err != nil {
		m.logger.Error("budget check failed",
			"account_id", account.ID,
			"campaign_id", c.ID,
			"spend_percent", verdict.SpendPercent,
			"error", err,
		)
		summary.fail("campaign %s: %v", c.ID, err)
	}
}

// warn records today's budget_warning. The insight is upserted before the
// alert row so a failed upsert leaves nothing behind and the next run retries.
func (m *Monitor) warn(ctx context.Context, account *domain.Account, c *domain.Campaign, v budget.Verdict, now time.Time, summary *Summary) error {
	day := domain.Day(now)

	var existing *domain.BudgetAlert
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		existing, err = m.alerts.FindForDay(ctx, account.ID, c.ID, domain.AlertBudgetWarning, day)
		return err
	})
	if err != nil {
		return fmt.Errorf("find warning alert: %w", err)
	}
	if existing != nil {
		return nil
	}

	insight := domain.NewCampaignInsight(account.UserID, account.ID, c.ID,
		domain.InsightBudgetOverspend, domain.SeverityCritical,
		"Budget Warning",
		fmt.Sprintf("Campaign %q has spent %.1f%% of its daily budget ($%s of $%s).",
			c.Name, v.SpendPercent, c.Cost, c.DailyBudget),
		domain.ActionPauseCampaign, domain.ActionIncreaseBudget, domain.ActionInvestigate,
	)
	insight.Metadata = verdictMetadata(v)

	if err := m.call(ctx, func(ctx context.Context) error { return m.insights.Upsert(ctx, insight) }); err != nil {
		return fmt.Errorf("record warning insight: %w", err)
	}

	alert := newAlert(c, domain.AlertBudgetWarning, v, day)
	var created bool
	err = m.call(ctx, func(ctx context.Context) error {
		var err error
		created, err = m.alerts.Create(ctx, alert)
		return err
	})
	if err != nil {
		return fmt.Errorf("create warning alert: %w", err)
	}
	if !created {
		m.logger.Debug("budget warning already recorded by a concurrent run", "campaign_id", c.ID)
		return nil
	}
	summary.AlertsTriggered++

	m.logger.Info("budget warning recorded", "account_id", account.ID, "campaign_id", c.ID, "spend_percent", v.SpendPercent)
	m.notify(ctx, webhook.EventBudgetWarning, account, c, v, day)
	return nil
}

// pause auto-pauses a campaign at or over budget once per day. The alert row
// is written last: until it says auto_paused, the next run pauses again
// (a no-op on the platform) and re-upserts the insight.
func (m *Monitor) pause(ctx context.Context, account *domain.Account, c *domain.Campaign, v budget.Verdict, now time.Time, summary *Summary) error {
	day := domain.Day(now)

	var existing *domain.BudgetAlert
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		existing, err = m.alerts.FindForDay(ctx, account.ID, c.ID, domain.AlertBudgetExceeded, day)
		return err
	})
	if err != nil {
		return fmt.Errorf("find exceeded alert: %w", err)
	}
	if existing != nil && existing.AutoPaused {
		return nil
	}

	if err := m.call(ctx, func(ctx context.Context) error { return m.pauser.PauseCampaign(ctx, account, c.ID) }); err != nil {
		return fmt.Errorf("pause: %w", err)
	}

	insight := domain.NewCampaignInsight(account.UserID, account.ID, c.ID,
		domain.InsightBudgetOverspend, domain.SeverityCritical,
		"Campaign Auto-Paused",
		fmt.Sprintf("Campaign %q was paused after spending $%s against a $%s daily budget (%.1f%%).",
			c.Name, c.Cost, c.DailyBudget, v.SpendPercent),
		domain.ActionReviewBudget, domain.ActionResumeCampaign,
	)
	insight.Metadata = verdictMetadata(v)
	insight.Metadata["auto_paused"] = true

	if err := m.call(ctx, func(ctx context.Context) error { return m.insights.Upsert(ctx, insight) }); err != nil {
		return fmt.Errorf("record pause insight: %w", err)
	}

	recorded, err := m.recordPaused(ctx, c, v, day, existing)
	if err != nil {
		return err
	}
	if !recorded {
		m.logger.Info("campaign pause already recorded by a concurrent run", "account_id", account.ID, "campaign_id", c.ID)
		return nil
	}
	summary.AlertsTriggered++
	summary.CampaignsPaused++

	err = m.call(ctx, func(ctx context.Context) error {
		return m.campaigns.UpdateStatus(ctx, account.ID, c.ID, domain.CampaignPaused)
	})
	if err != nil {
		// the next cache sync corrects the status
		m.logger.Warn("failed to mark cached campaign paused", "campaign_id", c.ID, "error", err)
	}

	m.logger.Info("campaign auto-paused", "account_id", account.ID, "campaign_id", c.ID, "spend_percent", v.SpendPercent)
	m.notify(ctx, webhook.EventCampaignAutoPaused, account, c, v, day)
	return nil
}

// recordPaused inserts today's exceeded alert as auto_paused or flips an
// existing one. It reports false when another run already recorded the pause.
func (m *Monitor) recordPaused(ctx context.Context, c *domain.Campaign, v budget.Verdict, day time.Time, existing *domain.BudgetAlert) (bool, error) {
	if existing == nil {
		alert := newAlert(c, domain.AlertBudgetExceeded, v, day)
		alert.ActionTaken = domain.ActionAutoPaused
		alert.AutoPaused = true

		var created bool
		err := m.call(ctx, func(ctx context.Context) error {
			var err error
			created, err = m.alerts.Create(ctx, alert)
			return err
		})
		if err != nil {
			return false, fmt.Errorf("create exceeded alert: %w", err)
		}
		if created {
			return true, nil
		}

		// another writer inserted today's row between our read and write
		err = m.call(ctx, func(ctx context.Context) error {
			var err error
			existing, err = m.alerts.FindForDay(ctx, c.AccountID, c.ID, domain.AlertBudgetExceeded, day)
			return err
		})
		if err != nil {
			return false, fmt.Errorf("reload exceeded alert: %w", err)
		}
		if existing == nil {
			return false, fmt.Errorf("exceeded alert vanished for %s", day.Format(time.DateOnly))
		}
	}

	var flipped bool
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		flipped, err = m.alerts.MarkAutoPaused(ctx, existing.ID, c.Cost)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("mark alert auto-paused: %w", err)
	}
	return flipped, nil
}

func (m *Monitor) notify(ctx context.Context, eventType string, account *domain.Account, c *domain.Campaign, v budget.Verdict, day time.Time) {
	if m.notifier == nil {
		return
	}

	e := webhook.Event{
		Type:         eventType,
		UserID:       account.UserID,
		AccountID:    account.ID,
		CampaignID:   c.ID,
		CampaignName: c.Name,
		SpendMicros:  int64(c.Cost),
		BudgetMicros: int64(c.DailyBudget),
		SpendPercent: v.SpendPercent,
		AlertDate:    day.Format(time.DateOnly),
		Timestamp:    m.clock.Now().UTC(),
	}
	if err := m.call(ctx, func(ctx context.Context) error { return m.notifier.Notify(ctx, e) }); err != nil {
		m.logger.Warn("budget event not delivered", "type", eventType, "campaign_id", c.ID, "error", err)
	}
}

func newAlert(c *domain.Campaign, typ domain.AlertType, v budget.Verdict, day time.Time) *domain.BudgetAlert {
	return &domain.BudgetAlert{
		AccountID:    c.AccountID,
		CampaignID:   c.ID,
		AlertType:    typ,
		Threshold:    v.Threshold,
		SpendMicros:  c.Cost,
		BudgetMicros: c.DailyBudget,
		ActionTaken:  domain.ActionAlerted,
		AlertDate:    day,
	}
}

func verdictMetadata(v budget.Verdict) map[string]interface{} {
	return map[string]interface{}{
		"spend_percent": v.SpendPercent,
		"threshold":     v.Threshold,
		"cost_micros":   int64(v.Cost),
		"budget_micros": int64(v.Budget),
	}
}
