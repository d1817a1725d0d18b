// Package monitor runs the scheduled budget and anomaly pass over every
// monitored account.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/adplatform"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/runlock"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/webhook"
)

type AccountStore interface {
	ListMonitored(ctx context.Context) ([]*domain.Account, error)
}

type CampaignStore interface {
	ListCached(ctx context.Context, accountID, namePrefix string, since time.Time) ([]*domain.Campaign, error)
	UpdateStatus(ctx context.Context, accountID, campaignID string, status domain.CampaignStatus) error
	ListHistory(ctx context.Context, accountID, campaignID string, limit int) ([]domain.MetricPoint, error)
}

type AlertStore interface {
	FindForDay(ctx context.Context, accountID, campaignID string, alertType domain.AlertType, day time.Time) (*domain.BudgetAlert, error)
	Create(ctx context.Context, a *domain.BudgetAlert) (bool, error)
	MarkAutoPaused(ctx context.Context, id uuid.UUID, spend domain.Micros) (bool, error)
}

type InsightStore interface {
	Upsert(ctx context.Context, in *domain.Insight) error
}

// Notifier receives budget events after they are recorded. Delivery is
// best-effort: a failure is logged and never undoes the alert.
type Notifier interface {
	Notify(ctx context.Context, e webhook.Event) error
}

type Locker interface {
	TryAcquire(ctx context.Context) (runlock.Lease, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	NamePrefix      string
	FreshnessWindow time.Duration
	CallTimeout     time.Duration
	Location        *time.Location
	HistoryLimit    int
}

func (c Config) withDefaults() Config {
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = 10 * time.Minute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 15 * time.Second
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 7
	}
	return c
}

// Summary is the outcome of one run. Errors is never nil so it encodes as [].
type Summary struct {
	Checked         int      `json:"checked"`
	AlertsTriggered int      `json:"alerts_triggered"`
	CampaignsPaused int      `json:"campaigns_paused"`
	Errors          []string `json:"errors"`
	Skipped         bool     `json:"skipped,omitempty"`
}

func (s *Summary) fail(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

type Deps struct {
	Accounts  AccountStore
	Campaigns CampaignStore
	Alerts    AlertStore
	Insights  InsightStore
	Pauser    adplatform.Pauser
	Locker    Locker
	Notifier  Notifier
	Clock     Clock
	Logger    *slog.Logger
}

type Monitor struct {
	accounts  AccountStore
	campaigns CampaignStore
	alerts    AlertStore
	insights  InsightStore
	pauser    adplatform.Pauser
	locker    Locker
	notifier  Notifier
	clock     Clock
	logger    *slog.Logger
	cfg       Config
}

func New(deps Deps, cfg Config) *Monitor {
	m := &Monitor{
		accounts:  deps.Accounts,
		campaigns: deps.Campaigns,
		alerts:    deps.Alerts,
		insights:  deps.Insights,
		pauser:    deps.Pauser,
		locker:    deps.Locker,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		logger:    deps.Logger,
		cfg:       cfg.withDefaults(),
	}
	if m.locker == nil {
		m.locker = runlock.Noop{}
	}
	if m.clock == nil {
		m.clock = realClock{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Run evaluates every fresh, active campaign of every monitored account.
// Per-account and per-campaign failures land in Summary.Errors; an error is
// returned only when the accounts cannot be listed at all.
func (m *Monitor) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{Errors: []string{}}

	lease, err := m.locker.TryAcquire(ctx)
	switch {
	case err != nil:
		// the daily unique index still prevents double actions
		m.logger.Warn("run lock unavailable, continuing without it", "error", err)
	case lease == nil:
		m.logger.Info("budget monitor already running, skipping")
		summary.Skipped = true
		return summary, nil
	default:
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release run lock", "error", err)
			}
		}()
	}

	start := m.clock.Now()

	var accounts []*domain.Account
	err = m.call(ctx, func(ctx context.Context) error {
		var err error
		accounts, err = m.accounts.ListMonitored(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list monitored accounts: %w", err)
	}

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			summary.fail("run aborted: %v", err)
			break
		}
		m.runAccount(ctx, account, summary)
	}

	m.logger.Info("budget monitor run finished",
		"accounts", len(accounts),
		"checked", summary.Checked,
		"alerts_triggered", summary.AlertsTriggered,
		"campaigns_paused", summary.CampaignsPaused,
		"errors", len(summary.Errors),
		"duration", m.clock.Now().Sub(start),
	)

	return summary, nil
}

func (m *Monitor) runAccount(ctx context.Context, account *domain.Account, summary *Summary) {
	now := m.clock.Now().In(m.cfg.Location)
	since := now.Add(-m.cfg.FreshnessWindow)

	var campaigns []*domain.Campaign
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		campaigns, err = m.campaigns.ListCached(ctx, account.ID, m.cfg.NamePrefix, since)
		return err
	})
	if err != nil {
		m.logger.Error("failed to list cached campaigns", "account_id", account.ID, "error", err)
		summary.fail("account %s: %v", account.ID, err)
		return
	}

	for _, c := range campaigns {
		if !c.IsFresh(now, m.cfg.FreshnessWindow) {
			m.logger.Debug("skipping stale campaign", "campaign_id", c.ID, "cached_at", c.CachedAt)
			continue
		}
		if err := c.Validate(); err != nil {
			m.logger.Warn("skipping malformed campaign snapshot", "account_id", account.ID, "campaign_id", c.ID, "error", err)
			summary.fail("campaign %s: invalid snapshot: %v", c.ID, err)
			continue
		}
		if !c.IsActive() {
			continue
		}

		summary.Checked++
		m.checkBudget(ctx, account, c, now, summary)
		m.checkAnomalies(ctx, account, c, summary)
	}
}

// call runs fn under its own timeout so one hung dependency cannot stall the run.
func (m *Monitor) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	return fn(ctx)
}
