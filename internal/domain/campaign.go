package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignActive  CampaignStatus = "active"
	CampaignPaused  CampaignStatus = "paused"
	CampaignRemoved CampaignStatus = "removed"
	CampaignLimited CampaignStatus = "limited"
)

var validCampaignStatuses = map[CampaignStatus]bool{
	CampaignActive:  true,
	CampaignPaused:  true,
	CampaignRemoved: true,
	CampaignLimited: true,
}

// Valid reports whether s is one of the known lifecycle statuses.
func (s CampaignStatus) Valid() bool {
	return validCampaignStatuses[s]
}

// Account is an ad-platform account (customer) owned by a user.
type Account struct {
	ID                string    `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Name              string    `json:"name"`
	Platform          string    `json:"platform"`
	RefreshToken      string    `json:"-"`
	MonitoringEnabled bool      `json:"monitoring_enabled"`
	CreatedAt         time.Time `json:"created_at"`
}

// Campaign is a point-in-time snapshot of a campaign read from the campaigns cache.
type Campaign struct {
	ID              string         `json:"id"`
	AccountID       string         `json:"account_id"`
	Name            string         `json:"name"`
	Status          CampaignStatus `json:"status"`
	DailyBudget     Micros         `json:"daily_budget_micros"`
	Cost            Micros         `json:"cost_micros"`
	Clicks          int64          `json:"clicks"`
	Impressions     int64          `json:"impressions"`
	Conversions     float64        `json:"conversions"`
	ConversionValue Micros         `json:"conversion_value_micros"`
	CachedAt        time.Time      `json:"cached_at"`
}

// Validate checks the invariants a snapshot must hold before it is evaluated.
func (c *Campaign) Validate() error {
	if c.ID == "" {
		return errors.New("campaign id is required")
	}
	if c.AccountID == "" {
		return errors.New("account id is required")
	}
	if !c.Status.Valid() {
		return errors.New("invalid campaign status")
	}
	if c.DailyBudget < 0 || c.Cost < 0 {
		return errors.New("monetary amounts must not be negative")
	}
	return nil
}

// IsActive reports whether the campaign is currently delivering.
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignActive
}

// IsFresh reports whether the snapshot was cached within window of now.
func (c *Campaign) IsFresh(now time.Time, window time.Duration) bool {
	if c.CachedAt.IsZero() {
		return false
	}
	return now.Sub(c.CachedAt) <= window
}

// CurrentMetrics derives CPA, CTR and ROAS from the snapshot counters.
// A metric is nil when its denominator is zero.
func (c *Campaign) CurrentMetrics() Metrics {
	var m Metrics
	cost := c.Cost.Units()

	if c.Conversions > 0 {
		cpa := cost / c.Conversions
		m.CPA = &cpa
	}
	if c.Impressions > 0 {
		ctr := float64(c.Clicks) / float64(c.Impressions) * 100
		m.CTR = &ctr
	}
	if c.Cost > 0 {
		roas := c.ConversionValue.Units() / cost
		m.ROAS = &roas
	}

	return m
}

// Metrics holds the performance ratios the anomaly detector looks at.
type Metrics struct {
	CPA  *float64 `json:"cpa"`
	CTR  *float64 `json:"ctr"`
	ROAS *float64 `json:"roas"`
}

// MetricPoint is one prior period of a campaign's metrics.
type MetricPoint struct {
	Period time.Time `json:"period"`
	Metrics
}
