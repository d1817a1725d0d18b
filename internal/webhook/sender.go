// Package webhook delivers signed budget events to an operator-configured URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	EventBudgetWarning      = "budget.warning"
	EventCampaignAutoPaused = "campaign.auto_paused"
)

type Event struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	UserID       uuid.UUID `json:"user_id"`
	AccountID    string    `json:"account_id"`
	CampaignID   string    `json:"campaign_id"`
	CampaignName string    `json:"campaign_name"`
	SpendMicros  int64     `json:"spend_micros"`
	BudgetMicros int64     `json:"budget_micros"`
	SpendPercent float64   `json:"spend_percent"`
	AlertDate    string    `json:"alert_date"`
	Timestamp    time.Time `json:"timestamp"`
}

type Config struct {
	URL         string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	// RetryBase is the first backoff delay; each retry doubles it.
	RetryBase time.Duration
}

type Sender struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &Sender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Notify posts e, retrying 5xx and transport failures with exponential
// backoff. 4xx responses are not retried.
func (s *Sender) Notify(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.cfg.RetryBase<<(attempt-1)); err != nil {
				return fmt.Errorf("deliver %s: %w", e.Type, lastErr)
			}
		}

		retry, err := s.post(ctx, e, payload)
		if err == nil {
			s.logger.Debug("webhook delivered", "event_id", e.ID, "type", e.Type, "attempts", attempt+1)
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
		s.logger.Warn("webhook delivery failed, retrying", "event_id", e.ID, "attempt", attempt+1, "error", err)
	}

	return fmt.Errorf("deliver %s: %w", e.Type, lastErr)
}

func (s *Sender) post(ctx context.Context, e Event, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "AdPilot-Webhook/1.0")
	req.Header.Set("X-AdPilot-Event", e.Type)
	req.Header.Set("X-AdPilot-Delivery", e.ID.String())
	if s.cfg.Secret != "" {
		req.Header.Set("X-AdPilot-Signature", Sign(s.cfg.Secret, s.now(), payload))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return true, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
