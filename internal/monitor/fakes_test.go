package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/runlock"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/webhook"
)

// store is an in-memory stand-in for the repositories, including the
// per-day uniqueness of budget alerts and the per-key upsert of insights.
type store struct {
	mu sync.Mutex

	accounts    []*domain.Account
	campaigns   []*domain.Campaign
	history     map[string][]domain.MetricPoint
	alerts      []*domain.BudgetAlert
	insights    map[string]*domain.Insight
	upserts     int
	accountsErr error
	listErr     map[string]error
	historyErr  map[string]error

	// failUpserts makes the next n Upsert calls fail.
	failUpserts int
	// hideAlertsOnce makes the next FindForDay miss, as if another run
	// inserted the row right after this one looked.
	hideAlertsOnce bool
}

func newStore() *store {
	return &store{
		history:    map[string][]domain.MetricPoint{},
		insights:   map[string]*domain.Insight{},
		listErr:    map[string]error{},
		historyErr: map[string]error{},
	}
}

func (s *store) ListMonitored(ctx context.Context) ([]*domain.Account, error) {
	if s.accountsErr != nil {
		return nil, s.accountsErr
	}
	return s.accounts, nil
}

// ListCached ignores since so the in-code freshness guard is exercised.
func (s *store) ListCached(ctx context.Context, accountID, namePrefix string, since time.Time) ([]*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.listErr[accountID]; err != nil {
		return nil, err
	}
	var out []*domain.Campaign
	for _, c := range s.campaigns {
		if c.AccountID == accountID && strings.HasPrefix(c.Name, namePrefix) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *store) UpdateStatus(ctx context.Context, accountID, campaignID string, status domain.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.campaigns {
		if c.AccountID == accountID && c.ID == campaignID {
			c.Status = status
			return nil
		}
	}
	return domain.ErrCampaignNotFound
}

func (s *store) ListHistory(ctx context.Context, accountID, campaignID string, limit int) ([]domain.MetricPoint, error) {
	if err := s.historyErr[campaignID]; err != nil {
		return nil, err
	}
	return s.history[campaignID], nil
}

func (s *store) FindForDay(ctx context.Context, accountID, campaignID string, alertType domain.AlertType, day time.Time) (*domain.BudgetAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hideAlertsOnce {
		s.hideAlertsOnce = false
		return nil, nil
	}
	for _, a := range s.alerts {
		if a.AccountID == accountID && a.CampaignID == campaignID && a.AlertType == alertType && a.AlertDate.Equal(day) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *store) Create(ctx context.Context, a *domain.BudgetAlert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.alerts {
		if existing.AccountID == a.AccountID && existing.CampaignID == a.CampaignID &&
			existing.AlertType == a.AlertType && existing.AlertDate.Equal(a.AlertDate) {
			return false, nil
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	s.alerts = append(s.alerts, &cp)
	return true, nil
}

func (s *store) MarkAutoPaused(ctx context.Context, id uuid.UUID, spend domain.Micros) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id && !a.AutoPaused {
			a.AutoPaused = true
			a.ActionTaken = domain.ActionAutoPaused
			a.SpendMicros = spend
			return true, nil
		}
	}
	return false, nil
}

func (s *store) Upsert(ctx context.Context, in *domain.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpserts > 0 {
		s.failUpserts--
		return errors.New("insights: connection reset")
	}

	key := fmt.Sprintf("%s|%s|%s|%s", in.UserID, deref(in.AccountID), deref(in.CampaignID), in.Type)
	s.insights[key] = in
	s.upserts++
	return nil
}

func (s *store) insightsFor(campaignID string) []*domain.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Insight
	for _, in := range s.insights {
		if deref(in.CampaignID) == campaignID {
			out = append(out, in)
		}
	}
	return out
}

func (s *store) alertsFor(campaignID string) []*domain.BudgetAlert {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.BudgetAlert
	for _, a := range s.alerts {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type fakePauser struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	blocks bool
}

func (p *fakePauser) PauseCampaign(ctx context.Context, account *domain.Account, campaignID string) error {
	p.mu.Lock()
	p.calls = append(p.calls, campaignID)
	err := p.fail[campaignID]
	p.mu.Unlock()

	if p.blocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (p *fakePauser) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type heldLocker struct{}

func (heldLocker) TryAcquire(context.Context) (runlock.Lease, error) { return nil, nil }

type brokenLocker struct{}

func (brokenLocker) TryAcquire(context.Context) (runlock.Lease, error) {
	return nil, errors.New("redis: connection refused")
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []webhook.Event
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, e webhook.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *fakeNotifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type+":"+e.CampaignID)
	}
	return types
}
