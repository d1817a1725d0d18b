// Package analysis runs every detector against a single campaign on demand.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/anomaly"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/budget"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/recommend"
)

const historyPoints = 7

type AccountGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

type CampaignReader interface {
	Get(ctx context.Context, accountID, campaignID string) (*domain.Campaign, error)
	ListHistory(ctx context.Context, accountID, campaignID string, limit int) ([]domain.MetricPoint, error)
}

type InsightStore interface {
	Upsert(ctx context.Context, in *domain.Insight) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Insight, error)
}

// Recommender never fails; see recommend.Safe.
type Recommender interface {
	Generate(ctx context.Context, data recommend.CampaignData) []recommend.Recommendation
}

type Result struct {
	AccountID       string                     `json:"account_id"`
	CampaignID      string                     `json:"campaign_id"`
	Metrics         domain.Metrics             `json:"metrics"`
	SpendPercent    *float64                   `json:"spend_percent,omitempty"`
	Insights        []*domain.Insight          `json:"insights"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

type Service struct {
	accounts    AccountGetter
	campaigns   CampaignReader
	insights    InsightStore
	recommender Recommender
	logger      *slog.Logger
	timeout     time.Duration
}

func NewService(accounts AccountGetter, campaigns CampaignReader, insights InsightStore, recommender Recommender, logger *slog.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		accounts:    accounts,
		campaigns:   campaigns,
		insights:    insights,
		recommender: recommender,
		logger:      logger,
		timeout:     timeout,
	}
}

// Analyze evaluates one campaign and upserts every resulting insight. At most
// one insight per type is stored, so only the top recommendation is persisted;
// all of them are returned.
func (s *Service) Analyze(ctx context.Context, accountID, campaignID string) (*Result, error) {
	account, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (*domain.Account, error) {
		return s.accounts.GetByID(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}

	campaign, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (*domain.Campaign, error) {
		return s.campaigns.Get(ctx, accountID, campaignID)
	})
	if err != nil {
		return nil, err
	}

	history, err := withTimeout(ctx, s.timeout, func(ctx context.Context) ([]domain.MetricPoint, error) {
		return s.campaigns.ListHistory(ctx, accountID, campaignID, historyPoints)
	})
	if err != nil {
		return nil, fmt.Errorf("load metric history: %w", err)
	}

	result := &Result{
		AccountID:       accountID,
		CampaignID:      campaignID,
		Metrics:         campaign.CurrentMetrics(),
		Insights:        []*domain.Insight{},
		Recommendations: []recommend.Recommendation{},
	}
	if pct, ok := budget.SpendPercent(campaign.Cost, campaign.DailyBudget); ok {
		result.SpendPercent = &pct
	}

	var found []*domain.Insight
	if in := budget.Detect(campaign, account.UserID); in != nil {
		found = append(found, in)
	}
	if f, ok := anomaly.MostSevere(anomaly.Detect(result.Metrics, history)); ok {
		found = append(found, f.Insight(account.UserID, accountID, campaignID))
	}

	if s.recommender != nil {
		recs := s.recommender.Generate(ctx, recommend.CampaignData{
			Campaign:     campaign,
			Current:      result.Metrics,
			History:      history,
			SpendPercent: result.SpendPercent,
		})
		if len(recs) > 0 {
			result.Recommendations = recs
			found = append(found, topRecommendation(recs).Insight(account.UserID, accountID, campaignID))
		}
	}

	for _, in := range found {
		if err := s.record(ctx, in); err != nil {
			return nil, err
		}
		result.Insights = append(result.Insights, in)
	}

	s.logger.Info("campaign analyzed",
		"account_id", accountID,
		"campaign_id", campaignID,
		"insights", len(result.Insights),
		"recommendations", len(result.Recommendations),
	)

	return result, nil
}

func (s *Service) ListInsights(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Insight, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return withTimeout(ctx, s.timeout, func(ctx context.Context) ([]*domain.Insight, error) {
		return s.insights.ListByUser(ctx, userID, limit)
	})
}

func (s *Service) record(ctx context.Context, in *domain.Insight) error {
	_, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.insights.Upsert(ctx, in)
	})
	if err != nil {
		return fmt.Errorf("record %s insight: %w", in.Type, err)
	}
	return nil
}

func topRecommendation(recs []recommend.Recommendation) recommend.Recommendation {
	rank := func(r recommend.Recommendation) int {
		return r.Insight(uuid.Nil, "", "").Severity.Rank()
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if rank(r) > rank(best) {
			best = r
		}
	}
	return best
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
