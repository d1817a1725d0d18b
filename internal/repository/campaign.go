package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

const campaignColumns = `
	campaign_id, account_id, name, status, daily_budget_micros, cost_micros,
	clicks, impressions, conversions, conversion_value_micros, cached_at
`

type CampaignRepository struct {
	db DB
}

func NewCampaignRepository(db DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// ListCached returns the cached snapshots of an account whose name starts with
// namePrefix and that were refreshed at or after since.
func (r *CampaignRepository) ListCached(ctx context.Context, accountID, namePrefix string, since time.Time) ([]*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns_cache
		WHERE account_id = $1 AND name LIKE $2 AND cached_at >= $3
		ORDER BY campaign_id
	`

	rows, err := r.db.Query(ctx, query, accountID, likePrefix(namePrefix), since)
	if err != nil {
		return nil, fmt.Errorf("list cached campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, rows.Err()
}

func (r *CampaignRepository) Get(ctx context.Context, accountID, campaignID string) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns_cache
		WHERE account_id = $1 AND campaign_id = $2
	`

	c, err := scanCampaign(r.db.QueryRow(ctx, query, accountID, campaignID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}

	return c, nil
}

// UpdateStatus records a lifecycle change on the cached snapshot.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, accountID, campaignID string, status domain.CampaignStatus) error {
	query := `
		UPDATE campaigns_cache
		SET status = $3
		WHERE account_id = $1 AND campaign_id = $2
	`

	result, err := r.db.Exec(ctx, query, accountID, campaignID, string(status))
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}

	return nil
}

// ListHistory returns up to limit prior periods, oldest first.
func (r *CampaignRepository) ListHistory(ctx context.Context, accountID, campaignID string, limit int) ([]domain.MetricPoint, error) {
	query := `
		SELECT period, cpa, ctr, roas
		FROM campaign_metrics_history
		WHERE account_id = $1 AND campaign_id = $2
		ORDER BY period DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, accountID, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("list metric history: %w", err)
	}
	defer rows.Close()

	var points []domain.MetricPoint
	for rows.Next() {
		var p domain.MetricPoint
		if err := rows.Scan(&p.Period, &p.CPA, &p.CTR, &p.ROAS); err != nil {
			return nil, fmt.Errorf("scan metric point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c                       domain.Campaign
		status                  string
		budget, cost, convValue int64
	)

	err := row.Scan(
		&c.ID, &c.AccountID, &c.Name, &status, &budget, &cost,
		&c.Clicks, &c.Impressions, &c.Conversions, &convValue, &c.CachedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	c.Status = domain.CampaignStatus(status)
	c.DailyBudget = domain.Micros(budget)
	c.Cost = domain.Micros(cost)
	c.ConversionValue = domain.Micros(convValue)

	return &c, nil
}
