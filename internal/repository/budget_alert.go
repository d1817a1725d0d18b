package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type BudgetAlertRepository struct {
	db DB
}

func NewBudgetAlertRepository(db DB) *BudgetAlertRepository {
	return &BudgetAlertRepository{db: db}
}

// FindForDay returns the alert of the given type raised for a campaign on day,
// or nil when none exists.
func (r *BudgetAlertRepository) FindForDay(ctx context.Context, accountID, campaignID string, alertType domain.AlertType, day time.Time) (*domain.BudgetAlert, error) {
	query := `
		SELECT id, account_id, campaign_id, alert_type, threshold, spend_micros,
		       budget_micros, action_taken, auto_paused, alert_date, created_at
		FROM budget_alerts
		WHERE account_id = $1 AND campaign_id = $2 AND alert_type = $3 AND alert_date = $4
	`

	var (
		a             domain.BudgetAlert
		typ, action   string
		spend, budget int64
	)
	err := r.db.QueryRow(ctx, query, accountID, campaignID, string(alertType), day).Scan(
		&a.ID, &a.AccountID, &a.CampaignID, &typ, &a.Threshold, &spend,
		&budget, &action, &a.AutoPaused, &a.AlertDate, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find budget alert: %w", err)
	}

	a.AlertType = domain.AlertType(typ)
	a.ActionTaken = domain.AlertAction(action)
	a.SpendMicros = domain.Micros(spend)
	a.BudgetMicros = domain.Micros(budget)

	return &a, nil
}

// Create inserts the alert unless one already exists for the same
// (account, campaign, type, day). It reports whether a row was written.
func (r *BudgetAlertRepository) Create(ctx context.Context, a *domain.BudgetAlert) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO budget_alerts (
			id, account_id, campaign_id, alert_type, threshold, spend_micros,
			budget_micros, action_taken, auto_paused, alert_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id, campaign_id, alert_type, alert_date) DO NOTHING
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.AccountID, a.CampaignID, string(a.AlertType), a.Threshold, int64(a.SpendMicros),
		int64(a.BudgetMicros), string(a.ActionTaken), a.AutoPaused, a.AlertDate,
	).Scan(&a.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create budget alert: %w", err)
	}

	return true, nil
}

// MarkAutoPaused flips an existing alert to auto_paused. It reports false when
// the alert was already marked by someone else.
func (r *BudgetAlertRepository) MarkAutoPaused(ctx context.Context, id uuid.UUID, spend domain.Micros) (bool, error) {
	query := `
		UPDATE budget_alerts
		SET auto_paused = true, action_taken = $2, spend_micros = $3
		WHERE id = $1 AND auto_paused = false
	`

	result, err := r.db.Exec(ctx, query, id, string(domain.ActionAutoPaused), int64(spend))
	if err != nil {
		return false, fmt.Errorf("mark budget alert auto paused: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
