package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type AccountRepository struct {
	db DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// ListMonitored returns every account with budget monitoring switched on.
func (r *AccountRepository) ListMonitored(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT id, user_id, name, platform, refresh_token, monitoring_enabled, created_at
		FROM ad_accounts
		WHERE monitoring_enabled = true
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list monitored accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Name, &a.Platform,
			&a.RefreshToken, &a.MonitoringEnabled, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}

	return accounts, rows.Err()
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, user_id, name, platform, refresh_token, monitoring_enabled, created_at
		FROM ad_accounts
		WHERE id = $1
	`

	var a domain.Account
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Name, &a.Platform,
		&a.RefreshToken, &a.MonitoringEnabled, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &a, nil
}
