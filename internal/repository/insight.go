package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type InsightRepository struct {
	db DB
}

func NewInsightRepository(db DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Upsert stores the insight keyed by (user, account, campaign, type). A repeat
// detection overwrites the content of the existing row and surfaces it again.
func (r *InsightRepository) Upsert(ctx context.Context, in *domain.Insight) error {
	metadata, err := json.Marshal(in.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.SuggestedActions == nil {
		in.SuggestedActions = []string{}
	}

	query := `
		INSERT INTO insights (
			id, user_id, account_id, campaign_id, type, severity,
			title, message, suggested_actions, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT insights_dedup DO UPDATE
		SET severity = EXCLUDED.severity,
		    title = EXCLUDED.title,
		    message = EXCLUDED.message,
		    suggested_actions = EXCLUDED.suggested_actions,
		    metadata = EXCLUDED.metadata,
		    dismissed = false,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		in.ID, in.UserID, in.AccountID, in.CampaignID, string(in.Type), string(in.Severity),
		in.Title, in.Message, in.SuggestedActions, metadata,
	).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert insight: %w", err)
	}

	in.Dismissed = false
	return nil
}

// ListByUser returns a user's undismissed insights, newest first.
func (r *InsightRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Insight, error) {
	query := `
		SELECT id, user_id, account_id, campaign_id, type, severity, title, message,
		       suggested_actions, metadata, dismissed, created_at, updated_at
		FROM insights
		WHERE user_id = $1 AND dismissed = false
		ORDER BY updated_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var insights []*domain.Insight
	for rows.Next() {
		var (
			in            domain.Insight
			typ, severity string
			metadata      []byte
		)

		if err := rows.Scan(
			&in.ID, &in.UserID, &in.AccountID, &in.CampaignID, &typ, &severity,
			&in.Title, &in.Message, &in.SuggestedActions, &metadata,
			&in.Dismissed, &in.CreatedAt, &in.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}

		in.Type = domain.InsightType(typ)
		in.Severity = domain.Severity(severity)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &in.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}

		insights = append(insights, &in)
	}

	return insights, rows.Err()
}
