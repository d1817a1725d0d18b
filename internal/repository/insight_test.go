package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

// InsightRepository Tests

func TestInsightRepository_Upsert(t *testing.T) {
	userID := uuid.New()
	existingID := uuid.New()
	created := time.Now().Add(-time.Hour)
	updated := time.Now()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	in := domain.NewCampaignInsight(userID, "acc", "X", domain.InsightBudgetOverspend, domain.SeverityCritical,
		"Budget Warning", "msg", domain.ActionMonitor)
	in.Metadata = map[string]interface{}{"spend_percent": 95.0}

	// the conflict path returns the id of the row that already existed
	mock.ExpectQuery(`INSERT INTO insights (.+) ON CONFLICT ON CONSTRAINT insights_dedup DO UPDATE SET (.+) dismissed = false, updated_at = NOW\(\) RETURNING id, created_at, updated_at`).
		WithArgs(pgxmock.AnyArg(), userID, in.AccountID, in.CampaignID, "budget_overspend", "critical",
			"Budget Warning", "msg", []string{"monitor"}, []byte(`{"spend_percent":95}`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(existingID, created, updated))

	err = NewInsightRepository(mock).Upsert(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, existingID, in.ID)
	assert.Equal(t, created, in.CreatedAt)
	assert.Equal(t, updated, in.UpdatedAt)
	assert.False(t, in.Dismissed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsightRepository_Upsert_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO insights`).
		WillReturnError(errors.New("database connection error"))

	in := domain.NewCampaignInsight(uuid.New(), "acc", "X", domain.InsightAlert, domain.SeverityInfo, "t", "m")
	err = NewInsightRepository(mock).Upsert(context.Background(), in)
	assert.ErrorContains(t, err, "upsert insight")
}

func TestInsightRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	acc, camp := "acc", "X"
	now := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "account_id", "campaign_id", "type", "severity", "title", "message",
		"suggested_actions", "metadata", "dismissed", "created_at", "updated_at",
	}).
		AddRow(uuid.New(), userID, &acc, &camp, "performance_anomaly", "opportunity", "CTR Surge", "m",
			[]string{"increase_budget"}, []byte(`{"z_score":2.5}`), false, now, now).
		AddRow(uuid.New(), userID, nil, nil, "alert", "info", "Heads up", "m",
			[]string{}, []byte(nil), false, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM insights WHERE user_id = \$1 AND dismissed = false ORDER BY updated_at DESC LIMIT \$2`).
		WithArgs(userID, 20).
		WillReturnRows(rows)

	insights, err := NewInsightRepository(mock).ListByUser(context.Background(), userID, 20)
	require.NoError(t, err)
	require.Len(t, insights, 2)

	assert.Equal(t, domain.InsightPerformanceAnomaly, insights[0].Type)
	assert.Equal(t, domain.SeverityOpportunity, insights[0].Severity)
	require.NotNil(t, insights[0].CampaignID)
	assert.Equal(t, "X", *insights[0].CampaignID)
	assert.Equal(t, 2.5, insights[0].Metadata["z_score"])

	assert.Nil(t, insights[1].AccountID)
	assert.Nil(t, insights[1].Metadata)

	assert.NoError(t, mock.ExpectationsWereMet())
}
