package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/analysis"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type mockAnalyzer struct{ mock.Mock }

func (m *mockAnalyzer) Analyze(ctx context.Context, accountID, campaignID string) (*analysis.Result, error) {
	args := m.Called(ctx, accountID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Result), args.Error(1)
}

func (m *mockAnalyzer) ListInsights(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Insight, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Insight), args.Error(1)
}

func newAnalysisApp(a Analyzer) *fiber.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewAnalysisHandler(a, logger)
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logger)})
	app.Post("/v1/accounts/:account_id/campaigns/:campaign_id/analyze", h.Analyze)
	app.Get("/v1/insights", h.ListInsights)
	return app
}

func TestAnalysisHandler_Analyze(t *testing.T) {
	tests := []struct {
		name       string
		result     *analysis.Result
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			result: &analysis.Result{
				AccountID:  "111",
				CampaignID: "222",
				Insights:   []*domain.Insight{{Type: domain.InsightBudgetOverspend, Title: "Budget Overspend"}},
			},
			wantStatus: 200,
		},
		{name: "unknown campaign", err: domain.ErrCampaignNotFound, wantStatus: 404, wantCode: "CAMPAIGN_NOT_FOUND"},
		{name: "store failure is hidden", err: errors.New("pq: relation missing"), wantStatus: 500, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &mockAnalyzer{}
			a.On("Analyze", mock.Anything, "111", "222").Return(tt.result, tt.err)

			resp, err := newAnalysisApp(a).Test(httptest.NewRequest("POST", "/v1/accounts/111/campaigns/222/analyze", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				var body middleware.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body.Error)
				assert.NotContains(t, body.Message, "pq:")
				return
			}

			var got analysis.Result
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			require.Len(t, got.Insights, 1)
			assert.Equal(t, "Budget Overspend", got.Insights[0].Title)
		})
	}
}

func TestAnalysisHandler_ListInsights(t *testing.T) {
	t.Run("lists with limit", func(t *testing.T) {
		userID := uuid.New()
		a := &mockAnalyzer{}
		a.On("ListInsights", mock.Anything, userID, 10).Return([]*domain.Insight{{UserID: userID}}, nil)

		resp, err := newAnalysisApp(a).Test(httptest.NewRequest("GET", "/v1/insights?user_id="+userID.String()+"&limit=10", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got InsightListResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 1, got.Count)
		a.AssertExpectations(t)
	})

	t.Run("empty list encodes as array", func(t *testing.T) {
		userID := uuid.New()
		a := &mockAnalyzer{}
		a.On("ListInsights", mock.Anything, userID, 50).Return(nil, nil)

		resp, err := newAnalysisApp(a).Test(httptest.NewRequest("GET", "/v1/insights?user_id="+userID.String(), nil))
		require.NoError(t, err)

		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"insights":[],"count":0}`, string(body))
	})

	t.Run("rejects malformed user id", func(t *testing.T) {
		a := &mockAnalyzer{}

		resp, err := newAnalysisApp(a).Test(httptest.NewRequest("GET", "/v1/insights?user_id=abc", nil))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
		a.AssertNotCalled(t, "ListInsights", mock.Anything, mock.Anything, mock.Anything)
	})
}
