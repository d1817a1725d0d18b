package api

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/analysis"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/monitor"
)

type noopMonitor struct{}

func (noopMonitor) Run(context.Context) (*monitor.Summary, error) {
	return &monitor.Summary{Errors: []string{}}, nil
}

type noopAnalyzer struct{}

func (noopAnalyzer) Analyze(ctx context.Context, accountID, campaignID string) (*analysis.Result, error) {
	return &analysis.Result{AccountID: accountID, CampaignID: campaignID}, nil
}

func (noopAnalyzer) ListInsights(context.Context, uuid.UUID, int) ([]*domain.Insight, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, deps *Dependencies) *Router {
	t.Helper()
	r := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), deps)
	r.Setup()
	t.Cleanup(func() { _ = r.Shutdown() })
	return r
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(t, &Dependencies{
		Monitor:    noopMonitor{},
		Analyzer:   noopAnalyzer{},
		CronSecret: "cron",
		APISecret:  "api",
	})

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "health", method: "GET", path: "/health", wantStatus: 200},
		{name: "ready without db", method: "GET", path: "/ready", wantStatus: 200},
		{name: "cron with cron secret", method: "GET", path: "/api/cron/budget-monitor", token: "cron", wantStatus: 200},
		{name: "cron with api secret", method: "GET", path: "/api/cron/budget-monitor", token: "api", wantStatus: 401},
		{name: "analyze with api secret", method: "POST", path: "/v1/accounts/1/campaigns/2/analyze", token: "api", wantStatus: 200},
		{name: "analyze with cron secret", method: "POST", path: "/v1/accounts/1/campaigns/2/analyze", token: "cron", wantStatus: 401},
		{name: "insights without token", method: "GET", path: "/v1/insights?user_id=" + uuid.NewString(), wantStatus: 401},
		{name: "unknown route", method: "GET", path: "/nope", wantStatus: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			resp, err := r.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRouter_HealthOnlyWithoutDependencies(t *testing.T) {
	r := newTestRouter(t, nil)

	resp, err := r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/api/cron/budget-monitor", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
