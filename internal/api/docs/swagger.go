package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error" example:"UNAUTHORIZED"`
	Message string `json:"message" example:"Invalid or missing bearer token"`
}

// MonitorSummaryResponse is the outcome of one budget monitor run
type MonitorSummaryResponse struct {
	Checked         int      `json:"checked" example:"2"`
	AlertsTriggered int      `json:"alerts_triggered" example:"1"`
	CampaignsPaused int      `json:"campaigns_paused" example:"1"`
	Errors          []string `json:"errors" example:"[]"`
	Skipped         bool     `json:"skipped,omitempty" example:"false"`
}

// InsightResponse represents one stored insight
type InsightResponse struct {
	ID               string                 `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	UserID           string                 `json:"user_id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	AccountID        string                 `json:"account_id,omitempty" example:"1234567890"`
	CampaignID       string                 `json:"campaign_id,omitempty" example:"987654321"`
	Type             string                 `json:"type" example:"budget_overspend"`
	Severity         string                 `json:"severity" example:"critical"`
	Title            string                 `json:"title" example:"Budget Overspend"`
	Message          string                 `json:"message" example:"Campaign \"[DEMO] Search\" has spent $1340.00 against a daily budget of $500.00 (168.0% over budget)."`
	SuggestedActions []string               `json:"suggested_actions" example:"pause_campaign,increase_budget,investigate"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	Dismissed        bool                   `json:"dismissed" example:"false"`
	CreatedAt        string                 `json:"created_at" example:"2026-01-01T00:00:00Z"`
	UpdatedAt        string                 `json:"updated_at" example:"2026-01-01T00:00:00Z"`
}

// RecommendationResponse is one model-generated suggestion
type RecommendationResponse struct {
	Title            string   `json:"title" example:"Shift budget to top keywords"`
	Message          string   `json:"message" example:"Three keywords drive 80% of conversions."`
	Priority         string   `json:"priority" example:"medium"`
	SuggestedActions []string `json:"suggestedActions" example:"increase_budget"`
}

// MetricsResponse holds derived campaign ratios
type MetricsResponse struct {
	CPA  *float64 `json:"cpa" example:"45.5"`
	CTR  *float64 `json:"ctr" example:"3.2"`
	ROAS *float64 `json:"roas" example:"2.1"`
}

// AnalysisResponse is the result of analyzing one campaign
type AnalysisResponse struct {
	AccountID       string                   `json:"account_id" example:"1234567890"`
	CampaignID      string                   `json:"campaign_id" example:"987654321"`
	Metrics         MetricsResponse          `json:"metrics"`
	SpendPercent    *float64                 `json:"spend_percent,omitempty" example:"268"`
	Insights        []InsightResponse        `json:"insights"`
	Recommendations []RecommendationResponse `json:"recommendations"`
}

// InsightListResponse wraps a user's open insights
type InsightListResponse struct {
	Insights []InsightResponse `json:"insights"`
	Count    int               `json:"count" example:"1"`
}

// HealthResponse is returned by the probes
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

var internalError = response.New(ErrorResponse{Error: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "AdPilot Budget Monitor API",
		Version:     "v1.0.0",
		Description: "Watches ad campaigns for budget overspend and performance anomalies, records insights and auto-pauses exhausted campaigns",
		Host:        "localhost:3000",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// GET /api/cron/budget-monitor - Scheduled run
		endpoint.New(
			endpoint.GET,
			"/api/cron/budget-monitor",
			endpoint.WithTags("Monitor"),
			endpoint.WithSummary("Run the budget monitor"),
			endpoint.WithDescription("Evaluates every fresh demo campaign of every monitored account. Called by the external scheduler every 5 minutes with the cron secret as bearer token."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MonitorSummaryResponse{}, "200", "Run completed or skipped because another run holds the lock"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: "UNAUTHORIZED", Message: "Invalid or missing bearer token"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Error: "MONITOR_FAILED", Message: "list monitored accounts: connection refused"}, "500", "Internal Server Error"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}}),
		),

		// POST /v1/accounts/:account_id/campaigns/:campaign_id/analyze - On-demand analysis
		endpoint.New(
			endpoint.POST,
			"/v1/accounts/{account_id}/campaigns/{campaign_id}/analyze",
			endpoint.WithTags("Analysis"),
			endpoint.WithSummary("Analyze one campaign"),
			endpoint.WithDescription("Runs the budget and anomaly detectors and the recommendation model for a single cached campaign and stores the resulting insights."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("account_id", parameter.Path, parameter.WithDescription("Ad platform customer id")),
				parameter.StrParam("campaign_id", parameter.Path, parameter.WithDescription("Ad platform campaign id")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalysisResponse{}, "200", "Campaign analyzed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: "UNAUTHORIZED", Message: "Invalid or missing bearer token"}, "401", "Unauthorized"),
				response.New(ErrorResponse{Error: "ACCOUNT_NOT_FOUND", Message: "Ad account not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Error: "CAMPAIGN_NOT_FOUND", Message: "Campaign not found"}, "404", "Not Found"),
				internalError,
			}),
			endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}}),
		),

		// GET /v1/insights - Open insights of a user
		endpoint.New(
			endpoint.GET,
			"/v1/insights",
			endpoint.WithTags("Analysis"),
			endpoint.WithSummary("List open insights"),
			endpoint.WithDescription("Returns the undismissed insights of a user, most recently updated first."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("user_id", parameter.Query, parameter.WithDescription("Owning user (UUID)")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of insights (1-100, default: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(InsightListResponse{}, "200", "Insights listed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: "VALIDATION_FAILED", Message: "user_id must be a UUID"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Error: "UNAUTHORIZED", Message: "Invalid or missing bearer token"}, "401", "Unauthorized"),
				internalError,
			}),
			endpoint.WithSecurity([]map[string][]string{{"BearerAuth": {}}}),
		),

		// GET /health - Liveness
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Process is up"),
			}),
		),

		// GET /ready - Readiness
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Pings the database."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{Status: "ready"}, "200", "Database reachable"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: "NOT_READY", Message: "database unreachable"}, "503", "Service Unavailable"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
