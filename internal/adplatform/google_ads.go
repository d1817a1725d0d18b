package adplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

const (
	defaultBaseURL    = "https://googleads.googleapis.com"
	defaultAPIVersion = "v17"
	adsScope          = "https://www.googleapis.com/auth/adwords"
	maxErrorBody      = 4 << 10
)

type GoogleAdsConfig struct {
	DeveloperToken  string
	ClientID        string
	ClientSecret    string
	LoginCustomerID string
	APIVersion      string
	BaseURL         string
	// TokenURL overrides Google's OAuth token endpoint.
	TokenURL string
	Timeout  time.Duration
}

// GoogleAdsClient pauses campaigns through the Google Ads REST API using the
// account's stored OAuth refresh token.
type GoogleAdsClient struct {
	cfg    GoogleAdsConfig
	oauth  *oauth2.Config
	client *http.Client
	logger *slog.Logger
}

func NewGoogleAdsClient(cfg GoogleAdsConfig, logger *slog.Logger) *GoogleAdsClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: cfg.TokenURL}
	}

	return &GoogleAdsClient{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{adsScope},
		},
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type mutateRequest struct {
	Operations []campaignOperation `json:"operations"`
}

type campaignOperation struct {
	UpdateMask string         `json:"updateMask"`
	Update     campaignUpdate `json:"update"`
}

type campaignUpdate struct {
	ResourceName string `json:"resourceName"`
	Status       string `json:"status"`
}

func (c *GoogleAdsClient) PauseCampaign(ctx context.Context, account *domain.Account, campaignID string) error {
	if account.RefreshToken == "" {
		return fmt.Errorf("account %s has no refresh token", account.ID)
	}

	customerID := normalizeCustomerID(account.ID)
	payload, err := json.Marshal(mutateRequest{
		Operations: []campaignOperation{{
			UpdateMask: "status",
			Update: campaignUpdate{
				ResourceName: fmt.Sprintf("customers/%s/campaigns/%s", customerID, campaignID),
				Status:       "PAUSED",
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal mutate request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/customers/%s/campaigns:mutate", c.cfg.BaseURL, c.cfg.APIVersion, customerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("developer-token", c.cfg.DeveloperToken)
	if c.cfg.LoginCustomerID != "" {
		req.Header.Set("login-customer-id", normalizeCustomerID(c.cfg.LoginCustomerID))
	}

	resp, err := c.httpClient(ctx, account).Do(req)
	if err != nil {
		return fmt.Errorf("pause campaign %s: %w", campaignID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	c.logger.Info("campaign paused on ad platform",
		"account_id", account.ID,
		"campaign_id", campaignID,
	)

	return nil
}

func (c *GoogleAdsClient) httpClient(ctx context.Context, account *domain.Account) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	ts := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken})

	client := oauth2.NewClient(ctx, ts)
	client.Timeout = c.cfg.Timeout
	return client
}

// normalizeCustomerID strips the dashes of the "123-456-7890" display form.
func normalizeCustomerID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
