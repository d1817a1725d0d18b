package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Security
	CronSecret string `envconfig:"CRON_SECRET" required:"true"`
	APISecret  string `envconfig:"API_SECRET"`

	// Monitor
	DemoCampaignPrefix string        `envconfig:"DEMO_CAMPAIGN_PREFIX" default:"[DEMO]"`
	FreshnessWindow    time.Duration `envconfig:"FRESHNESS_WINDOW" default:"10m"`
	CallTimeout        time.Duration `envconfig:"CALL_TIMEOUT" default:"15s"`
	MonitorInterval    time.Duration `envconfig:"MONITOR_INTERVAL" default:"0s"`
	Timezone           string        `envconfig:"TIMEZONE" default:"UTC"`

	// Run lock
	RedisURL   string        `envconfig:"REDIS_URL"`
	RunLockTTL time.Duration `envconfig:"RUN_LOCK_TTL" default:"4m"`

	// Budget event webhook
	AlertWebhookURL    string `envconfig:"ALERT_WEBHOOK_URL"`
	AlertWebhookSecret string `envconfig:"ALERT_WEBHOOK_SECRET"`

	// Google Ads
	GoogleAds GoogleAdsConfig `envconfig:"GOOGLE_ADS"`

	// Recommendations
	BedrockModelID         string        `envconfig:"BEDROCK_MODEL_ID"`
	AWSRegion              string        `envconfig:"AWS_REGION" default:"us-east-1"`
	RecommendationCacheTTL time.Duration `envconfig:"RECOMMENDATION_CACHE_TTL" default:"1h"`
}

type GoogleAdsConfig struct {
	DeveloperToken  string `envconfig:"DEVELOPER_TOKEN"`
	ClientID        string `envconfig:"CLIENT_ID"`
	ClientSecret    string `envconfig:"CLIENT_SECRET"`
	LoginCustomerID string `envconfig:"LOGIN_CUSTOMER_ID"`
	APIVersion      string `envconfig:"API_VERSION" default:"v17"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// DatabaseConfig is the subset cmd/migrate needs, so migrations run without
// the API secrets.
type DatabaseConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	Environment string `envconfig:"ENV" default:"development"`
}

func LoadDatabase() (*DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	return &cfg, nil
}

// Location is the zone that decides where one alert day ends and the next begins.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) RecommendationsEnabled() bool {
	return c.BedrockModelID != ""
}
