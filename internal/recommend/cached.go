package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/cache"
)

// Cache is the subset of cache.PGCache the decorator needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cached reuses a previous answer while the campaign numbers are unchanged.
// Cache failures degrade to calling the wrapped generator.
type Cached struct {
	gen    Generator
	store  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(gen Generator, store Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{gen: gen, store: store, ttl: ttl, logger: logger}
}

func (c *Cached) Generate(ctx context.Context, data CampaignData) ([]Recommendation, error) {
	key, err := cacheKey(data)
	if err != nil {
		return c.gen.Generate(ctx, data)
	}

	if raw, err := c.store.Get(ctx, key); err == nil {
		var recs []Recommendation
		if err := json.Unmarshal(raw, &recs); err == nil {
			return recs, nil
		}
		c.logger.Warn("discarding unreadable cached recommendations", "key", key)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("recommendation cache read failed", "error", err)
	}

	recs, err := c.gen.Generate(ctx, data)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(recs)
	if err == nil {
		err = c.store.Set(ctx, key, raw, c.ttl)
	}
	if err != nil {
		c.logger.Warn("recommendation cache write failed", "error", err)
	}

	return recs, nil
}

// fingerprint leaves out CachedAt so a refreshed but unchanged snapshot hits.
type fingerprint struct {
	AccountID    string
	CampaignID   string
	Status       string
	Budget       int64
	Cost         int64
	Clicks       int64
	Impressions  int64
	Conversions  float64
	Value        int64
	History      any
	SpendPercent *float64
}

func cacheKey(data CampaignData) (string, error) {
	if data.Campaign == nil {
		return "", errors.New("no campaign")
	}
	c := data.Campaign
	raw, err := json.Marshal(fingerprint{
		AccountID:    c.AccountID,
		CampaignID:   c.ID,
		Status:       string(c.Status),
		Budget:       int64(c.DailyBudget),
		Cost:         int64(c.Cost),
		Clicks:       c.Clicks,
		Impressions:  c.Impressions,
		Conversions:  c.Conversions,
		Value:        int64(c.ConversionValue),
		History:      data.History,
		SpendPercent: data.SpendPercent,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("rec:%s:%s:%s", c.AccountID, c.ID, hex.EncodeToString(sum[:12])), nil
}
