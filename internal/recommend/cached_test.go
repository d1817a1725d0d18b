package recommend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/cache"
	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

type memCache struct {
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value
	return nil
}

type countingGenerator struct {
	calls int
	err   error
}

func (g *countingGenerator) Generate(context.Context, CampaignData) ([]Recommendation, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []Recommendation{{Title: "Narrow targeting", Priority: PriorityMedium, SuggestedActions: []string{"add_negatives"}}}, nil
}

func cachedData(cost domain.Micros, cachedAt time.Time) CampaignData {
	return CampaignData{Campaign: &domain.Campaign{
		ID: "c1", AccountID: "a1", Status: domain.CampaignActive,
		DailyBudget: 500_000_000, Cost: cost, CachedAt: cachedAt,
	}}
}

func TestCached_Generate(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t.Run("second call with unchanged numbers is served from cache", func(t *testing.T) {
		gen := &countingGenerator{}
		c := NewCached(gen, newMemCache(), time.Hour, quiet)

		first, err := c.Generate(context.Background(), cachedData(100_000_000, t0))
		require.NoError(t, err)
		second, err := c.Generate(context.Background(), cachedData(100_000_000, t0.Add(5*time.Minute)))
		require.NoError(t, err)

		assert.Equal(t, 1, gen.calls)
		assert.Equal(t, first, second)
	})

	t.Run("changed spend misses", func(t *testing.T) {
		gen := &countingGenerator{}
		c := NewCached(gen, newMemCache(), time.Hour, quiet)

		_, _ = c.Generate(context.Background(), cachedData(100_000_000, t0))
		_, _ = c.Generate(context.Background(), cachedData(120_000_000, t0))

		assert.Equal(t, 2, gen.calls)
	})

	t.Run("generator errors are returned and not cached", func(t *testing.T) {
		gen := &countingGenerator{err: errors.New("throttled")}
		store := newMemCache()
		c := NewCached(gen, store, time.Hour, quiet)

		_, err := c.Generate(context.Background(), cachedData(100_000_000, t0))
		assert.Error(t, err)
		assert.Empty(t, store.entries)
	})

	t.Run("broken cache falls through to the generator", func(t *testing.T) {
		gen := &countingGenerator{}
		store := newMemCache()
		store.getErr = errors.New("db down")
		store.setErr = errors.New("db down")
		c := NewCached(gen, store, time.Hour, quiet)

		recs, err := c.Generate(context.Background(), cachedData(100_000_000, t0))
		require.NoError(t, err)
		assert.Len(t, recs, 1)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("corrupt entry is regenerated", func(t *testing.T) {
		gen := &countingGenerator{}
		store := newMemCache()
		c := NewCached(gen, store, time.Hour, quiet)

		key, err := cacheKey(cachedData(100_000_000, t0))
		require.NoError(t, err)
		store.entries[key] = []byte("not json")

		recs, err := c.Generate(context.Background(), cachedData(100_000_000, t0))
		require.NoError(t, err)
		assert.Len(t, recs, 1)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("no campaign bypasses the cache", func(t *testing.T) {
		gen := &countingGenerator{}
		store := newMemCache()
		c := NewCached(gen, store, time.Hour, quiet)

		_, err := c.Generate(context.Background(), CampaignData{})
		require.NoError(t, err)
		assert.Empty(t, store.entries)
	})
}
