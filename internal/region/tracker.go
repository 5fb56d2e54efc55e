// Package region tracks the market region the player is currently on.
package region

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pricenotifier/internal/cache"
)

const cacheKey = "region:current"

// Source yields the current region, or false when it is unknown.
type Source interface {
	CurrentRegion(ctx context.Context) (string, bool)
}

// Tracker stores the region reported by a game-state observer. Observations
// may expire; a configured fallback region is used when none is present.
type Tracker struct {
	cache      cache.Cache
	fallback   string
	defaultTTL time.Duration
	logger     *slog.Logger
}

// NewTracker creates a tracker backed by c. Observations made without a ttl
// expire after defaultTTL; zero keeps them until forgotten.
func NewTracker(c cache.Cache, fallback string, defaultTTL time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		cache:      c,
		fallback:   strings.TrimSpace(fallback),
		defaultTTL: max(defaultTTL, 0),
		logger:     logger.With(slog.String("component", "region")),
	}
}

// Observe records region as current. A zero ttl uses the tracker default.
func (t *Tracker) Observe(ctx context.Context, region string, ttl time.Duration) error {
	region = strings.TrimSpace(region)
	if region == "" {
		return t.Forget(ctx)
	}
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	return t.cache.Set(ctx, cacheKey, []byte(region), ttl)
}

// Forget drops the observed region.
func (t *Tracker) Forget(ctx context.Context) error {
	return t.cache.Delete(ctx, cacheKey)
}

// CurrentRegion returns the observed region, else the fallback.
func (t *Tracker) CurrentRegion(ctx context.Context) (string, bool) {
	data, err := t.cache.Get(ctx, cacheKey)
	switch {
	case err == nil && len(data) > 0:
		return string(data), true
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		t.logger.WarnContext(ctx, "region lookup failed", slog.String("error", err.Error()))
	}
	if t.fallback != "" {
		return t.fallback, true
	}
	return "", false
}

// Static is a Source that always returns the same region.
type Static string

// CurrentRegion returns s, or false when s is empty.
func (s Static) CurrentRegion(context.Context) (string, bool) {
	return string(s), s != ""
}
