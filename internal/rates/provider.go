package rates

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/remaining-value/pkg/constants"
	"go.uber.org/zap"
)

// Provider serves snapshots from a Cache while they are fresh and refetches
// from its Source otherwise. When a fetch fails the last good snapshot is
// served instead.
type Provider struct {
	source Source
	cache  Cache
	ttl    time.Duration
	key    string
	logger *zap.Logger

	mu       sync.RWMutex
	lastGood *Snapshot
}

// NewProvider creates a Provider. A nil cache gets an in-process one and a
// non-positive ttl gets the default.
func NewProvider(logger *zap.Logger, source Source, cache Cache, ttl time.Duration) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = constants.DefaultRatesTTL
	}
	return &Provider{
		source: source,
		cache:  cache,
		ttl:    ttl,
		key:    constants.DefaultRatesCacheKey,
		logger: logger,
	}
}

// Snapshot returns the current rates.
func (p *Provider) Snapshot(ctx context.Context) (Snapshot, error) {
	if cached, ok := p.cache.Get(ctx, p.key); ok {
		snap, err := Decode(strings.NewReader(cached))
		if err == nil {
			return snap, nil
		}
		p.logger.Warn("discarding undecodable cached rates",
			zap.String("op", "rates.Snapshot"),
			zap.Error(err),
		)
	}
	return p.Refresh(ctx)
}

// Refresh fetches from the source regardless of the cache.
func (p *Provider) Refresh(ctx context.Context) (Snapshot, error) {
	snap, err := p.source.Fetch(ctx)
	if err != nil {
		p.mu.RLock()
		last := p.lastGood
		p.mu.RUnlock()
		if last != nil {
			p.logger.Warn("failed to fetch exchange rates, serving last good snapshot",
				zap.String("op", "rates.Refresh"),
				zap.String("date", last.Date),
				zap.Error(err),
			)
			return *last, nil
		}
		return Snapshot{}, err
	}

	p.mu.Lock()
	p.lastGood = &snap
	p.mu.Unlock()

	encoded, err := json.Marshal(snap)
	if err == nil {
		err = p.cache.Set(ctx, p.key, string(encoded), p.ttl)
	}
	if err != nil {
		p.logger.Warn("failed to cache exchange rates",
			zap.String("op", "rates.Refresh"),
			zap.Error(err),
		)
	}

	p.logger.Debug("exchange rates fetched",
		zap.String("op", "rates.Refresh"),
		zap.String("date", snap.Date),
		zap.Int("currencies", len(snap.Rates)),
	)
	return snap, nil
}
