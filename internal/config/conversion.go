package config

import (
	"strings"

	"github.com/iwvelando/remaining-value/internal/presenter"
	"github.com/iwvelando/remaining-value/internal/rates"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SourceOptions converts the rates section to rates.SourceOptions. An invalid
// unit falls back to 1.
func (r RatesConfig) SourceOptions() rates.SourceOptions {
	unit, err := decimal.NewFromString(strings.TrimSpace(r.Unit))
	if err != nil || !unit.IsPositive() {
		unit = decimal.NewFromInt(1)
	}
	return rates.SourceOptions{
		Kind:         r.Source,
		Location:     r.Location,
		Timeout:      r.Timeout,
		RowSelector:  r.RowSelector,
		DateSelector: r.DateSelector,
		CodeColumn:   r.CodeColumn,
		RateColumn:   r.RateColumn,
		Unit:         unit,
	}
}

// NewCache builds the configured cache and a function releasing it.
func (c CacheConfig) NewCache() (rates.Cache, func() error) {
	if c.Backend == constants.CacheBackendRedis && c.Address != "" {
		cache := rates.NewRedisCache(c.Address, c.Password, c.DB)
		return cache, cache.Close
	}
	return rates.NewMemoryCache(), func() error { return nil }
}

// NewProvider wires the configured source and cache into a rates.Provider.
// The returned function releases the cache.
func (r RatesConfig) NewProvider(logger *zap.Logger) (*rates.Provider, func() error, error) {
	source, err := rates.NewSource(r.SourceOptions())
	if err != nil {
		return nil, nil, err
	}
	cache, closeCache := r.Cache.NewCache()
	return rates.NewProvider(logger, source, cache, r.TTL), closeCache, nil
}

// Apply fills empty currency and billing period fields of values.
func (d DefaultsConfig) Apply(values presenter.Values) presenter.Values {
	if strings.TrimSpace(values.PurchaseCurrency) == "" {
		values.PurchaseCurrency = d.PurchaseCurrency
	}
	if strings.TrimSpace(values.TradeCurrency) == "" {
		values.TradeCurrency = d.TradeCurrency
	}
	if strings.TrimSpace(values.BillingPeriod) == "" {
		values.BillingPeriod = d.BillingPeriod
	}
	return values
}
