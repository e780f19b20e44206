// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/remaining-value/internal/valuation"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/iwvelando/remaining-value/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables overriding config keys, e.g.
// REMAINING_VALUE_RATES_LOCATION for rates.location.
const EnvPrefix = "REMAINING_VALUE"

// Configuration holds all configuration for remaining-value.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Rates    RatesConfig    `yaml:"rates,omitempty"`
	Export   ExportConfig   `yaml:"export,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, markdown, json
}

// RatesConfig selects where exchange rates come from and how long they are cached.
type RatesConfig struct {
	Source   string        `yaml:"source,omitempty"` // file, json, html
	Location string        `yaml:"location,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`

	RowSelector  string `yaml:"rowSelector,omitempty"`
	DateSelector string `yaml:"dateSelector,omitempty"`
	CodeColumn   int    `yaml:"codeColumn,omitempty"`
	RateColumn   int    `yaml:"rateColumn,omitempty"`
	Unit         string `yaml:"unit,omitempty"` // quoted units per rate, e.g. 100

	Cache CacheConfig `yaml:"cache,omitempty"`
}

// CacheConfig holds the snapshot cache backend.
type CacheConfig struct {
	Backend  string `yaml:"backend,omitempty"` // memory, redis
	Address  string `yaml:"address,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// ExportConfig holds image export options.
type ExportConfig struct {
	UploadEndpoint string        `yaml:"uploadEndpoint,omitempty"`
	UploadTimeout  time.Duration `yaml:"uploadTimeout,omitempty"`
}

// DefaultsConfig pre-fills form fields left empty.
type DefaultsConfig struct {
	PurchaseCurrency string `yaml:"purchaseCurrency,omitempty"`
	TradeCurrency    string `yaml:"tradeCurrency,omitempty"`
	BillingPeriod    string `yaml:"billingPeriod,omitempty"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("rates.source", constants.RateSourceFile)
	v.SetDefault("rates.location", constants.DefaultRateSourcePath)
	v.SetDefault("rates.timeout", constants.DefaultRequestTimeout)
	v.SetDefault("rates.ttl", constants.DefaultRatesTTL)
	v.SetDefault("rates.rowSelector", "")
	v.SetDefault("rates.dateSelector", "")
	v.SetDefault("rates.codeColumn", 0)
	v.SetDefault("rates.rateColumn", 1)
	v.SetDefault("rates.unit", "1")
	v.SetDefault("rates.cache.backend", constants.CacheBackendMemory)
	v.SetDefault("rates.cache.address", "")
	v.SetDefault("rates.cache.password", "")
	v.SetDefault("rates.cache.db", 0)
	v.SetDefault("export.uploadEndpoint", "")
	v.SetDefault("export.uploadTimeout", constants.DefaultRequestTimeout)
	v.SetDefault("defaults.purchaseCurrency", constants.ReferenceCurrency)
	v.SetDefault("defaults.tradeCurrency", constants.ReferenceCurrency)
	v.SetDefault("defaults.billingPeriod", string(valuation.DefaultBillingPeriod))
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables override file values.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r. An empty
// reader yields the defaults.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

// Default returns the built-in configuration, still subject to environment
// overrides.
func Default() (*Configuration, error) {
	return LoadConfigurationFromReader(strings.NewReader(""))
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	switch c.Rates.Source {
	case "", constants.RateSourceFile:
	case constants.RateSourceJSON, constants.RateSourceHTML:
		if c.Rates.Location == "" {
			warnings = append(warnings, fmt.Sprintf("rates source %s has no location; rates will be unavailable", c.Rates.Source))
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown rates source %q; rates will be unavailable", c.Rates.Source))
	}

	if c.Rates.Unit != "" {
		unit, err := decimal.NewFromString(c.Rates.Unit)
		if err != nil || !unit.IsPositive() {
			warnings = append(warnings, fmt.Sprintf("rates unit %q is not a positive number; using 1", c.Rates.Unit))
		}
	}

	switch c.Rates.Cache.Backend {
	case "", constants.CacheBackendMemory:
	case constants.CacheBackendRedis:
		if c.Rates.Cache.Address == "" {
			warnings = append(warnings, "redis cache backend has no address; using in-process cache")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown cache backend %q; using in-process cache", c.Rates.Cache.Backend))
	}

	if c.Export.UploadEndpoint == "" {
		warnings = append(warnings, "export.uploadEndpoint is not set; image export is disabled")
	}

	if p := c.Defaults.BillingPeriod; p != "" && !valuation.BillingPeriod(p).Known() {
		warnings = append(warnings, fmt.Sprintf("default billing period %q is unknown; %s length is used", p, valuation.DefaultBillingPeriod))
	}
	for _, code := range []string{c.Defaults.PurchaseCurrency, c.Defaults.TradeCurrency} {
		if code == "" {
			continue
		}
		if err := validation.ValidateCurrencyCode(code); err != nil {
			warnings = append(warnings, "default currency: "+err.Error())
		}
	}

	return warnings
}
