// Package constants provides shared constants for the remaining-value application.
package constants

import "time"

// DateLayout is the calendar date format accepted on input and used for output.
const DateLayout = "2006-01-02"

// GeneratedAtLayout is the timestamp format stamped on exported summaries.
const GeneratedAtLayout = "2006/1/2 15:04:05"

// Financial constants
const (
	// ReferenceCurrency is the currency every amount is normalized into.
	ReferenceCurrency = "CNY"

	// DecimalPlaces is the number of places shown for currency and percent values.
	DecimalPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100

	// DisplayMonthDays is the fixed month length used only to break remaining days
	// into "months and days" for display.
	DisplayMonthDays = 30
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatMarkdown is the shareable Markdown summary
	OutputFormatMarkdown = "markdown"

	// OutputFormatJSON is the machine-readable output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultEnvFile is loaded into the environment before configuration, if present
	DefaultEnvFile = ".env"
)

// Rate source constants
const (
	// RateSourceFile reads a local exchange_rates.json
	RateSourceFile = "file"

	// RateSourceJSON fetches exchange_rates.json over HTTP
	RateSourceJSON = "json"

	// RateSourceHTML scrapes a quote table from an HTML page
	RateSourceHTML = "html"

	// DefaultRateSourcePath is the default location of the rate file
	DefaultRateSourcePath = "exchange_rates.json"

	// DefaultRatesTTL is how long a fetched rate snapshot is served from cache
	DefaultRatesTTL = time.Hour

	// DefaultRatesCacheKey is the cache key a snapshot is stored under
	DefaultRatesCacheKey = "remaining-value:rates"

	// CacheBackendMemory keeps snapshots in process
	CacheBackendMemory = "memory"

	// CacheBackendRedis keeps snapshots in redis
	CacheBackendRedis = "redis"
)

// Export constants
const (
	// UploadFieldName is the multipart field carrying the image
	UploadFieldName = "file"

	// UploadFileName is the file name sent with the uploaded image
	UploadFileName = "mjj.webp"

	// DefaultRequestTimeout bounds outbound rate and upload requests
	DefaultRequestTimeout = 15 * time.Second
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum image upload size (5 MB)
	DefaultMaxUploadSizeBytes int64 = 5 * 1024 * 1024

	// UploadSizeLimitBytes is the largest configurable upload size (32 MB)
	UploadSizeLimitBytes int64 = 32 * 1024 * 1024

	// DefaultRequestsPerMinute is the per-client image export budget
	DefaultRequestsPerMinute = 10
)
