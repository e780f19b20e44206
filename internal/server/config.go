package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/remaining-value/internal/config"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSize is returned for upload sizes that cannot be parsed or are out of range.
var ErrInvalidSize = errors.New("invalid upload size")

// Config holds the web UI server settings read from server-config.yaml.
type Config struct {
	Address           string               `yaml:"address"`
	MaxUploadSize     string               `yaml:"maxUploadSize"`
	RequestsPerMinute int                  `yaml:"requestsPerMinute"`
	TrustProxy        bool                 `yaml:"trustProxy"`
	Logging           config.LoggingConfig `yaml:"logging"`
	uploadSizeBytes   int64
}

// DefaultConfig returns the server defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           constants.DefaultServerAddress,
		MaxUploadSize:     FormatSize(constants.DefaultMaxUploadSizeBytes),
		RequestsPerMinute: constants.DefaultRequestsPerMinute,
		uploadSizeBytes:   constants.DefaultMaxUploadSizeBytes,
	}
}

// LoadConfig reads the server configuration. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("server config %s: %w", path, err)
	}
	return cfg, nil
}

// UploadSizeBytes is the largest accepted image upload.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the upload limit, e.g. from the command line.
func (c *Config) SetUploadSizeBytes(size int64) error {
	if err := checkUploadSize(size); err != nil {
		return err
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = FormatSize(size)
	return nil
}

func (c *Config) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Address, err)
	}

	switch {
	case c.RequestsPerMinute < 0:
		return fmt.Errorf("requestsPerMinute must not be negative, got %d", c.RequestsPerMinute)
	case c.RequestsPerMinute == 0:
		c.RequestsPerMinute = constants.DefaultRequestsPerMinute
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	return c.SetUploadSizeBytes(size)
}

var sizeUnits = map[string]int64{
	"":    1,
	"B":   1,
	"K":   1 << 10,
	"KB":  1 << 10,
	"KIB": 1 << 10,
	"M":   1 << 20,
	"MB":  1 << 20,
	"MIB": 1 << 20,
}

// ParseSize converts an upload size such as "512K" or "5M" into bytes. Units are
// binary; an empty value means the default upload size.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	split := strings.IndexFunc(trimmed, func(r rune) bool { return !unicode.IsDigit(r) })
	if split == -1 {
		split = len(trimmed)
	}
	if split == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, value)
	}

	multiplier, ok := sizeUnits[strings.TrimSpace(trimmed[split:])]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported unit in %q", ErrInvalidSize, value)
	}
	n, err := strconv.ParseInt(trimmed[:split], 10, 64)
	if err != nil || n > constants.UploadSizeLimitBytes/multiplier {
		return 0, fmt.Errorf("%w: %q exceeds %s", ErrInvalidSize, value, FormatSize(constants.UploadSizeLimitBytes))
	}
	return n * multiplier, nil
}

// FormatSize renders bytes with the largest exact unit ParseSize accepts.
func FormatSize(size int64) string {
	switch {
	case size > 0 && size%(1<<20) == 0:
		return strconv.FormatInt(size>>20, 10) + "M"
	case size > 0 && size%(1<<10) == 0:
		return strconv.FormatInt(size>>10, 10) + "K"
	default:
		return strconv.FormatInt(size, 10)
	}
}

func checkUploadSize(size int64) error {
	if size <= 0 || size > constants.UploadSizeLimitBytes {
		return fmt.Errorf("%w: %d bytes not in 1..%d", ErrInvalidSize, size, constants.UploadSizeLimitBytes)
	}
	return nil
}
