package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/shopspring/decimal"
)

// Source fetches a fresh snapshot.
type Source interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// SourceOptions selects and configures a Source.
type SourceOptions struct {
	Kind     string
	Location string
	Timeout  time.Duration

	// HTML table options; ignored by other kinds.
	RowSelector  string
	DateSelector string
	CodeColumn   int
	RateColumn   int
	Unit         decimal.Decimal
}

// NewSource builds the Source described by opts.
func NewSource(opts SourceOptions) (Source, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch opts.Kind {
	case "", constants.RateSourceFile:
		path := opts.Location
		if path == "" {
			path = constants.DefaultRateSourcePath
		}
		return &FileSource{Path: path}, nil
	case constants.RateSourceJSON:
		if opts.Location == "" {
			return nil, fmt.Errorf("json rate source requires a URL")
		}
		return &HTTPSource{URL: opts.Location, Client: client}, nil
	case constants.RateSourceHTML:
		if opts.Location == "" {
			return nil, fmt.Errorf("html rate source requires a URL")
		}
		return &HTMLSource{
			URL:          opts.Location,
			Client:       client,
			RowSelector:  opts.RowSelector,
			DateSelector: opts.DateSelector,
			CodeColumn:   opts.CodeColumn,
			RateColumn:   opts.RateColumn,
			Unit:         opts.Unit,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported rate source kind %q", opts.Kind)
	}
}

// FileSource reads exchange_rates.json from disk.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (s *FileSource) Fetch(_ context.Context) (Snapshot, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to open rate file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Decode(f)
}

// HTTPSource fetches exchange_rates.json from a URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) (Snapshot, error) {
	body, err := get(ctx, s.Client, s.URL)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() {
		_ = body.Close()
	}()
	return Decode(body)
}

func get(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	if client == nil {
		client = &http.Client{Timeout: constants.DefaultRequestTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch rates from %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
