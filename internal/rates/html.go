package rates

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iwvelando/remaining-value/pkg/validation"
	"github.com/shopspring/decimal"
)

const defaultRowSelector = "table tr"

// HTMLSource scrapes a quote table, one currency per row. Rates quoted per
// Unit foreign units (banks often quote per 100) are divided down to one unit.
type HTMLSource struct {
	URL          string
	Client       *http.Client
	RowSelector  string
	DateSelector string
	CodeColumn   int
	RateColumn   int
	Unit         decimal.Decimal
}

// Fetch implements Source.
func (s *HTMLSource) Fetch(ctx context.Context) (Snapshot, error) {
	body, err := get(ctx, s.Client, s.URL)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() {
		_ = body.Close()
	}()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse rate page: %w", err)
	}
	return s.parse(doc)
}

func (s *HTMLSource) parse(doc *goquery.Document) (Snapshot, error) {
	rowSelector := s.RowSelector
	if rowSelector == "" {
		rowSelector = defaultRowSelector
	}
	unit := s.Unit
	if !unit.IsPositive() {
		unit = decimal.NewFromInt(1)
	}

	snap := Snapshot{Rates: make(map[string]decimal.Decimal)}
	if s.DateSelector != "" {
		snap.Date = strings.TrimSpace(doc.Find(s.DateSelector).First().Text())
	}

	lastColumn := s.CodeColumn
	if s.RateColumn > lastColumn {
		lastColumn = s.RateColumn
	}

	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= lastColumn {
			return
		}
		code := currencyCode(cells.Eq(s.CodeColumn).Text())
		if code == "" {
			return
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(cells.Eq(s.RateColumn).Text()))
		if err != nil || !rate.IsPositive() {
			return
		}
		snap.Rates[code] = rate.Div(unit)
	})

	if len(snap.Rates) == 0 {
		return Snapshot{}, fmt.Errorf("no exchange rates found with selector %q", rowSelector)
	}
	return snap, nil
}

// currencyCode takes the last word of a cell such as "美元 USD".
func currencyCode(cell string) string {
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return ""
	}
	code := strings.ToUpper(fields[len(fields)-1])
	if validation.ValidateCurrencyCode(code) != nil {
		return ""
	}
	return code
}
