package presenter

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/remaining-value/internal/export"
	"github.com/iwvelando/remaining-value/internal/rates"
	"github.com/iwvelando/remaining-value/internal/valuation"
)

// State is one calculation session. It is a value: every transition returns a
// new State.
type State struct {
	Rates    *rates.Snapshot   `json:"rates,omitempty"`
	RatesSeq uint64            `json:"ratesSeq"`
	Values   Values            `json:"values"`
	Result   *valuation.Result `json:"result,omitempty"`
	Notices  []Notice          `json:"notices,omitempty"`
	Err      error             `json:"-"`
}

// WithRates installs snap if it belongs to a newer fetch than the current one.
// Fetches are numbered by the caller in the order they were started, so a slow
// response to an old fetch cannot overwrite a newer one. The second result
// reports whether snap was applied.
func (s State) WithRates(seq uint64, snap rates.Snapshot) (State, bool) {
	if s.Rates != nil && seq <= s.RatesSeq {
		return s, false
	}
	s.Rates = &snap
	s.RatesSeq = seq
	return s, true
}

// Recalculate evaluates values. On failure the previous result is cleared so
// a stale result is never shown next to an error.
func (s State) Recalculate(values Values, today civil.Date) State {
	s.Values = values
	input, notices, err := Parse(values, s.Rates, today)
	s.Notices = notices
	if err == nil {
		var result valuation.Result
		result, err = valuation.Evaluate(input)
		if err == nil {
			s.Result = &result
			s.Err = nil
			return s
		}
	}
	s.Result = nil
	s.Err = err
	return s
}

// Document prepares the current result for export.
func (s State) Document(generatedAt time.Time) (export.Document, error) {
	if s.Result == nil {
		return export.Document{}, export.ErrNoResult
	}
	doc := export.Document{
		Result:      *s.Result,
		GeneratedAt: generatedAt,
	}
	if s.Rates != nil {
		doc.DataDate = s.Rates.Date
	}
	return doc, nil
}
