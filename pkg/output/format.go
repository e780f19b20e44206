// Package output provides utilities for formatting and displaying valuation results.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iwvelando/remaining-value/internal/export"
	"github.com/iwvelando/remaining-value/internal/valuation"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/iwvelando/remaining-value/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable table.
func PrettyFormat(w io.Writer, doc export.Document) error {
	p := message.NewPrinter(language.English)
	r := doc.Result
	months, days := r.Breakdown()

	header := "--- 剩余价值计算结果 ---"
	if doc.DataDate != "" {
		header = fmt.Sprintf("--- 剩余价值计算结果 (汇率数据日期：%s) ---", doc.DataDate)
	}

	rows := [][2]string{
		{"续费金额（" + constants.ReferenceCurrency + "）", format.Currency(r.PurchaseAmountRef)},
		{"剩余价值（" + constants.ReferenceCurrency + "）", format.Currency(r.RemainingValueRef)},
		{"剩余天数", p.Sprintf("%d 天 (%d 个月余 %d 天)", r.RemainingDays, months, days)},
		{"交易金额（" + constants.ReferenceCurrency + "）", format.Currency(r.TradeAmountRef)},
		{"溢价金额（" + constants.ReferenceCurrency + "）", format.Currency(r.PremiumRef)},
		{"溢价幅度", format.Percent(r.PremiumPercent)},
		{"购买建议", r.Recommendation.Label()},
	}

	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s | %s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return nil
}

// MarkdownFormat writes the shareable markdown summary.
func MarkdownFormat(w io.Writer, doc export.Document) error {
	_, err := fmt.Fprintln(w, export.Markdown(doc))
	return err
}

type jsonDocument struct {
	DataDate            string           `json:"dataDate,omitempty"`
	GeneratedAt         string           `json:"generatedAt"`
	Result              valuation.Result `json:"result"`
	RemainingMonths     int              `json:"remainingMonths"`
	RemainingDaysRest   int              `json:"remainingDaysRest"`
	PremiumPercent      string           `json:"premiumPercent"`
	RecommendationLabel string           `json:"recommendationLabel"`
}

// JSONFormat writes the result as an indented JSON document.
func JSONFormat(w io.Writer, doc export.Document) error {
	months, days := doc.Result.Breakdown()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonDocument{
		DataDate:            doc.DataDate,
		GeneratedAt:         doc.GeneratedAt.Format(constants.GeneratedAtLayout),
		Result:              doc.Result,
		RemainingMonths:     months,
		RemainingDaysRest:   days,
		PremiumPercent:      format.Fixed(doc.Result.PremiumPercent),
		RecommendationLabel: doc.Result.Recommendation.Label(),
	})
}

// Write dispatches on an output format name.
func Write(w io.Writer, outputFormat string, doc export.Document) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, doc)
	case constants.OutputFormatMarkdown:
		return MarkdownFormat(w, doc)
	case constants.OutputFormatJSON:
		return JSONFormat(w, doc)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}
