package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/remaining-value/internal/export"
	"github.com/iwvelando/remaining-value/internal/valuation"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/iwvelando/remaining-value/pkg/testutil"
	"github.com/shopspring/decimal"
)

func testDocument(t *testing.T) export.Document {
	t.Helper()
	result, err := valuation.Evaluate(valuation.Input{
		PurchaseAmount: testutil.MustDecimal(t, "1200"),
		PurchaseRate:   decimal.NewFromInt(1),
		TradeAmount:    testutil.MustDecimal(t, "500"),
		TradeRate:      decimal.NewFromInt(1),
		CurrentDate:    testutil.MustDate(t, "2025-01-01"),
		ExpiryDate:     testutil.MustDate(t, "2025-07-01"),
		BillingPeriod:  valuation.Yearly,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return export.Document{
		DataDate:    "2025-01-01 08:00",
		Result:      result,
		GeneratedAt: time.Date(2025, time.January, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := PrettyFormat(&buf, testDocument(t)); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	output := buf.String()

	// 1200 / 365 * 181 = 595.07
	for _, want := range []string{
		"--- 剩余价值计算结果 (汇率数据日期：2025-01-01 08:00) ---",
		"续费金额（CNY） | ￥1,200.00",
		"剩余价值（CNY） | ￥595.07",
		"剩余天数 | 181 天 (6 个月余 1 天)",
		"溢价金额（CNY） | -￥95.07",
		"溢价幅度 | -15.98%",
		"购买建议 | " + valuation.TierSafeBuy.Label(),
	} {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat missing %q in:\n%s", want, output)
		}
	}
}

func TestPrettyFormatKeepsExactAmounts(t *testing.T) {
	doc := testDocument(t)
	amount := testutil.MustDecimal(t, "987654321987654.32")
	doc.Result.PurchaseAmountRef = amount
	doc.Result.TradeAmountRef = amount.Neg()

	var buf bytes.Buffer
	if err := PrettyFormat(&buf, doc); err != nil {
		t.Fatalf("PrettyFormat() error = %v", err)
	}
	for _, want := range []string{
		"续费金额（CNY） | ￥987,654,321,987,654.32",
		"交易金额（CNY） | -￥987,654,321,987,654.32",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("PrettyFormat missing %q in:\n%s", want, buf.String())
		}
	}
	if md := export.Markdown(doc); !strings.Contains(md, "| 续费金额（CNY） | ￥987654321987654.32 |") {
		t.Errorf("markdown disagrees with pretty output:\n%s", md)
	}
}

func TestMarkdownFormat(t *testing.T) {
	doc := testDocument(t)
	var buf bytes.Buffer
	if err := MarkdownFormat(&buf, doc); err != nil {
		t.Fatalf("MarkdownFormat() error = %v", err)
	}
	if buf.String() != export.Markdown(doc)+"\n" {
		t.Errorf("MarkdownFormat() wrote %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONFormat(&buf, testDocument(t)); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}

	var decoded struct {
		DataDate            string `json:"dataDate"`
		RemainingMonths     int    `json:"remainingMonths"`
		RemainingDaysRest   int    `json:"remainingDaysRest"`
		PremiumPercent      string `json:"premiumPercent"`
		RecommendationLabel string `json:"recommendationLabel"`
		Result              struct {
			RemainingDays  int    `json:"remainingDays"`
			Recommendation string `json:"recommendation"`
		} `json:"result"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if decoded.Result.RemainingDays != 181 || decoded.RemainingMonths != 6 || decoded.RemainingDaysRest != 1 {
		t.Errorf("unexpected days in %+v", decoded)
	}
	if decoded.PremiumPercent != "-15.98" {
		t.Errorf("premiumPercent = %q, expected -15.98", decoded.PremiumPercent)
	}
	if decoded.Result.Recommendation != "safe-buy" {
		t.Errorf("recommendation = %q, expected safe-buy", decoded.Result.Recommendation)
	}
	if decoded.RecommendationLabel != valuation.TierSafeBuy.Label() {
		t.Errorf("recommendationLabel = %q", decoded.RecommendationLabel)
	}
}

func TestWrite(t *testing.T) {
	doc := testDocument(t)
	for _, format := range []string{constants.OutputFormatPretty, constants.OutputFormatMarkdown, constants.OutputFormatJSON} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, format, doc); err != nil {
				t.Errorf("Write(%s) error = %v", format, err)
			}
			if buf.Len() == 0 {
				t.Errorf("Write(%s) produced no output", format)
			}
		})
	}

	var buf bytes.Buffer
	if err := Write(&buf, "csv", doc); err == nil {
		t.Errorf("expected error for unsupported format")
	}
}
