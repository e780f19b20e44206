package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/remaining-value/internal/config"
	"github.com/iwvelando/remaining-value/internal/export"
	"github.com/iwvelando/remaining-value/internal/rates"
	"github.com/iwvelando/remaining-value/internal/valuation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type staticRates struct {
	snap rates.Snapshot
	err  error
}

func (s staticRates) Snapshot(context.Context) (rates.Snapshot, error) {
	return s.snap, s.err
}

type fakeUploader struct {
	received []byte
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, image io.Reader) (string, error) {
	data, _ := io.ReadAll(image)
	f.received = data
	if f.err != nil {
		return "", f.err
	}
	return "https://img.example/abc.webp", nil
}

var fixedNow = func() time.Time { return time.Date(2025, time.January, 1, 14, 5, 9, 0, time.Local) }

func testRates() staticRates {
	return staticRates{snap: rates.Snapshot{
		Date:  "2025-01-01 08:00",
		Rates: map[string]decimal.Decimal{"USD": decimal.RequireFromString("7.2")},
	}}
}

func newTestHandler(t *testing.T, opts Options) *Handler {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	if opts.Defaults == (config.DefaultsConfig{}) {
		opts.Defaults = config.DefaultsConfig{PurchaseCurrency: "CNY", TradeCurrency: "CNY", BillingPeriod: "yearly"}
	}
	h := NewHandler(opts)
	t.Cleanup(h.Close)
	return h
}

func postJSON(t *testing.T, h http.Handler, path string, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const validPayload = `{"purchaseAmount": "100", "tradeAmount": "120", "currentDate": "2025-01-01", "expiryDate": "2025-07-01"}`

func TestHandleEvaluateSuccess(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := postJSON(t, h, "/api/evaluate", validPayload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Errorf("expected request id header")
	}

	var resp evaluateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.RemainingDays != 181 || resp.RemainingMonths != 6 || resp.RemainingDaysRest != 1 {
		t.Errorf("unexpected remaining days: %+v", resp)
	}
	if resp.PremiumPercent != "141.99" {
		t.Errorf("premiumPercent = %q, expected 141.99", resp.PremiumPercent)
	}
	if resp.Result.Recommendation != valuation.TierHeirloom || resp.RecommendationLabel != valuation.TierHeirloom.Label() {
		t.Errorf("recommendation = %v / %q", resp.Result.Recommendation, resp.RecommendationLabel)
	}
}

func TestHandleEvaluateUsesRates(t *testing.T) {
	h := newTestHandler(t, Options{Rates: testRates()})

	payload := `{"purchaseCurrency": "USD", "purchaseAmount": "10", "tradeAmount": "50", "currentDate": "2025-01-01", "expiryDate": "2025-01-16", "billingPeriod": "monthly"}`
	rr := postJSON(t, h, "/api/evaluate", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp evaluateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Result.PurchaseAmountRef.Equal(decimal.NewFromInt(72)) {
		t.Errorf("purchaseAmountRef = %s, expected 72", resp.Result.PurchaseAmountRef)
	}
	if resp.DataDate != "2025-01-01 08:00" {
		t.Errorf("dataDate = %q", resp.DataDate)
	}
}

func TestHandleEvaluateRatesUnavailable(t *testing.T) {
	h := newTestHandler(t, Options{Rates: staticRates{err: errors.New("upstream down")}})

	payload := `{"purchaseCurrency": "USD", "purchaseAmount": "10", "tradeAmount": "50", "expiryDate": "2025-07-01"}`
	rr := postJSON(t, h, "/api/evaluate", payload)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Field != valuation.FieldPurchaseRate {
		t.Errorf("field = %q, expected %q", resp.Field, valuation.FieldPurchaseRate)
	}
	if len(resp.Notices) != 1 {
		t.Errorf("expected a lookup miss notice, got %+v", resp.Notices)
	}
}

func TestHandleEvaluateErrors(t *testing.T) {
	h := newTestHandler(t, Options{})

	tests := []struct {
		name    string
		payload string
		status  int
		field   string
	}{
		{"expired", `{"purchaseAmount": "100", "tradeAmount": "120", "currentDate": "2025-07-01", "expiryDate": "2025-07-01"}`, http.StatusUnprocessableEntity, valuation.FieldExpiryDate},
		{"bad amount", `{"purchaseAmount": "x", "tradeAmount": "120", "expiryDate": "2030-07-01"}`, http.StatusUnprocessableEntity, valuation.FieldPurchaseAmount},
		{"negative rate", `{"purchaseAmount": "100", "purchaseRate": "-1", "tradeAmount": "120", "expiryDate": "2030-07-01"}`, http.StatusUnprocessableEntity, valuation.FieldPurchaseRate},
		{"huge exponent", `{"purchaseAmount": "1e1000000", "tradeAmount": "120", "expiryDate": "2030-07-01"}`, http.StatusUnprocessableEntity, valuation.FieldPurchaseAmount},
		{"malformed json", `{"purchaseAmount": `, http.StatusBadRequest, ""},
		{"unknown field", `{"price": "1"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, h, "/api/evaluate", tt.payload)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error == "" || resp.Field != tt.field {
				t.Errorf("error response = %+v, expected field %q", resp, tt.field)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/evaluate", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/evaluate status = %d, expected 405", rr.Code)
	}
}

func TestHandleRates(t *testing.T) {
	h := newTestHandler(t, Options{Rates: testRates()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/rates", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ratesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Date != "2025-01-01 08:00" || resp.Rates["USD"] != "7.2" {
		t.Errorf("unexpected rates response: %+v", resp)
	}
	if strings.Join(resp.Currencies, ",") != "CNY,USD" {
		t.Errorf("currencies = %v", resp.Currencies)
	}

	for name, opts := range map[string]Options{
		"not configured": {},
		"upstream error": {Rates: staticRates{err: errors.New("down")}},
	} {
		t.Run(name, func(t *testing.T) {
			h := newTestHandler(t, opts)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/rates", nil))
			if rr.Code < 500 {
				t.Errorf("expected server error status, got %d", rr.Code)
			}
		})
	}
}

func TestHandleExportMarkdown(t *testing.T) {
	h := newTestHandler(t, Options{Rates: testRates()})

	rr := postJSON(t, h, "/api/export/markdown", validPayload)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp markdownResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, want := range []string{
		"```markdown\n# 剩余价值计算结果\n> 汇率数据日期：2025-01-01 08:00\n",
		"| 溢价幅度 | 141.99% |",
		"生成于：2025/1/1 14:05:09\n```",
	} {
		if !strings.Contains(resp.Markdown, want) {
			t.Errorf("markdown missing %q:\n%s", want, resp.Markdown)
		}
	}
	if resp.Preview != export.PreviewHTML(resp.Markdown) {
		t.Errorf("preview does not wrap the markdown")
	}
	if err := export.ValidateMarkdown(resp.Markdown); err != nil {
		t.Errorf("served markdown does not validate: %v", err)
	}
	if !strings.Contains(resp.HTML, "<table>") {
		t.Errorf("html missing table: %s", resp.HTML)
	}
}

func TestHandleExportMarkdownWithoutResult(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := postJSON(t, h, "/api/export/markdown", `{"purchaseAmount": "100", "tradeAmount": "120", "expiryDate": "not-a-date"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
}

func imageRequest(t *testing.T, image []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "capture.webp")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(image); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/export/image", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleExportImage(t *testing.T) {
	uploader := &fakeUploader{}
	h := newTestHandler(t, Options{Uploader: uploader})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, imageRequest(t, []byte("RIFFfakewebp")))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp imageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.URL != "https://img.example/abc.webp" || resp.Markdown != export.ImageMarkdown(resp.URL) {
		t.Errorf("unexpected response: %+v", resp)
	}
	if string(uploader.received) != "RIFFfakewebp" {
		t.Errorf("uploader received %q", uploader.received)
	}
}

func TestHandleExportImageErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		h := newTestHandler(t, Options{})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, imageRequest(t, []byte("img")))
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rr.Code)
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		h := newTestHandler(t, Options{Uploader: &fakeUploader{err: export.ErrUploadFailure}})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, imageRequest(t, []byte("img")))
		if rr.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rr.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		h := newTestHandler(t, Options{Uploader: &fakeUploader{}, MaxUploadSize: 64})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, imageRequest(t, bytes.Repeat([]byte("x"), 1024)))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected 413, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		h := newTestHandler(t, Options{Uploader: &fakeUploader{}, RequestsPerMinute: 1})
		first := httptest.NewRecorder()
		h.ServeHTTP(first, imageRequest(t, []byte("img")))
		if first.Code != http.StatusOK {
			t.Fatalf("expected first upload to pass, got %d", first.Code)
		}
		second := httptest.NewRecorder()
		h.ServeHTTP(second, imageRequest(t, []byte("img")))
		if second.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", second.Code)
		}
	})
}

func TestHandleVersionAndStatic(t *testing.T) {
	h := newTestHandler(t, Options{Version: " 1.2.3 "})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Errorf("version = %q", resp["version"])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "剩余价值计算器") {
		t.Errorf("expected embedded index page, got %d", rr.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected first two requests to pass")
	}
	if rl.Allow("a") {
		t.Fatal("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("expected other clients to have their own budget")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("expected budget to refill after the window")
	}

	now = now.Add(2 * time.Hour)
	rl.cleanup()
	if len(rl.clients) != 0 {
		t.Errorf("expected idle clients to be dropped, have %d", len(rl.clients))
	}
	rl.Stop()
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Errorf("clientIP(untrusted) = %q", got)
	}
	if got := clientIP(req, true); got != "203.0.113.7" {
		t.Errorf("clientIP(trusted) = %q", got)
	}
}
