package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/remaining-value/internal/config"
	"github.com/iwvelando/remaining-value/internal/export"
	"github.com/iwvelando/remaining-value/internal/presenter"
	"github.com/iwvelando/remaining-value/internal/rates"
	"github.com/iwvelando/remaining-value/internal/valuation"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/iwvelando/remaining-value/pkg/datetime"
	"github.com/iwvelando/remaining-value/pkg/format"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

// RatesProvider supplies the current exchange rate snapshot.
type RatesProvider interface {
	Snapshot(ctx context.Context) (rates.Snapshot, error)
}

// ImageUploader publishes a summary image and returns its URL.
type ImageUploader interface {
	Upload(ctx context.Context, image io.Reader) (string, error)
}

// Options configures NewHandler. Rates and Uploader may be nil; rates then
// have to be entered manually and image export is disabled.
type Options struct {
	Logger            *zap.Logger
	Rates             RatesProvider
	Uploader          ImageUploader
	Defaults          config.DefaultsConfig
	MaxUploadSize     int64
	RequestsPerMinute int
	TrustProxy        bool
	Version           string
	Now               func() time.Time
}

// Handler serves the web UI and the valuation API.
type Handler struct {
	logger        *zap.Logger
	rates         RatesProvider
	uploader      ImageUploader
	defaults      config.DefaultsConfig
	maxUploadSize int64
	trustProxy    bool
	version       string
	now           func() time.Time
	limiter       *rateLimiter
	mux           *http.ServeMux
}

// NewHandler constructs the HTTP handler. Close releases its background work.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	perMinute := opts.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = constants.DefaultRequestsPerMinute
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	h := &Handler{
		logger:        logger,
		rates:         opts.Rates,
		uploader:      opts.Uploader,
		defaults:      opts.Defaults,
		maxUploadSize: maxUploadSize,
		trustProxy:    opts.TrustProxy,
		version:       trimmedVersion,
		now:           now,
		limiter:       newRateLimiter(perMinute, time.Minute),
		mux:           http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/evaluate", h.handleEvaluate)
	h.mux.HandleFunc("/api/rates", h.handleRates)
	h.mux.HandleFunc("/api/export/markdown", h.handleExportMarkdown)
	h.mux.Handle("/api/export/image", h.rateLimited(http.HandlerFunc(h.handleExportImage)))
	h.mux.HandleFunc("/api/version", h.handleVersion)

	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	h.mux.Handle("/", http.FileServer(http.FS(sub)))

	return h
}

type ctxKey int

const requestIDKey ctxKey = iota

// ServeHTTP tags every request with an id and logs its outcome.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := uuid.NewString()
	w.Header().Set("X-Request-Id", id)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)

	h.logger.Debug("request served",
		zap.String("op", "server.ServeHTTP"),
		zap.String("request_id", id),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

// Close stops the rate limiter.
func (h *Handler) Close() {
	h.limiter.Stop()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (h *Handler) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow(clientIP(r, h.trustProxy)) {
			h.respondErrorWithOp(w, r, http.StatusTooManyRequests, "rate limit exceeded", "server.rateLimited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type evaluateResponse struct {
	Result              valuation.Result   `json:"result"`
	PremiumPercent      string             `json:"premiumPercent"`
	RemainingMonths     int                `json:"remainingMonths"`
	RemainingDaysRest   int                `json:"remainingDaysRest"`
	RecommendationLabel string             `json:"recommendationLabel"`
	DataDate            string             `json:"dataDate,omitempty"`
	Notices             []presenter.Notice `json:"notices,omitempty"`
}

type errorResponse struct {
	Error   string             `json:"error"`
	Field   string             `json:"field,omitempty"`
	Notices []presenter.Notice `json:"notices,omitempty"`
}

type markdownResponse struct {
	Markdown string `json:"markdown"`
	Preview  string `json:"preview"`
	HTML     string `json:"html"`
}

type imageResponse struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

type ratesResponse struct {
	Date       string            `json:"date"`
	Rates      map[string]string `json:"rates"`
	Currencies []string          `json:"currencies"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEvaluate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	state, ok := h.evaluate(w, r, op)
	if !ok {
		return
	}

	result := *state.Result
	months, days := result.Breakdown()
	response := evaluateResponse{
		Result:              result,
		PremiumPercent:      format.Fixed(result.PremiumPercent),
		RemainingMonths:     months,
		RemainingDaysRest:   days,
		RecommendationLabel: result.Recommendation.Label(),
		Notices:             state.Notices,
	}
	if state.Rates != nil {
		response.DataDate = state.Rates.Date
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExportMarkdown"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	state, ok := h.evaluate(w, r, op)
	if !ok {
		return
	}

	doc, err := state.Document(h.now())
	if errors.Is(err, export.ErrNoResult) {
		h.respondErrorWithOp(w, r, http.StatusConflict, export.NoticeNoResult, op)
		return
	}

	markdown := export.Markdown(doc)
	if err := export.ValidateMarkdown(markdown); err != nil {
		h.logger.Error("generated markdown is malformed",
			zap.String("op", op),
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, err.Error(), op)
		return
	}
	html, err := export.RenderHTML(doc)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, markdownResponse{
		Markdown: markdown,
		Preview:  export.PreviewHTML(markdown),
		HTML:     html,
	})
}

// evaluate decodes form values from the request body and runs a calculation.
// On failure it writes the error response and reports false.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request, op string) (presenter.State, bool) {
	var values presenter.Values
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&values); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode values: %v", err), op)
		return presenter.State{}, false
	}
	values = h.defaults.Apply(values)

	var state presenter.State
	if h.rates != nil {
		snap, err := h.rates.Snapshot(r.Context())
		if err != nil {
			h.logger.Warn("exchange rates unavailable, manual rates required",
				zap.String("op", op),
				zap.String("request_id", requestID(r.Context())),
				zap.Error(err),
			)
		} else {
			state, _ = state.WithRates(1, snap)
		}
	}

	state = state.Recalculate(values, datetime.Today(h.now()))
	if state.Err != nil {
		response := errorResponse{Error: state.Err.Error(), Notices: state.Notices}
		var fieldErr *valuation.FieldError
		if errors.As(state.Err, &fieldErr) {
			response.Field = fieldErr.Field
		}
		h.logger.Info("valuation rejected",
			zap.String("op", op),
			zap.String("request_id", requestID(r.Context())),
			zap.String("field", response.Field),
			zap.Error(state.Err),
		)
		h.writeJSON(w, http.StatusUnprocessableEntity, response)
		return state, false
	}
	return state, true
}

func (h *Handler) handleRates(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRates"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.rates == nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, "exchange rates are not configured", op)
		return
	}

	snap, err := h.rates.Snapshot(r.Context())
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadGateway, fmt.Sprintf("failed to load exchange rates: %v", err), op)
		return
	}

	encoded := make(map[string]string, len(snap.Rates))
	for code, rate := range snap.Rates {
		encoded[code] = rate.String()
	}
	h.writeJSON(w, http.StatusOK, ratesResponse{
		Date:       snap.Date,
		Rates:      encoded,
		Currencies: snap.Currencies(),
	})
}

func (h *Handler) handleExportImage(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExportImage"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.uploader == nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, "image export is not configured", op)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile(constants.UploadFieldName)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "missing image file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	url, err := h.uploader.Upload(r.Context(), file)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadGateway, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, imageResponse{
		URL:      url,
		Markdown: export.ImageMarkdown(url),
	})
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *Handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("request_id", requestID(r.Context())),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}
