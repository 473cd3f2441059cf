// Package server exposes the analysis over a session-scoped JSON API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/bigmac-dashboard/internal/config"
	"github.com/iwvelando/bigmac-dashboard/internal/insight"
	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/internal/session"
	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies are the collaborators shared by every request. Zero fields
// get working defaults: a no-op logger, an empty store, the offline
// narrator, the bundled events, the default settings and a private
// Prometheus registry.
type Dependencies struct {
	Logger        *zap.Logger
	Store         *session.Store
	Narrator      insight.Narrator
	Catalog       *events.Catalog
	Settings      *config.Configuration
	Registry      *prometheus.Registry
	MaxUploadSize int64
	Version       string
}

type handler struct {
	logger        *zap.Logger
	store         *session.Store
	analyst       *insight.Analyst
	catalog       *events.Catalog
	settings      *config.Configuration
	metrics       *metrics
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the analysis API.
func NewHandler(deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = session.NewStore()
	}
	if deps.Narrator == nil {
		deps.Narrator = insight.NewMockNarrator()
	}
	if deps.Catalog == nil {
		catalog, err := events.Default()
		if err != nil {
			return nil, err
		}
		deps.Catalog = catalog
	}
	if deps.Settings == nil {
		deps.Settings = config.Default()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(deps.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	m, err := newMetrics(deps.Registry, deps.Store)
	if err != nil {
		return nil, err
	}

	h := &handler{
		logger:        deps.Logger,
		store:         deps.Store,
		analyst:       insight.NewAnalyst(deps.Narrator, deps.Catalog, deps.Settings.Analysis.Percentile, deps.Logger),
		catalog:       deps.Catalog,
		settings:      deps.Settings,
		metrics:       m,
		maxUploadSize: deps.MaxUploadSize,
		version:       trimmedVersion,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)
		r.Get("/events", h.handleEvents)

		r.Post("/sessions", h.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Delete("/", h.handleDeleteSession)
			r.Post("/prices", h.handlePrices)
			r.Post("/rates", h.handleRates)
			r.Post("/analysis", h.handleAnalysis)
			r.Get("/records", h.handleRecords)
			r.Get("/summary", h.handleSummary)
			r.Get("/yearly", h.handleYearly)
			r.Get("/changepoints", h.handleChangePoints)
			r.Get("/impacts", h.handleImpacts)
			r.Get("/export", h.handleExport)
			r.Get("/insights", h.handleListInsights)
			r.Post("/insights/{kind}", h.handleInsight)
		})
	})

	return r, nil
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog)
}

// logRequests records each request in the log and the request metrics.
func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		h.metrics.observeRequest(r.Method, route, status, elapsed)

		h.logger.Debug("request served",
			zap.String("op", "server.logRequests"),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
		)
	})
}

// statusFor maps an analysis error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrParse),
		errors.Is(err, reconcile.ErrInvalidParameter),
		errors.Is(err, insight.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrColumnRecognition),
		errors.Is(err, reconcile.ErrMissingColumn),
		errors.Is(err, reconcile.ErrEmptyResult),
		errors.Is(err, reconcile.ErrInsufficientData),
		errors.Is(err, session.ErrNotAnalyzed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, insight.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, insight.ErrTransport),
		errors.Is(err, insight.ErrUnexpectedResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) respondErr(w http.ResponseWriter, err error, op string) {
	h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
		buf.Reset()
		buf.WriteString(`{"error":"failed to encode response"}` + "\n")
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
