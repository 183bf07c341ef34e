package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/lacvalidate/dataset"
	"github.com/liamcoop/lacvalidate/executor"
	"github.com/liamcoop/lacvalidate/internal/config"
	"github.com/liamcoop/lacvalidate/internal/logger"
	"github.com/liamcoop/lacvalidate/internal/metrics"
	"github.com/liamcoop/lacvalidate/rules"
	"github.com/liamcoop/lacvalidate/rulesets"
)

// maxBundleBytes bounds a submitted bundle.
const maxBundleBytes = 64 << 20

type Server struct {
	cfg      config.Config
	manager  *rulesets.Manager
	executor *executor.Executor
	registry *prometheus.Registry
	log      *slog.Logger
	router   *chi.Mux
}

func NewServer(cfg config.Config, manager *rulesets.Manager, log *slog.Logger) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		cfg:      cfg,
		manager:  manager,
		registry: reg,
		log:      log,
		executor: executor.New(
			executor.WithWorkers(cfg.Workers),
			executor.WithLogger(log),
			executor.WithMetrics(metrics.New(reg)),
		),
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/v1/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Post("/api/v1/validate", s.handleValidateDefault)

	r.Route("/api/v1/rulesets", func(r chi.Router) {
		r.Get("/", s.handleListRulesets)

		r.Route("/{year}", func(r chi.Router) {
			r.Get("/rules", s.handleListRules)
			r.Post("/validate", s.handleValidate)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Years:    s.manager.Years(),
		Counters: logger.Snapshot(),
	})
}

func (s *Server) handleListRulesets(w http.ResponseWriter, r *http.Request) {
	latest, _, err := s.manager.Latest()
	if err != nil {
		respondError(w, http.StatusNotFound, "no rulesets configured", err)
		return
	}
	respondJSON(w, http.StatusOK, RulesetsResponse{
		Years:  s.manager.Years(),
		Latest: latest,
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	year, reg, ok := s.registryFor(w, r)
	if !ok {
		return
	}

	defs := reg.Rules()
	resp := RulesListResponse{Year: year, Rules: make([]RuleResponse, 0, len(defs))}
	for _, d := range defs {
		resp.Rules = append(resp.Rules, RuleResponse{
			Code:             d.Code,
			Message:          d.Message,
			AffectedFields:   d.AffectedFields,
			ApplicableTables: d.ApplicableTables,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	year, reg, ok := s.registryFor(w, r)
	if !ok {
		return
	}
	s.validate(w, r, year, reg)
}

// handleValidateDefault validates against the configured default year, or
// the latest year when none is configured.
func (s *Server) handleValidateDefault(w http.ResponseWriter, r *http.Request) {
	var (
		year int
		reg  *rules.Registry
		err  error
	)
	if s.cfg.DefaultYear > 0 {
		year = s.cfg.DefaultYear
		reg, err = s.manager.Registry(year)
	} else {
		year, reg, err = s.manager.Latest()
	}
	if err != nil {
		respondError(w, http.StatusNotFound, "ruleset not found", err)
		return
	}
	s.validate(w, r, year, reg)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request, year int, reg *rules.Registry) {
	bundle, err := dataset.DecodeBundle(http.MaxBytesReader(w, r.Body, maxBundleBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid bundle", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	runID := uuid.New().String()
	log := s.log.With("run_id", runID, "year", year)
	start := time.Now()

	var report *executor.Report
	if codes := r.URL.Query().Get("rules"); codes != "" {
		report, err = s.executor.RunSelected(ctx, reg, bundle, splitCodes(codes))
		if errors.Is(err, rules.ErrRuleNotFound) {
			respondError(w, http.StatusBadRequest, "unknown rule", err)
			return
		}
	} else {
		report, err = s.executor.Run(ctx, reg, bundle)
	}

	resp := ValidateResponse{
		RunID:    runID,
		Year:     year,
		Duration: time.Since(start).String(),
		Complete: err == nil,
		Flagged:  report.FlaggedCount(),
		Report:   report,
	}
	logger.CountRun(len(report.Failures), err != nil)
	if err != nil {
		resp.Error = err.Error()
		log.Warn("validation run incomplete", "error", err, "failures", len(report.Failures))
	} else {
		log.Info("validation run served", "flagged", resp.Flagged, "failures", len(report.Failures))
	}

	respondJSON(w, http.StatusOK, resp)
}

func splitCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

// registryFor resolves the {year} URL parameter, writing the error response
// itself when it cannot.
func (s *Server) registryFor(w http.ResponseWriter, r *http.Request) (int, *rules.Registry, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "year must be an integer", err)
		return 0, nil, false
	}
	reg, err := s.manager.Registry(year)
	if errors.Is(err, rulesets.ErrYearNotFound) {
		respondError(w, http.StatusNotFound, "ruleset not found", err)
		return 0, nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compose ruleset", err)
		return 0, nil, false
	}
	return year, reg, true
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	switch {
	case status >= 500:
		logger.ErrorHttp5xx()
	case status >= 400:
		logger.WarnHttp4xx()
	}

	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
