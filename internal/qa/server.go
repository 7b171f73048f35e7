// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package qa serves the QA control surface: probes, metrics, simulation
// gate inspection and on-demand resets. It is meant for test rigs and must
// not be exposed publicly.
package qa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ManuGH/worldflow/internal/health"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/reset"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/ManuGH/worldflow/internal/transition"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ErrMissingResetter is returned by New when no reset executor is given.
var ErrMissingResetter = errors.New("qa: reset executor is required")

// Resetter runs one reset. *reset.Service satisfies it.
type Resetter interface {
	Execute(ctx context.Context, req model.Request, rc model.Context) (reset.Result, error)
}

// Transitioner runs one scene transition. *transition.Service satisfies it.
type Transitioner interface {
	Run(ctx context.Context, plan transition.Plan) (transition.Outcome, error)
}

// Config controls the QA surface.
type Config struct {
	ServiceName  string
	RequestLimit int
	Window       time.Duration
}

// Server routes QA requests. It has no listener of its own; the daemon
// mounts Handler on an http.Server.
type Server struct {
	cfg         Config
	gate        *simgate.Gate
	resets      Resetter
	transitions Transitioner
	health      *health.Manager
	logger      zerolog.Logger
}

// New builds a server. gate, transitions and hm may be nil: the corresponding
// routes then answer 503.
func New(cfg Config, gate *simgate.Gate, resets Resetter, transitions Transitioner, hm *health.Manager) (*Server, error) {
	if resets == nil {
		return nil, ErrMissingResetter
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "worldflow-qa"
	}
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Server{
		cfg:         cfg,
		gate:        gate,
		resets:      resets,
		transitions: transitions,
		health:      hm,
		logger:      xglog.WithComponent("qa"),
	}, nil
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RequestLimit, s.cfg.Window))
		r.Get("/gate", s.handleGate)
		r.Post("/gate/{token}/release-all", s.handleReleaseAll)
		r.Post("/reset", s.handleReset)
		r.Post("/transition", s.handleTransition)
	})

	return otelHTTP(s.cfg.ServiceName)(r)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := xglog.WithComponent("qa")
		logger.Error().Err(err).Int("status", code).Msg("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, code int, kind string, err error) {
	body := errorBody{Error: kind}
	if err != nil {
		body.Detail = err.Error()
	}
	writeJSON(w, code, body)
}
