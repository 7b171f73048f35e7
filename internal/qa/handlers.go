// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package qa

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/reset"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxResetBody = 64 << 10

var errGateUnavailable = errors.New("simulation gate not configured")

func metricsHandler() http.Handler { return promhttp.Handler() }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}
	s.health.ServeHealth(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
		return
	}
	s.health.ServeReady(w, r)
}

// GateResponse is the body of GET /v1/gate.
type GateResponse struct {
	Open             bool                 `json:"open"`
	ActiveTokenCount int                  `json:"activeTokenCount"`
	Tokens           []simgate.TokenCount `json:"tokens"`
}

func (s *Server) handleGate(w http.ResponseWriter, _ *http.Request) {
	if s.gate == nil {
		writeError(w, http.StatusServiceUnavailable, "gate_unavailable", errGateUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, GateResponse{
		Open:             s.gate.IsOpen(),
		ActiveTokenCount: s.gate.ActiveTokenCount(),
		Tokens:           s.gate.Snapshot(),
	})
}

// ReleaseResponse is the body of POST /v1/gate/{token}/release-all.
type ReleaseResponse struct {
	Token    string `json:"token"`
	Released int    `json:"released"`
	Open     bool   `json:"open"`
}

func (s *Server) handleReleaseAll(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		writeError(w, http.StatusServiceUnavailable, "gate_unavailable", errGateUnavailable)
		return
	}
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_token", simgate.ErrEmptyToken)
		return
	}

	released := s.gate.ReleaseAll(token)
	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Warn().
		Str(xglog.FieldEvent, "qa.gate.release_all").
		Str(xglog.FieldToken, token).
		Int(xglog.FieldTokenCount, released).
		Msg("QA forced simulation gate release")

	writeJSON(w, http.StatusOK, ReleaseResponse{Token: token, Released: released, Open: s.gate.IsOpen()})
}

// ResetRequest is the body of POST /v1/reset.
type ResetRequest struct {
	ContextSignature string   `json:"contextSignature"`
	Reason           string   `json:"reason"`
	Scopes           []string `json:"scopes"`
	Soft             bool     `json:"soft"`
}

// ResetResponse summarizes the reset outcome.
type ResetResponse struct {
	Decision   string        `json:"decision"`
	SkipReason string        `json:"skipReason,omitempty"`
	Violation  bool          `json:"violation"`
	Soft       bool          `json:"soft"`
	Ran        []string      `json:"ran"`
	Findings   []FindingBody `json:"findings,omitempty"`
	Failures   []string      `json:"failures,omitempty"`
	DurationMS int64         `json:"durationMs"`
	Error      string        `json:"error,omitempty"`
}

// FindingBody is a guard finding on the wire.
type FindingBody struct {
	Kind   string `json:"kind"`
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var body ResetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResetBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}

	scopes := make([]model.Scope, 0, len(body.Scopes))
	for _, name := range body.Scopes {
		sc, err := model.ParseScope(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scope", err)
			return
		}
		scopes = append(scopes, sc)
	}

	var flags model.Flags
	if body.Soft {
		flags = model.FlagSoftReset
	}
	req := model.NewRequest(model.Request{
		ContextSignature: body.ContextSignature,
		Reason:           body.Reason,
		Origin:           model.OriginQA,
	})
	rc := model.NewContext(body.Reason, flags, scopes...)

	res, err := s.resets.Execute(r.Context(), req, rc)
	resp := toResetResponse(res)
	if err != nil {
		resp.Error = err.Error()
		logger := xglog.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).
			Str(xglog.FieldContextSignature, req.ContextSignature).
			Msg("QA reset failed")
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func toResetResponse(res reset.Result) ResetResponse {
	resp := ResetResponse{
		Decision:   res.Decision.Kind().String(),
		Violation:  res.Decision.IsViolation(),
		Soft:       res.Soft,
		Ran:        res.Ran,
		DurationMS: res.Duration.Milliseconds(),
	}
	if resp.Ran == nil {
		resp.Ran = []string{}
	}
	if skip, ok := res.Decision.Skipped(); ok {
		resp.SkipReason = skip.Reason
	}
	for _, f := range res.Findings {
		resp.Findings = append(resp.Findings, FindingBody{Kind: string(f.Kind), Check: f.Check, Detail: f.Detail})
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	return resp
}
