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
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/ManuGH/worldflow/internal/transition"
)

var (
	errTransitionsUnavailable = errors.New("transition service not configured")
	errMissingSignature       = errors.New("contextSignature is required")
)

// TransitionRequest is the body of POST /v1/transition.
type TransitionRequest struct {
	ContextSignature string   `json:"contextSignature"`
	Profile          string   `json:"profile"`
	FromRoute        string   `json:"fromRoute"`
	ToRoute          string   `json:"toRoute"`
	Load             []string `json:"load"`
	Unload           []string `json:"unload"`
	Active           string   `json:"active"`
}

// TransitionResponse summarizes a finished transition.
type TransitionResponse struct {
	ContextSignature string   `json:"contextSignature"`
	State            string   `json:"state"`
	History          []string `json:"history"`
	PreReveal        string   `json:"preReveal,omitempty"`
	DurationMS       int64    `json:"durationMs"`
	Error            string   `json:"error,omitempty"`
}

// handleTransition runs a transition and answers once it has completed or
// failed. The request context bounds the completion gate await.
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	if s.transitions == nil {
		writeError(w, http.StatusServiceUnavailable, "transitions_unavailable", errTransitionsUnavailable)
		return
	}

	var body TransitionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxResetBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	body.ContextSignature = strings.TrimSpace(body.ContextSignature)
	if body.ContextSignature == "" {
		writeError(w, http.StatusBadRequest, "invalid_signature", errMissingSignature)
		return
	}

	out, err := s.transitions.Run(r.Context(), transition.Plan{
		Context: scene.TransitionContext{
			Signature: body.ContextSignature,
			ProfileID: body.Profile,
			FromRoute: body.FromRoute,
			ToRoute:   body.ToRoute,
		},
		Load:   body.Load,
		Unload: body.Unload,
		Active: body.Active,
	})

	resp := TransitionResponse{
		ContextSignature: body.ContextSignature,
		State:            string(out.State),
		History:          make([]string, 0, len(out.History)),
		PreReveal:        string(out.PreReveal),
		DurationMS:       out.Duration.Milliseconds(),
	}
	for _, st := range out.History {
		resp.History = append(resp.History, string(st))
	}
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Error = err.Error()
	if errors.Is(err, transition.ErrTransitionInFlight) {
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	logger := xglog.WithContext(r.Context(), s.logger)
	logger.Error().Err(err).
		Str(xglog.FieldContextSignature, body.ContextSignature).
		Str(xglog.FieldNewState, resp.State).
		Msg("QA transition failed")
	writeJSON(w, http.StatusInternalServerError, resp)
}
