// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"fmt"
	"sync"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Degraded is one degraded-mode report. Detail, Signature and Profile are optional.
type Degraded struct {
	Feature   string
	Reason    string
	Detail    string
	Signature string
	Profile   string
}

// Message renders the report; it doubles as the deduplication key.
func (d Degraded) Message() string {
	msg := fmt.Sprintf("[DEGRADED] feature=%s reason=%s", d.Feature, d.Reason)
	if d.Detail != "" {
		msg += " detail=" + d.Detail
	}
	if d.Signature != "" {
		msg += " signature=" + d.Signature
	}
	if d.Profile != "" {
		msg += " profile=" + d.Profile
	}
	return msg
}

// Reporter accepts degraded-mode reports.
type Reporter interface {
	Report(d Degraded) bool
}

// ReporterConfig tunes the storm limiter. Zero values disable rate limiting.
type ReporterConfig struct {
	RatePerSecond float64
	Burst         int
	Logger        *zerolog.Logger
	// Sink receives every emitted report, e.g. to publish it on the bus.
	Sink func(Degraded)
}

// DegradedReporter logs each distinct message at most once per frame. Frames
// are advanced by the driver loop through BeginFrame; a global rate limiter
// caps emissions across frames.
type DegradedReporter struct {
	mu      sync.Mutex
	frame   uint64
	seen    map[string]struct{}
	limiter *rate.Limiter
	logger  zerolog.Logger
	sink    func(Degraded)
}

// NewDegradedReporter builds a reporter from cfg.
func NewDegradedReporter(cfg ReporterConfig) *DegradedReporter {
	r := &DegradedReporter{
		seen:   make(map[string]struct{}),
		logger: xglog.WithComponent("degraded"),
		sink:   cfg.Sink,
	}
	if cfg.Logger != nil {
		r.logger = *cfg.Logger
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return r
}

// BeginFrame starts a new deduplication frame. Calling it again with the
// current frame keeps the seen set.
func (r *DegradedReporter) BeginFrame(frame uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if frame == r.frame {
		return
	}
	r.frame = frame
	clear(r.seen)
}

// Frame returns the current deduplication frame.
func (r *DegradedReporter) Frame() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// Report emits d unless the same message was already emitted this frame or
// the storm limiter is exhausted. It returns true when d was emitted.
func (r *DegradedReporter) Report(d Degraded) bool {
	msg := d.Message()

	r.mu.Lock()
	if _, dup := r.seen[msg]; dup {
		r.mu.Unlock()
		metrics.RecordDegradedReport(d.Feature, "deduplicated")
		return false
	}
	r.seen[msg] = struct{}{}
	frame := r.frame
	r.mu.Unlock()

	if r.limiter != nil && !r.limiter.Allow() {
		metrics.RecordDegradedReport(d.Feature, "rate_limited")
		return false
	}

	metrics.RecordDegradedReport(d.Feature, "emitted")
	ev := r.logger.Warn().
		Str(xglog.FieldEvent, "reset.degraded").
		Str(xglog.FieldFeature, d.Feature).
		Str(xglog.FieldReason, d.Reason).
		Uint64(xglog.FieldFrame, frame)
	if d.Detail != "" {
		ev = ev.Str(xglog.FieldDetail, d.Detail)
	}
	if d.Signature != "" {
		ev = ev.Str(xglog.FieldContextSignature, d.Signature)
	}
	if d.Profile != "" {
		ev = ev.Str(xglog.FieldProfile, d.Profile)
	}
	ev.Msg(msg)

	if r.sink != nil {
		r.sink(d)
	}
	return true
}
