// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "strict", want: ModeStrict},
		{in: "Release", want: ModeRelease},
		{in: "prod", want: ModeRelease},
		{in: "dev", want: ModeStrict},
		{in: "bogus", want: ModeStrict, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPolicy_FollowsMode(t *testing.T) {
	mode := NewAtomicMode(ModeStrict)
	p := NewDefault(mode, nil)

	assert.True(t, p.IsStrict())
	assert.True(t, p.AllowSceneScan())
	assert.True(t, p.AllowLegacyFallback())
	assert.Equal(t, "default/strict", p.Name())

	prev := mode.Set(ModeRelease)
	assert.Equal(t, ModeStrict, prev)
	assert.False(t, p.IsStrict())
	assert.False(t, p.AllowSceneScan())
	assert.True(t, p.AllowLegacyFallback())
	assert.Equal(t, "default/release", p.Name())

	// nil reporter is a valid sink
	p.ReportDegraded(Degraded{Feature: "f", Reason: "r"})
}

func newTestReporter(buf *bytes.Buffer, cfg ReporterConfig) *DegradedReporter {
	l := zerolog.New(buf)
	cfg.Logger = &l
	return NewDegradedReporter(cfg)
}

func TestDegradedReporter_DedupesPerFrame(t *testing.T) {
	var buf bytes.Buffer
	var sunk []Degraded
	r := newTestReporter(&buf, ReporterConfig{Sink: func(d Degraded) { sunk = append(sunk, d) }})

	d := Degraded{Feature: "SimGate", Reason: "Unavailable", Signature: "ctx-1"}
	r.BeginFrame(1)
	assert.True(t, r.Report(d))
	assert.False(t, r.Report(d), "same message in same frame is deduplicated")
	assert.True(t, r.Report(Degraded{Feature: "SimGate", Reason: "Other"}))

	r.BeginFrame(1)
	assert.False(t, r.Report(d), "re-entering the current frame keeps the seen set")

	r.BeginFrame(2)
	assert.Equal(t, uint64(2), r.Frame())
	assert.True(t, r.Report(d), "new frame clears dedupe")

	assert.Len(t, sunk, 3)
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "[DEGRADED] feature=SimGate reason=Unavailable signature=ctx-1")
}

func TestDegradedReporter_RateLimited(t *testing.T) {
	var buf bytes.Buffer
	r := newTestReporter(&buf, ReporterConfig{RatePerSecond: 0.0001, Burst: 2})

	emitted := 0
	for i := 0; i < 5; i++ {
		if r.Report(Degraded{Feature: "f", Reason: string(rune('a' + i))}) {
			emitted++
		}
	}
	assert.Equal(t, 2, emitted)
}

func TestDegraded_Message(t *testing.T) {
	d := Degraded{Feature: "f", Reason: "r", Detail: "d", Signature: "s", Profile: "p"}
	assert.Equal(t, "[DEGRADED] feature=f reason=r detail=d signature=s profile=p", d.Message())
}
