// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"testing"
	"time"
)

func TestValidator_OneOf(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"strict", "strict", false},
		{"release", "release", false},
		{"empty", "", true},
		{"wrong case", "Strict", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.OneOf("mode", tt.value, []string{"strict", "release"})
			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_HostPort(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"all interfaces", ":8089", false},
		{"loopback", "127.0.0.1:6379", false},
		{"ephemeral", "127.0.0.1:0", false},
		{"missing port", "localhost", true},
		{"bad port", "localhost:http", true},
		{"port too large", ":70000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.HostPort("addr", tt.addr)
			if tt.wantErr == v.IsValid() {
				t.Errorf("addr %q: wantErr=%v, got %v", tt.addr, tt.wantErr, v.Err())
			}
		})
	}
}

func TestValidator_Durations(t *testing.T) {
	v := New()
	v.NonNegativeDuration("zero", 0)
	v.PositiveDuration("positive", time.Second)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v.NonNegativeDuration("negative", -time.Second)
	v.PositiveDuration("tickRate", 0)
	if got := len(v.Errors()); got != 2 {
		t.Fatalf("expected 2 errors, got %d", got)
	}
}

func TestValidationError_Aggregates(t *testing.T) {
	v := New()
	v.Positive("burst", 0)
	v.FloatRange("samplingRate", 1.5, 0, 1)
	v.NotEmpty("endpoint", " ")

	err := v.Err()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(verr.Errors()))
	}
	if verr.Errors()[0].Field != "burst" {
		t.Errorf("expected first field burst, got %s", verr.Errors()[0].Field)
	}
}

func TestValidator_NoErrors(t *testing.T) {
	v := New()
	v.NonNegative("count", 0)
	if err := v.Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
