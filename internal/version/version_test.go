// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })

	Version, Commit, Date = "v9.9.9", "abc123", "2026-01-01"
	if got, want := String(), "v9.9.9 (commit: abc123, built: 2026-01-01)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
