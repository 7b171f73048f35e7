// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "errors"

// ErrUnknownScope is returned when a scope name does not resolve.
var ErrUnknownScope = errors.New("unknown reset scope")
