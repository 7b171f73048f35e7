// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the request-scoped values of the world reset pipeline:
// requests, reset contexts, scopes and decisions. Values are created per call
// and discarded once the pipeline finishes.
package model
