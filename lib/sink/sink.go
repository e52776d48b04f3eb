// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package sink routes completed hash records to their destinations.
// A Router fans each record out to every enabled sink — SQLite store,
// emission writer — independently, so a slow or failing sink never
// blocks the others from seeing the record. Failed writes retry per
// RetryPolicy when the failure is marked Transient.
package sink

import (
	"context"

	"github.com/meemo/hasher/lib/record"
)

// Sink accepts completed hash records. Implementations are store- or
// emission-backed; Validate must be cheap and side-effect free so
// dry-run can exercise it without writing.
type Sink interface {
	// Name identifies the sink in diagnostics.
	Name() string

	// Validate checks that rec can be written: required fields
	// present, digests shaped for this sink. It must not touch the
	// backing medium.
	Validate(rec *record.Hash) error

	// Write persists rec. Retryable failures are wrapped in
	// Transient; anything else is treated as permanent.
	Write(ctx context.Context, rec *record.Hash) error
}
