// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transient marks an error as retryable: the same write may succeed on
// a later attempt. Errors not wrapped in Transient are treated as
// permanent and fail immediately.
type Transient struct {
	Err error
}

func (t *Transient) Error() string { return t.Err.Error() }
func (t *Transient) Unwrap() error { return t.Err }

// IsTransient reports whether err (or anything it wraps) is marked
// retryable.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}

// RetryPolicy bounds how persistently a failed sink write is retried.
type RetryPolicy struct {
	// Retries is the number of additional attempts after the first;
	// zero means a single attempt.
	Retries int

	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// retryState tracks one write through the attempt loop. The states
// are explicit so diagnostics can say where a write ended up rather
// than inferring it from error shape.
type retryState uint8

const (
	stateAttempting retryState = iota
	stateRetrying
	stateSucceeded
	stateFailed
)

func (s retryState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateRetrying:
		return "retrying"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Do runs fn until it succeeds, returns a permanent error, or the
// attempt budget is spent. Only errors marked Transient earn another
// attempt. The returned error is the last attempt's error. Total wait
// is bounded by Retries × Delay.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	attempt := 0
	state := stateAttempting
	for {
		switch state {
		case stateAttempting:
			attempt++
			lastErr = fn()
			switch {
			case lastErr == nil:
				state = stateSucceeded
			case IsTransient(lastErr) && attempt <= p.Retries:
				state = stateRetrying
			default:
				state = stateFailed
			}
		case stateRetrying:
			if p.Delay > 0 {
				select {
				case <-time.After(p.Delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			state = stateAttempting
		case stateSucceeded:
			return nil
		case stateFailed:
			return lastErr
		}
	}
}
