// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch retrieves remote content for the download pipeline.
// It performs single attempts; the pipeline owns the retry loop so a
// failed transfer can truncate its partial destination before the
// next attempt.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/meemo/hasher/lib/sink"
	"github.com/meemo/hasher/lib/source"
)

// StatusError is a non-2xx response. Server-side statuses (5xx, plus
// 408 and 429) come back wrapped in sink.Transient; client errors are
// permanent.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", e.URL, e.Status)
}

// Client issues HTTP GETs with a per-request timeout.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a Client. A zero timeout means no limit; a nil
// logger discards diagnostics.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Get starts one GET of url. On success it returns the response body
// and the declared content length (source.SizeUnknown when the server
// did not declare one); the caller owns closing the body. Transport
// errors and retryable statuses are marked transient.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request for %s: %w", url, err)
	}

	response, err := c.http.Do(request)
	if err != nil {
		// Connection refused, DNS failure, timeout: all worth another
		// attempt.
		return nil, 0, &sink.Transient{Err: fmt.Errorf("fetching %s: %w", url, err)}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		response.Body.Close()
		statusErr := &StatusError{URL: url, Status: response.StatusCode}
		if retryableStatus(response.StatusCode) {
			return nil, 0, &sink.Transient{Err: statusErr}
		}
		return nil, 0, statusErr
	}

	size := response.ContentLength
	if size < 0 {
		size = source.SizeUnknown
	}
	c.logger.Debug("fetch started", "url", url, "declared_size", size)
	return response.Body, size, nil
}

func retryableStatus(status int) bool {
	return status >= 500 ||
		status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests
}
