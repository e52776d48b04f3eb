// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides layered configuration for hasher runs.
//
// Settings resolve once, before any work starts, from three layers:
// built-in defaults, then an optional configuration file (YAML, or
// JSON with comments), then command-line flags. There is no automatic
// file discovery — the file is named explicitly with --config, which
// keeps configuration deterministic and auditable.
//
// [Config] is the mutable layering surface; [Config.Resolve] turns it
// into an immutable [Resolved] value (parsed algorithm set, concrete
// policies and durations) that is passed explicitly into the
// pipelines. Invalid configuration fails at Resolve, before the first
// file is touched: a run never starts partially configured.
//
// This package depends only on the leaf libraries it resolves into
// (digest, compress, sink, walk).
package config
