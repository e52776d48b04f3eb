// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/meemo/hasher/lib/compress"
	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/sink"
	"github.com/meemo/hasher/lib/walk"
)

// Config is the layering surface: defaults, then file values, then
// flag values land here in order. Call Resolve to turn it into the
// immutable form the pipelines consume.
type Config struct {
	// Algorithms is the enabled algorithm set by canonical name. The
	// set is fixed for the whole run; it is never varied per file.
	Algorithms []string `yaml:"algorithms" json:"algorithms"`

	Database    DatabaseConfig    `yaml:"database" json:"database"`
	Emit        EmitConfig        `yaml:"emit" json:"emit"`
	Walk        WalkConfig        `yaml:"walk" json:"walk"`
	Retry       RetryConfig       `yaml:"retry" json:"retry"`
	Compression CompressionConfig `yaml:"compression" json:"compression"`
	Fetch       FetchConfig       `yaml:"fetch" json:"fetch"`

	// DryRun suppresses all physical writes while still exercising
	// validation.
	DryRun bool `yaml:"dry_run" json:"dry_run"`

	// FailFast aborts the run on the first per-item failure.
	FailFast bool `yaml:"fail_fast" json:"fail_fast"`
}

// DatabaseConfig configures the SQLite store sink.
type DatabaseConfig struct {
	// Path enables the store sink when non-empty.
	Path string `yaml:"path" json:"path"`

	// Table is the table name. Must be a plain identifier.
	Table string `yaml:"table" json:"table"`

	// WAL selects write-ahead logging.
	WAL bool `yaml:"use_wal" json:"use_wal"`

	// PoolSize is the connection pool size (0 = automatic).
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// EmitConfig configures the structured emission sink.
type EmitConfig struct {
	// Path enables the emission sink: a file path, or "-" for stdout.
	Path string `yaml:"path" json:"path"`

	// Dir switches to directory mode: one file per record, named by
	// the payload's sha256.
	Dir string `yaml:"dir" json:"dir"`

	// Format is "json" (lines) or "cbor".
	Format string `yaml:"format" json:"format"`
}

// WalkConfig configures traversal.
type WalkConfig struct {
	// MaxDepth bounds descent; -1 means unlimited. 0 limits the walk
	// to root-level files.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// FollowSymlinks descends into symlinked directories. Without
	// CycleGuard a link cycle loops forever — documented, not
	// papered over.
	FollowSymlinks bool `yaml:"follow_symlinks" json:"follow_symlinks"`

	// CycleGuard opts into the visited-canonical-path set.
	CycleGuard bool `yaml:"cycle_guard" json:"cycle_guard"`

	// BreadthFirst switches from the default depth-first order.
	BreadthFirst bool `yaml:"breadth_first" json:"breadth_first"`
}

// RetryConfig bounds retries of transient sink and fetch failures.
type RetryConfig struct {
	// Count is the number of additional attempts after the first.
	Count int `yaml:"count" json:"count"`

	// Delay is the pause between attempts, in Go duration syntax
	// ("5s", "250ms").
	Delay string `yaml:"delay" json:"delay"`
}

// CompressionConfig selects the variant policy and writer settings.
type CompressionConfig struct {
	// HashBoth, Decompress, and HashCompressed resolve into one
	// policy with precedence hash-both > decompress > compressed-only.
	HashBoth       bool `yaml:"hash_both" json:"hash_both"`
	Decompress     bool `yaml:"decompress" json:"decompress"`
	HashCompressed bool `yaml:"hash_compressed" json:"hash_compressed"`

	// Codec names the codec for compressed copy destinations
	// ("gzip", "zstd", "lz4"; empty = plain copy).
	Codec string `yaml:"codec" json:"codec"`

	// Level is the encoder level, 1 (fastest) to 9 (smallest).
	Level int `yaml:"level" json:"level"`
}

// FetchConfig configures the HTTP client.
type FetchConfig struct {
	// Timeout is the per-request limit in Go duration syntax; empty
	// or "0" means none.
	Timeout string `yaml:"timeout" json:"timeout"`

	// Concurrency bounds simultaneous downloads.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// Default returns the built-in base layer.
func Default() *Config {
	return &Config{
		Algorithms: []string{"crc32", "md5", "sha1", "sha256", "blake3"},
		Database: DatabaseConfig{
			Table: "hashes",
		},
		Emit: EmitConfig{
			Format: "json",
		},
		Walk: WalkConfig{
			MaxDepth:       -1,
			FollowSymlinks: true,
		},
		Retry: RetryConfig{
			Count: 3,
			Delay: "5s",
		},
		Compression: CompressionConfig{
			Level: 6,
		},
		Fetch: FetchConfig{
			Timeout:     "60s",
			Concurrency: 4,
		},
	}
}

// LoadFile merges the named file's values over the current config.
// YAML is selected by extension; .json/.jsonc files may carry
// comments and trailing commas.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Err: fmt.Errorf("reading config: %w", err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return &Error{Err: fmt.Errorf("parsing %s: %w", path, err)}
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return &Error{Err: fmt.Errorf("parsing %s: %w", path, err)}
		}
	}
	return nil
}

// Error marks a configuration failure. It is always fatal before any
// work starts; no partial run begins with invalid configuration.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "config: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Resolved is the immutable, fully parsed form of a Config.
type Resolved struct {
	Algorithms []digest.Algorithm

	Walk walk.Options

	Policy           compress.Policy
	CopyCodec        compress.Codec
	CompressionLevel int

	Retry sink.RetryPolicy

	EmitPath   string
	EmitDir    string
	EmitFormat sink.Format

	Database DatabaseConfig

	FetchTimeout     time.Duration
	FetchConcurrency int

	DryRun   bool
	FailFast bool
}

// Resolve validates the layered configuration and parses it into its
// concrete form. All errors are *Error.
func (c *Config) Resolve() (*Resolved, error) {
	var errs []error

	algorithms, err := digest.ParseAll(c.Algorithms)
	if err != nil {
		errs = append(errs, err)
	}
	if len(c.Algorithms) == 0 {
		errs = append(errs, fmt.Errorf("algorithms must not be empty"))
	}

	maxDepth := c.Walk.MaxDepth
	if maxDepth < 0 {
		maxDepth = math.MaxInt
	}

	codec, err := compress.ParseCodec(c.Compression.Codec)
	if err != nil {
		errs = append(errs, err)
	}

	if c.Retry.Count < 0 {
		errs = append(errs, fmt.Errorf("retry.count must not be negative"))
	}
	retryDelay, err := parseDuration("retry.delay", c.Retry.Delay)
	if err != nil {
		errs = append(errs, err)
	}

	format, err := sink.ParseFormat(c.Emit.Format)
	if err != nil {
		errs = append(errs, err)
	}
	if c.Emit.Path != "" && c.Emit.Dir != "" {
		errs = append(errs, fmt.Errorf("emit.path and emit.dir are mutually exclusive"))
	}

	fetchTimeout, err := parseDuration("fetch.timeout", c.Fetch.Timeout)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, &Error{Err: errors.Join(errs...)}
	}

	return &Resolved{
		Algorithms: algorithms,
		Walk: walk.Options{
			MaxDepth:       maxDepth,
			FollowSymlinks: c.Walk.FollowSymlinks,
			CycleGuard:     c.Walk.CycleGuard,
			BreadthFirst:   c.Walk.BreadthFirst,
		},
		Policy: compress.ResolvePolicy(
			c.Compression.HashBoth,
			c.Compression.Decompress,
			c.Compression.HashCompressed,
		),
		CopyCodec:        codec,
		CompressionLevel: c.Compression.Level,
		Retry: sink.RetryPolicy{
			Retries: c.Retry.Count,
			Delay:   retryDelay,
		},
		EmitPath:         c.Emit.Path,
		EmitDir:          c.Emit.Dir,
		EmitFormat:       format,
		Database:         c.Database,
		FetchTimeout:     fetchTimeout,
		FetchConcurrency: c.Fetch.Concurrency,
		DryRun:           c.DryRun,
		FailFast:         c.FailFast,
	}, nil
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return parsed, nil
}
