// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/meemo/hasher/cmd/hasher/cli"
	"github.com/meemo/hasher/lib/config"
)

// runFlags is the flag surface shared by every pipeline command. Flag
// values overlay the configuration file, which overlays the built-in
// defaults; only flags the user actually set participate in the
// overlay, so an untouched flag never masks a file setting.
type runFlags struct {
	configPath string
	verbose    int
	quiet      bool

	algorithms []string

	sqlOut   string
	sqlTable string
	useWAL   bool

	jsonOut    string
	emitDir    string
	emitFormat string

	maxDepth     int
	noFollow     bool
	cycleGuard   bool
	breadthFirst bool

	retryCount int
	retryDelay string

	compressCodec    string
	compressionLevel int
	hashBoth         bool
	decompress       bool
	hashCompressed   bool

	dryRun          bool
	failFast        bool
	continueOnError bool

	// set is the parsed flag set; overlay consults set.Changed so only
	// explicitly given flags override the file layer.
	set *pflag.FlagSet
}

func (f *runFlags) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "configuration file (yaml, json, or jsonc)")
	flagSet.CountVarP(&f.verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	flagSet.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")

	flagSet.StringSliceVar(&f.algorithms, "algorithms", nil, "hash algorithms to enable (comma-separated)")

	flagSet.StringVar(&f.sqlOut, "sql-out", "", "write records to this SQLite database")
	flagSet.StringVar(&f.sqlTable, "sql-table", "", "table name for the SQLite store")
	flagSet.BoolVar(&f.useWAL, "use-wal", false, "open the database in WAL journal mode")

	flagSet.StringVar(&f.jsonOut, "json-out", "", `write records to this file ("-" for stdout)`)
	flagSet.StringVar(&f.emitDir, "emit-dir", "", "write one record file per unit into this directory")
	flagSet.StringVar(&f.emitFormat, "emit-format", "", "record encoding: json or cbor")

	flagSet.IntVar(&f.maxDepth, "max-depth", -1, "traversal depth bound; 0 hashes only root-level files, -1 is unlimited")
	flagSet.BoolVar(&f.noFollow, "no-follow-symlinks", false, "do not follow symlinks during traversal")
	flagSet.BoolVar(&f.cycleGuard, "cycle-guard", false, "track visited directories to break symlink cycles")
	flagSet.BoolVar(&f.breadthFirst, "breadth-first", false, "traverse breadth-first instead of depth-first")

	flagSet.IntVar(&f.retryCount, "retry-count", 3, "additional attempts after a transient failure")
	flagSet.StringVar(&f.retryDelay, "retry-delay", "5s", "pause between retry attempts")

	flagSet.StringVar(&f.compressCodec, "compress", "", "codec for compressed copy destinations (gzip, zstd, lz4)")
	flagSet.IntVar(&f.compressionLevel, "compression-level", 6, "encoder level, 1 (fastest) to 9 (smallest)")
	flagSet.BoolVar(&f.hashBoth, "hash-both", false, "hash codec-suffixed units both as stored and as decoded")
	flagSet.BoolVar(&f.decompress, "decompress", false, "hash the decoded content of codec-suffixed units")
	flagSet.BoolVar(&f.hashCompressed, "hash-compressed", false, "hash codec-suffixed units exactly as stored")

	flagSet.BoolVar(&f.dryRun, "dry-run", false, "validate and plan without writing anything")
	flagSet.BoolVar(&f.failFast, "fail-fast", false, "abort on the first per-item failure")
	flagSet.BoolVar(&f.continueOnError, "continue-on-error", false, "record per-item failures and keep going")

	f.set = flagSet
}

// resolve layers defaults, the optional configuration file, and the
// explicitly set flags, then validates the result.
func (f *runFlags) resolve() (*config.Resolved, error) {
	cfg := config.Default()
	if f.configPath != "" {
		if err := cfg.LoadFile(f.configPath); err != nil {
			return nil, err
		}
	}

	changed := f.set.Changed
	if changed("algorithms") {
		cfg.Algorithms = f.algorithms
	}
	if changed("sql-out") {
		cfg.Database.Path = f.sqlOut
	}
	if changed("sql-table") {
		cfg.Database.Table = f.sqlTable
	}
	if changed("use-wal") {
		cfg.Database.WAL = f.useWAL
	}
	if changed("json-out") {
		cfg.Emit.Path = f.jsonOut
	}
	if changed("emit-dir") {
		cfg.Emit.Dir = f.emitDir
	}
	if changed("emit-format") {
		cfg.Emit.Format = f.emitFormat
	}
	if changed("max-depth") {
		cfg.Walk.MaxDepth = f.maxDepth
	}
	if changed("no-follow-symlinks") {
		cfg.Walk.FollowSymlinks = !f.noFollow
	}
	if changed("cycle-guard") {
		cfg.Walk.CycleGuard = f.cycleGuard
	}
	if changed("breadth-first") {
		cfg.Walk.BreadthFirst = f.breadthFirst
	}
	if changed("retry-count") {
		cfg.Retry.Count = f.retryCount
	}
	if changed("retry-delay") {
		cfg.Retry.Delay = f.retryDelay
	}
	if changed("compress") {
		cfg.Compression.Codec = f.compressCodec
	}
	if changed("compression-level") {
		cfg.Compression.Level = f.compressionLevel
	}
	if changed("hash-both") {
		cfg.Compression.HashBoth = f.hashBoth
	}
	if changed("decompress") {
		cfg.Compression.Decompress = f.decompress
	}
	if changed("hash-compressed") {
		cfg.Compression.HashCompressed = f.hashCompressed
	}
	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if changed("fail-fast") {
		cfg.FailFast = f.failFast
	}
	if changed("continue-on-error") {
		cfg.FailFast = !f.continueOnError
	}

	return cfg.Resolve()
}

// logger builds the invocation logger from the verbosity flags.
func (f *runFlags) logger() *slog.Logger {
	return cli.NewLogger(f.verbose, f.quiet)
}
