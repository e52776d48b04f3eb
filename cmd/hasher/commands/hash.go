// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/meemo/hasher/cmd/hasher/cli"
	"github.com/meemo/hasher/lib/pipeline"
)

func hashCommand() *cli.Command {
	var (
		flags     runFlags
		stdin     bool
		stdinName string
		skipFiles int
	)

	return &cli.Command{
		Name:    "hash",
		Summary: "Hash a file, a directory tree, or stdin",
		Description: `Hash every file under a path (or a single file, or stdin) with the
enabled algorithm set, reading each file exactly once regardless of how
many algorithms are enabled.

Records go to every configured output: a SQLite database (--sql-out), a
JSON/CBOR stream (--json-out), or one file per record (--emit-dir).
With no output configured, records stream to stdout as JSON lines.

Compressed files (.gz, .zst, .lz4 suffix) follow the compression
policy: by default they are hashed exactly as stored; --decompress
hashes the decoded content instead, and --hash-both records both.`,
		Usage: "hasher hash [flags] <path>",
		Examples: []cli.Example{
			{
				Description: "Hash a tree into a SQLite database",
				Command:     "hasher hash --sql-out hashes.db ./data",
			},
			{
				Description: "Hash stdin under a logical name",
				Command:     "tar cf - ./data | hasher hash --stdin --stdin-name data.tar",
			},
			{
				Description: "Resume a partial run, skipping already-hashed files",
				Command:     "hasher hash --sql-out hashes.db --skip-files 1200 ./data",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("hash", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&stdin, "stdin", false, "hash standard input as a single unit")
			flagSet.StringVar(&stdinName, "stdin-name", "-", "logical path recorded for the stdin unit")
			flagSet.IntVar(&skipFiles, "skip-files", 0, "skip the first N files of the traversal")
			return flagSet
		},
		Run: func(args []string) error {
			if stdin {
				if len(args) != 0 {
					return fmt.Errorf("--stdin takes no path argument, got %q", args[0])
				}
			} else if len(args) != 1 {
				return fmt.Errorf("hash takes exactly one path argument (or --stdin)")
			}

			resolved, err := flags.resolve()
			if err != nil {
				return err
			}
			logger := flags.logger()

			rt, err := buildRuntime(resolved, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signalContext()
			defer stop()

			opts := pipeline.HashOptions{SkipFiles: skipFiles}
			if stdin {
				opts.Stdin = os.Stdin
				opts.StdinPath = stdinName
			} else {
				opts.Root = args[0]
			}

			summary, err := rt.env.Hash(ctx, opts)
			logSummary(logger, "hash", summary)
			return err
		},
	}
}
