// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/meemo/hasher/cmd/hasher/cli"
	"github.com/meemo/hasher/lib/pipeline"
)

func verifyCommand() *cli.Command {
	var (
		flags          runFlags
		mismatchesOnly bool
	)

	return &cli.Command{
		Name:    "verify",
		Summary: "Verify a tree against recorded hashes",
		Description: `Recompute hashes for every file under a path and compare them against
the records in the SQLite database. Each file classifies as one of:

  match             all enabled algorithms agree with the stored digests
  mismatch          size or any digest differs
  missing_in_store  the file exists but has no stored record
  missing_on_disk   a stored record's file no longer exists

Classifications emit as structured records and aggregate into the run
summary. --mismatches-only suppresses match records from the emission
stream; matches still count in the summary.`,
		Usage: "hasher verify [flags] <path>",
		Examples: []cli.Example{
			{
				Description: "Verify a tree, emitting every classification",
				Command:     "hasher verify --sql-out hashes.db ./data",
			},
			{
				Description: "Report discrepancies only",
				Command:     "hasher verify --sql-out hashes.db --mismatches-only ./data",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&mismatchesOnly, "mismatches-only", false, "emit only discrepancies, not matches")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("verify takes exactly one path argument")
			}

			resolved, err := flags.resolve()
			if err != nil {
				return err
			}
			if resolved.Database.Path == "" {
				return fmt.Errorf("verify requires a database (--sql-out or database.path in the config file)")
			}
			logger := flags.logger()

			rt, err := buildRuntime(resolved, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signalContext()
			defer stop()

			summary, err := rt.env.Verify(ctx, pipeline.VerifyOptions{
				Root:           args[0],
				MismatchesOnly: mismatchesOnly,
			})
			logSummary(logger, "verify", summary)
			return err
		},
	}
}
