// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/meemo/hasher/cmd/hasher/cli"
	"github.com/meemo/hasher/lib/pipeline"
)

func downloadCommand() *cli.Command {
	var (
		flags        runFlags
		noClobber    bool
		skipFailures bool
		concurrency  int
	)

	return &cli.Command{
		Name:    "download",
		Summary: "Download URLs, hashing the bytes as they arrive",
		Description: `Fetch each URL into a destination directory, computing the enabled
digests from the same stream that writes the file — downloaded bytes
are never read back from disk for hashing.

Sources are literal URLs and/or list files with one URL per line
(blank lines and lines starting with "#" are ignored). Every URL is
processed and emitted independently under bounded concurrency; a
download outcome record (success or failure with a reason) emits per
URL. Transient failures (connection errors, 5xx, 408, 429) retry per
the retry policy; by default a permanent failure aborts the run, and
--skip-failures records it and moves on instead.`,
		Usage: "hasher download [flags] <url|list-file>... <dir>",
		Examples: []cli.Example{
			{
				Description: "Download one URL, recording its hashes",
				Command:     "hasher download --sql-out hashes.db https://example.com/release.tar.gz ./downloads",
			},
			{
				Description: "Work through a URL list, eight at a time",
				Command:     "hasher download --skip-failures --concurrency 8 urls.txt ./downloads",
			},
			{
				Description: "Fill in missing files without touching existing ones",
				Command:     "hasher download --no-clobber urls.txt ./downloads",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("download", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&noClobber, "no-clobber", false, "skip URLs whose destination file already exists")
			flagSet.BoolVar(&skipFailures, "skip-failures", false, "record failed URLs and continue instead of aborting")
			flagSet.IntVar(&concurrency, "concurrency", 0, "simultaneous transfers (default from configuration)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("download takes at least two arguments: <url|list-file>... <dir>")
			}

			resolved, err := flags.resolve()
			if err != nil {
				return err
			}
			logger := flags.logger()

			opts := pipeline.DownloadOptions{
				Dest:         args[len(args)-1],
				NoClobber:    noClobber,
				SkipFailures: skipFailures,
				Concurrency:  resolved.FetchConcurrency,
			}
			if concurrency > 0 {
				opts.Concurrency = concurrency
			}
			for _, arg := range args[:len(args)-1] {
				if strings.Contains(arg, "://") {
					opts.URLs = append(opts.URLs, arg)
					continue
				}
				if opts.ListFile != "" {
					return fmt.Errorf("at most one list file per run (got %q and %q)", opts.ListFile, arg)
				}
				opts.ListFile = arg
			}

			rt, err := buildRuntime(resolved, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signalContext()
			defer stop()

			summary, err := rt.env.Download(ctx, opts)
			logSummary(logger, "download", summary)
			return err
		},
	}
}
