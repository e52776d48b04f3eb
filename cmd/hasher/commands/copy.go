// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/meemo/hasher/cmd/hasher/cli"
	"github.com/meemo/hasher/lib/pipeline"
)

func copyCommand() *cli.Command {
	var (
		flags           runFlags
		skipExisting    bool
		noHashExisting  bool
		storeSourcePath bool
	)

	return &cli.Command{
		Name:    "copy",
		Summary: "Copy a tree, hashing every file in the same read",
		Description: `Copy every file under a source path into a destination directory,
computing the enabled digests from the same physical read that writes
the copy — the source is never read twice for one rendition.

Records store the destination path by default; --store-source-path
keeps the source path instead. --skip-existing leaves destinations
alone when they already hold the same content (size check, then full
digest comparison; --no-hash-existing weakens this to size alone).

--compress writes codec-suffixed compressed destinations; --decompress
materializes decoded content under the suffix-stripped name.`,
		Usage: "hasher copy [flags] <src> <dst>",
		Examples: []cli.Example{
			{
				Description: "Mirror a tree into a backup directory, recording hashes",
				Command:     "hasher copy --sql-out hashes.db ./data /mnt/backup/data",
			},
			{
				Description: "Incremental re-run: copy only changed files",
				Command:     "hasher copy --skip-existing ./data /mnt/backup/data",
			},
			{
				Description: "Archive with zstd-compressed destinations",
				Command:     "hasher copy --compress zstd --compression-level 9 ./data /mnt/archive",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("copy", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&skipExisting, "skip-existing", false, "skip units whose destination already holds the same content")
			flagSet.BoolVar(&noHashExisting, "no-hash-existing", false, "check existing destinations by size alone, not digest")
			flagSet.BoolVar(&storeSourcePath, "store-source-path", false, "record units under the source path instead of the destination")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("copy takes exactly two arguments: <src> <dst>")
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

			summary, err := rt.env.Copy(ctx, pipeline.CopyOptions{
				Root:            args[0],
				Dest:            args[1],
				SkipExisting:    skipExisting,
				NoHashExisting:  noHashExisting,
				StoreSourcePath: storeSourcePath,
				Compress:        resolved.CopyCodec,
			})
			logSummary(logger, "copy", summary)
			return err
		},
	}
}
