// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the hasher CLI command tree: the four
// pipeline commands (hash, verify, copy, download) plus version.
// Every pipeline command shares one flag surface layered over the
// configuration file; see the runFlags type.
package commands

import (
	"fmt"

	"github.com/meemo/hasher/cmd/hasher/cli"
	"github.com/meemo/hasher/lib/version"
)

// Root builds and returns the complete hasher CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "hasher",
		Description: `hasher: multi-algorithm file hashing.

Hash files, directory trees, stdin, or remote URLs with any number of
digest algorithms in a single read, record the results in SQLite or as
structured JSON/CBOR, and verify trees against previously recorded
hashes.`,
		Subcommands: []*cli.Command{
			hashCommand(),
			verifyCommand(),
			copyCommand(),
			downloadCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("hasher %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Hash a tree with the default algorithm set, records on stdout",
				Command:     "hasher hash ./data",
			},
			{
				Description: "Record sha256 and blake3 into a SQLite database",
				Command:     "hasher hash --algorithms sha256,blake3 --sql-out hashes.db ./data",
			},
			{
				Description: "Verify a tree against recorded hashes, report discrepancies only",
				Command:     "hasher verify --sql-out hashes.db --mismatches-only ./data",
			},
			{
				Description: "Copy a tree, hashing every file in the same read",
				Command:     "hasher copy --sql-out hashes.db ./data /mnt/backup/data",
			},
			{
				Description: "Download a URL list, skipping entries that fail",
				Command:     "hasher download --skip-failures --concurrency 8 urls.txt ./downloads",
			},
		},
	}
}
