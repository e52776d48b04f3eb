// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// The hasher command hashes files, trees, stdin, and remote URLs with
// any number of digest algorithms in a single read, records the
// results in SQLite or as structured JSON/CBOR, and verifies trees
// against previously recorded hashes.
package main

import (
	"fmt"
	"os"

	"github.com/meemo/hasher/cmd/hasher/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an ExitError
		// with the desired exit code. Don't print a redundant
		// "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
