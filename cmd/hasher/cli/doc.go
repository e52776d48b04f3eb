// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command framework for the hasher binary:
// a small command tree with lazy pflag flag sets, structured help
// output, and logger construction shared by every subcommand.
//
// The framework is deliberately thin. Each subcommand is a [Command]
// value with a Run function; dispatch walks the tree by the first
// positional argument. Flags are plain pflag flag sets built on first
// use, so constructing the tree for help output costs nothing.
package cli
