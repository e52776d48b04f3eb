// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress handles the compression dimension of hashing:
// which codec an artifact uses (inferred from its name suffix alone),
// which rendition — stored, decoded, or both — feeds the hash engine,
// and the encoder/decoder plumbing for gzip, zstd, and lz4.
package compress
