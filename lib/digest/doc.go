// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes a configurable set of cryptographic and
// checksum digests over one content source while reading its bytes
// exactly once.
//
// The package has two halves:
//
//   - The algorithm catalog: a closed enumeration of 33 digest
//     algorithms ([Algorithm]) with a static construction table.
//     The catalog is fixed at build time — the SQLite store derives
//     one column per entry, so there is deliberately no runtime
//     registration.
//
//   - The fan-out engine: [Compute] reads a [source.Source] once and
//     feeds every chunk, in read order, to an accumulator per enabled
//     algorithm. Accumulators are partitioned across a worker pool
//     sized to the algorithm count and bounded by GOMAXPROCS. Small
//     content is read whole into one shared buffer; large content
//     streams through double-buffered chunks with a per-chunk barrier
//     so the reader never outruns the slowest worker by more than one
//     chunk.
//
// The engine is a pure function of the content bytes: no retries, no
// partial results, no interpretation of the data.
package digest
