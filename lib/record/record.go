// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the result types that flow from the hash
// engine to the sinks: the content unit identity, the completed hash
// record, and the verify/download outcome records.
package record

import (
	"fmt"
	"time"

	"github.com/meemo/hasher/lib/digest"
)

// Origin says where a content unit's bytes came from.
type Origin uint8

const (
	OriginFile Origin = iota
	OriginStdin
	OriginRemote
)

func (o Origin) String() string {
	switch o {
	case OriginFile:
		return "file"
	case OriginStdin:
		return "stdin"
	case OriginRemote:
		return "remote"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// Unit identifies one hashing target.
type Unit struct {
	// Path is the logical path recorded with the results. For stdin
	// it comes from configuration; for downloads it is the
	// destination path.
	Path string

	// Size is the stored byte length.
	Size int64

	// Compressed marks units whose name carries a codec suffix.
	Compressed bool

	// Origin is where the bytes came from.
	Origin Origin
}

// Hash is a completed record for one unit: the unit plus one digest
// set — or two under the hash-both-variants policy — and the
// computation timestamp. A Hash is never partially populated: the
// engine either produced every enabled digest or the record does not
// exist.
type Hash struct {
	Unit

	// Digests covers the stored rendition of the unit's bytes.
	Digests digest.Set

	// Decompressed covers the decoded rendition. Nil except under
	// the hash-both-variants policy.
	Decompressed digest.Set

	// Time is when the computation completed.
	Time time.Time
}

// VerifyStatus classifies one path's verify outcome.
type VerifyStatus uint8

const (
	VerifyMatch VerifyStatus = iota
	VerifyMismatch
	VerifyMissingOnDisk
	VerifyMissingInStore
)

func (s VerifyStatus) String() string {
	switch s {
	case VerifyMatch:
		return "match"
	case VerifyMismatch:
		return "mismatch"
	case VerifyMissingOnDisk:
		return "missing_on_disk"
	case VerifyMissingInStore:
		return "missing_in_store"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Verify is the emitted classification for one path.
type Verify struct {
	Path   string
	Status VerifyStatus

	// Size and StoredSize are the on-disk and stored byte lengths,
	// where known.
	Size       int64
	StoredSize int64

	// Mismatched lists the algorithm names whose digests disagree.
	// Empty except under VerifyMismatch.
	Mismatched []string
}

// Download is the combined status+hash outcome for one URL.
type Download struct {
	URL  string
	Path string

	// OK is false for failure-outcome records, which carry a Reason
	// instead of a hash record.
	OK     bool
	Reason string

	// Record is the completed hash record for a successful fetch.
	Record *Hash
}
