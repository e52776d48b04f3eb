// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// Set maps each enabled algorithm to its fixed-length digest bytes
// for one content unit. A Set is built once by the engine and never
// mutated afterwards; its key set always equals the enabled-algorithm
// set of the computation that produced it.
type Set map[Algorithm][]byte

// Hex returns the hex-encoded digest for the algorithm, or "" when
// the algorithm is not in the set.
func (s Set) Hex(a Algorithm) string {
	digest, ok := s[a]
	if !ok {
		return ""
	}
	return hex.EncodeToString(digest)
}

// HexMap returns the whole set as hex strings keyed by algorithm
// name. A nil or empty set yields nil.
func (s Set) HexMap() map[string]string {
	if len(s) == 0 {
		return nil
	}
	result := make(map[string]string, len(s))
	for algorithm, digest := range s {
		result[algorithm.String()] = hex.EncodeToString(digest)
	}
	return result
}

// Algorithms returns the set's keys in catalog order.
func (s Set) Algorithms() []Algorithm {
	result := make([]Algorithm, 0, len(s))
	for algorithm := range s {
		result = append(result, algorithm)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Equal reports whether two sets cover the same algorithms with
// identical digest bytes.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for algorithm, digest := range s {
		otherDigest, ok := other[algorithm]
		if !ok || !bytes.Equal(digest, otherDigest) {
			return false
		}
	}
	return true
}
