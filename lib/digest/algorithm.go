// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"hash/crc64"
	"hash/fnv"

	"github.com/emmansun/gmsm/sm3"
	"github.com/jzelinskie/whirlpool"
	"github.com/zeebo/blake3"
	"go.cypherpunks.ru/gogost/v5/gost28147"
	"go.cypherpunks.ru/gogost/v5/gost34112012256"
	"go.cypherpunks.ru/gogost/v5/gost34112012512"
	"go.cypherpunks.ru/gogost/v5/gost341194"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

// Algorithm identifies one digest algorithm from the fixed catalog.
// The catalog is closed and known at build time — store schema columns
// and emission field names are derived from it, so entries are never
// added or removed at runtime. Values are ordinal positions in the
// catalog and are not a wire format.
type Algorithm uint8

const (
	CRC32 Algorithm = iota
	CRC32C
	CRC32K
	CRC64
	CRC64ECMA
	Adler32
	FNV1_32
	FNV1a_32
	FNV1_64
	FNV1a_64
	FNV1_128
	FNV1a_128
	MD4
	MD5
	SHA1
	SHA224
	SHA256
	SHA384
	SHA512
	SHA512_224
	SHA512_256
	SHA3_224
	SHA3_256
	SHA3_384
	SHA3_512
	Keccak256
	Keccak512
	BLAKE2s_256
	BLAKE2b_256
	BLAKE2b_384
	BLAKE2b_512
	BLAKE3
	RIPEMD160
	SM3
	Streebog256
	Streebog512
	GOST94CryptoPro
	GOST94Test
	Whirlpool

	algorithmCount
)

// entry describes one catalog algorithm: its canonical name (also the
// store column name and emission field name), the fixed digest size in
// bytes, and the incremental-accumulator constructor. Extendable-output
// functions cannot appear here — every entry has a fixed size.
type entry struct {
	name string
	size int
	new  func() hash.Hash
}

var (
	crc32cTable   = crc32.MakeTable(crc32.Castagnoli)
	crc32kTable   = crc32.MakeTable(crc32.Koopman)
	crc64ISOTable = crc64.MakeTable(crc64.ISO)
	crc64ECMATbl  = crc64.MakeTable(crc64.ECMA)
)

// catalog is the static construction table, indexed by Algorithm.
// Order must match the constant declarations above.
var catalog = [algorithmCount]entry{
	CRC32:       {"crc32", 4, func() hash.Hash { return crc32.NewIEEE() }},
	CRC32C:      {"crc32c", 4, func() hash.Hash { return crc32.New(crc32cTable) }},
	CRC32K:      {"crc32k", 4, func() hash.Hash { return crc32.New(crc32kTable) }},
	CRC64:       {"crc64", 8, func() hash.Hash { return crc64.New(crc64ISOTable) }},
	CRC64ECMA:   {"crc64_ecma", 8, func() hash.Hash { return crc64.New(crc64ECMATbl) }},
	Adler32:     {"adler32", 4, func() hash.Hash { return adler32.New() }},
	FNV1_32:     {"fnv1_32", 4, func() hash.Hash { return fnv.New32() }},
	FNV1a_32:    {"fnv1a_32", 4, func() hash.Hash { return fnv.New32a() }},
	FNV1_64:     {"fnv1_64", 8, func() hash.Hash { return fnv.New64() }},
	FNV1a_64:    {"fnv1a_64", 8, func() hash.Hash { return fnv.New64a() }},
	FNV1_128:    {"fnv1_128", 16, func() hash.Hash { return fnv.New128() }},
	FNV1a_128:   {"fnv1a_128", 16, func() hash.Hash { return fnv.New128a() }},
	MD4:         {"md4", 16, md4.New},
	MD5:         {"md5", 16, md5.New},
	SHA1:        {"sha1", 20, sha1.New},
	SHA224:      {"sha224", 28, sha256.New224},
	SHA256:      {"sha256", 32, sha256.New},
	SHA384:      {"sha384", 48, sha512.New384},
	SHA512:      {"sha512", 64, sha512.New},
	SHA512_224:  {"sha512_224", 28, sha512.New512_224},
	SHA512_256:  {"sha512_256", 32, sha512.New512_256},
	SHA3_224:    {"sha3_224", 28, func() hash.Hash { return sha3.New224() }},
	SHA3_256:    {"sha3_256", 32, func() hash.Hash { return sha3.New256() }},
	SHA3_384:    {"sha3_384", 48, func() hash.Hash { return sha3.New384() }},
	SHA3_512:    {"sha3_512", 64, func() hash.Hash { return sha3.New512() }},
	Keccak256:   {"keccak256", 32, func() hash.Hash { return sha3.NewLegacyKeccak256() }},
	Keccak512:   {"keccak512", 64, func() hash.Hash { return sha3.NewLegacyKeccak512() }},
	BLAKE2s_256: {"blake2s_256", 32, func() hash.Hash { return mustHash(blake2s.New256(nil)) }},
	BLAKE2b_256: {"blake2b_256", 32, func() hash.Hash { return mustHash(blake2b.New256(nil)) }},
	BLAKE2b_384: {"blake2b_384", 48, func() hash.Hash { return mustHash(blake2b.New384(nil)) }},
	BLAKE2b_512: {"blake2b_512", 64, func() hash.Hash { return mustHash(blake2b.New512(nil)) }},
	BLAKE3:      {"blake3", 32, func() hash.Hash { return blake3.New() }},
	RIPEMD160:   {"ripemd160", 20, ripemd160.New},
	SM3:         {"sm3", 32, sm3.New},
	Streebog256: {"streebog256", 32, func() hash.Hash { return gost34112012256.New() }},
	Streebog512: {"streebog512", 64, func() hash.Hash { return gost34112012512.New() }},
	GOST94CryptoPro: {"gost94_cryptopro", 32, func() hash.Hash {
		return gost341194.New(&gost28147.SboxIdGostR341194CryptoProParamSet)
	}},
	GOST94Test: {"gost94_test", 32, func() hash.Hash {
		return gost341194.New(&gost28147.SboxIdGostR341194TestParamSet)
	}},
	Whirlpool: {"whirlpool", 64, whirlpool.New},
}

// mustHash unwraps the (hash.Hash, error) constructors in x/crypto.
// Those constructors only fail for non-nil keys, which the catalog
// never passes.
func mustHash(h hash.Hash, err error) hash.Hash {
	if err != nil {
		panic("digest: keyless hash construction failed: " + err.Error())
	}
	return h
}

// String returns the canonical algorithm name (e.g. "sha3_256").
func (a Algorithm) String() string {
	if a >= algorithmCount {
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
	return catalog[a].name
}

// Size returns the fixed digest length in bytes.
func (a Algorithm) Size() int {
	if a >= algorithmCount {
		return 0
	}
	return catalog[a].size
}

// New returns a fresh incremental accumulator for the algorithm. Each
// accumulator is exclusively owned by its caller; accumulators are
// never shared across content units.
func (a Algorithm) New() hash.Hash {
	if a >= algorithmCount {
		panic("digest: New on unknown algorithm " + a.String())
	}
	return catalog[a].new()
}

// Valid reports whether a is a catalog algorithm.
func (a Algorithm) Valid() bool {
	return a < algorithmCount
}

// Parse resolves a canonical algorithm name to its Algorithm. Returns
// an error for names outside the catalog.
func Parse(name string) (Algorithm, error) {
	for i := Algorithm(0); i < algorithmCount; i++ {
		if catalog[i].name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("digest: unknown algorithm %q", name)
}

// ParseAll resolves a list of names, rejecting duplicates. The result
// preserves catalog order, not input order, so the enabled set has a
// stable order for schema columns and emission fields.
func ParseAll(names []string) ([]Algorithm, error) {
	seen := make(map[Algorithm]bool, len(names))
	for _, name := range names {
		algorithm, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if seen[algorithm] {
			return nil, fmt.Errorf("digest: algorithm %q listed twice", name)
		}
		seen[algorithm] = true
	}
	result := make([]Algorithm, 0, len(seen))
	for i := Algorithm(0); i < algorithmCount; i++ {
		if seen[i] {
			result = append(result, i)
		}
	}
	return result, nil
}

// Catalog returns every algorithm in stable (declaration) order. The
// returned slice is fresh on each call; callers may modify it.
func Catalog() []Algorithm {
	result := make([]Algorithm, algorithmCount)
	for i := range result {
		result[i] = Algorithm(i)
	}
	return result
}
