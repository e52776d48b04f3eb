// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/pipeline"
	"github.com/meemo/hasher/lib/sink"
	"github.com/meemo/hasher/lib/store"
)

const (
	sha256Hello = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	sha256World = "486ea46224d1bb4fb680f34f7c9ad96a8f24ec88be73ea8e5a6c65260e9cb8a7"
)

// emittedRecord is the JSON shape assertions read back.
type emittedRecord struct {
	Path         string            `json:"file_path"`
	Size         int64             `json:"file_size"`
	Origin       string            `json:"origin"`
	Hashes       map[string]string `json:"hashes"`
	Decompressed map[string]string `json:"decompressed_hashes"`
}

func decodeRecords(t *testing.T, raw []byte) []emittedRecord {
	t.Helper()
	var records []emittedRecord
	for _, line := range bytes.Split(bytes.TrimRight(raw, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec emittedRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("decoding emitted record %q: %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

// emissionEnv builds an Env whose only sink is a JSON stream emitter
// writing into the returned buffer.
func emissionEnv(t *testing.T) (*pipeline.Env, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	emitter := sink.NewStreamEmitter(&out, sink.FormatJSON)
	env := &pipeline.Env{
		Algorithms: []digest.Algorithm{digest.CRC32, digest.SHA256},
		Router: sink.NewRouter(sink.RouterOptions{
			Sinks: []sink.Sink{emitter},
		}),
		Emitter: emitter,
	}
	return env, &out
}

// storeEnv builds an Env routing to both a temp-file store and a JSON
// stream emitter.
func storeEnv(t *testing.T) (*pipeline.Env, *store.Store, *bytes.Buffer) {
	t.Helper()
	s, err := store.Open(store.Config{
		Path: filepath.Join(t.TempDir(), "hashes.db"),
		WAL:  true,
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	var out bytes.Buffer
	emitter := sink.NewStreamEmitter(&out, sink.FormatJSON)
	env := &pipeline.Env{
		Algorithms: []digest.Algorithm{digest.CRC32, digest.SHA256},
		Router: sink.NewRouter(sink.RouterOptions{
			Sinks: []sink.Sink{s, emitter},
		}),
		Emitter: emitter,
		Store:   s,
	}
	return env, s, &out
}

// newDryRunRouter rebuilds the routing layer with dry-run enabled,
// keeping the same store and emission buffer.
func newDryRunRouter(t *testing.T, s *store.Store, out *bytes.Buffer) *sink.Router {
	t.Helper()
	return sink.NewRouter(sink.RouterOptions{
		Sinks:  []sink.Sink{s, sink.NewStreamEmitter(out, sink.FormatJSON)},
		DryRun: true,
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
