// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meemo/hasher/lib/fetch"
	"github.com/meemo/hasher/lib/pipeline"
	"github.com/meemo/hasher/lib/sink"
)

type emittedDownload struct {
	URL    string         `json:"url"`
	Path   string         `json:"file_path"`
	OK     bool           `json:"ok"`
	Reason string         `json:"reason"`
	Record *emittedRecord `json:"record"`
}

func decodeDownloads(t *testing.T, raw []byte) []emittedDownload {
	t.Helper()
	var outcomes []emittedDownload
	for _, line := range splitLines(raw) {
		var d emittedDownload
		if err := json.Unmarshal(line, &d); err != nil {
			t.Fatalf("decoding %q: %v", line, err)
		}
		// Hash records routed by the Router interleave with download
		// outcomes on the same stream; keep only the outcomes.
		if d.URL != "" {
			outcomes = append(outcomes, d)
		}
	}
	return outcomes
}

func downloadServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/hello.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})
	mux.HandleFunc("/world.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("world"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDownloadSingleURL(t *testing.T) {
	server := downloadServer(t)
	dest := t.TempDir()

	env, out := emissionEnv(t)
	env.Fetch = fetch.NewClient(5*time.Second, nil)

	summary, err := env.Download(context.Background(), pipeline.DownloadOptions{
		URLs: []string{server.URL + "/hello.txt"},
		Dest: dest,
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("processed = %d, want 1", summary.Processed)
	}

	saved, err := os.ReadFile(filepath.Join(dest, "hello.txt"))
	if err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if string(saved) != "hello" {
		t.Errorf("saved = %q", saved)
	}

	outcomes := decodeDownloads(t, out.Bytes())
	if len(outcomes) != 1 || !outcomes[0].OK {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if outcomes[0].Record == nil || outcomes[0].Record.Hashes["sha256"] != sha256Hello {
		t.Errorf("outcome record = %+v", outcomes[0].Record)
	}
	if outcomes[0].Record.Origin != "remote" {
		t.Errorf("origin = %q, want remote", outcomes[0].Record.Origin)
	}
}

func TestDownloadListFileSkipFailures(t *testing.T) {
	server := downloadServer(t)
	dest := t.TempDir()

	list := filepath.Join(t.TempDir(), "urls.txt")
	content := strings.Join([]string{
		server.URL + "/hello.txt",
		"# a comment",
		server.URL + "/missing.txt",
		"",
		server.URL + "/world.txt",
	}, "\n")
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	env, out := emissionEnv(t)
	env.Fetch = fetch.NewClient(5*time.Second, nil)

	summary, err := env.Download(context.Background(), pipeline.DownloadOptions{
		ListFile:     list,
		Dest:         dest,
		SkipFailures: true,
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %d processed / %d failed, want 2/1",
			summary.Processed, summary.Failed)
	}

	var ok, failed int
	for _, outcome := range decodeDownloads(t, out.Bytes()) {
		if outcome.OK {
			ok++
		} else {
			failed++
			if outcome.Reason == "" {
				t.Error("failure outcome carries no reason")
			}
		}
	}
	if ok != 2 || failed != 1 {
		t.Errorf("outcomes = %d ok / %d failed, want 2/1", ok, failed)
	}
}

func TestDownloadAbortsWithoutSkipFailures(t *testing.T) {
	server := downloadServer(t)

	env, _ := emissionEnv(t)
	env.Fetch = fetch.NewClient(5*time.Second, nil)

	_, err := env.Download(context.Background(), pipeline.DownloadOptions{
		URLs: []string{server.URL + "/missing.txt"},
		Dest: t.TempDir(),
	})
	if err == nil {
		t.Fatal("Download of a 404 returned nil without skip-failures")
	}
}

func TestDownloadNoClobber(t *testing.T) {
	server := downloadServer(t)
	dest := t.TempDir()
	writeFile(t, dest, "hello.txt", "already here")

	env, _ := emissionEnv(t)
	env.Fetch = fetch.NewClient(5*time.Second, nil)

	summary, err := env.Download(context.Background(), pipeline.DownloadOptions{
		URLs:      []string{server.URL + "/hello.txt"},
		Dest:      dest,
		NoClobber: true,
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 0 {
		t.Errorf("summary = %d skipped / %d processed, want 1/0",
			summary.Skipped, summary.Processed)
	}
	kept, _ := os.ReadFile(filepath.Join(dest, "hello.txt"))
	if string(kept) != "already here" {
		t.Errorf("no-clobber overwrote the destination: %q", kept)
	}
}

func TestDownloadRetriesTransientFailure(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	env, out := emissionEnv(t)
	env.Fetch = fetch.NewClient(5*time.Second, nil)
	env.Retry = sink.RetryPolicy{Retries: 2}

	summary, err := env.Download(context.Background(), pipeline.DownloadOptions{
		URLs: []string{server.URL + "/hello.txt"},
		Dest: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
	outcomes := decodeDownloads(t, out.Bytes())
	if len(outcomes) != 1 || !outcomes[0].OK {
		t.Errorf("outcomes = %+v, want one success", outcomes)
	}
}

func TestDownloadConcurrent(t *testing.T) {
	server := downloadServer(t)
	dest := t.TempDir()

	env, out := emissionEnv(t)
	env.Fetch = fetch.NewClient(5*time.Second, nil)

	summary, err := env.Download(context.Background(), pipeline.DownloadOptions{
		URLs: []string{
			server.URL + "/hello.txt",
			server.URL + "/world.txt",
		},
		Dest:        dest,
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("processed = %d, want 2", summary.Processed)
	}
	if len(decodeDownloads(t, out.Bytes())) != 2 {
		t.Error("expected two independent outcome records")
	}
}
