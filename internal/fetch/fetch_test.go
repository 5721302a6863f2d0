package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/outpost-tools/outpost-ctl/internal/cache"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/resolver"
)

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func openTestStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestFetcher(t *testing.T, store *cache.Store, opts ...Option) *Fetcher {
	t.Helper()
	opts = append([]Option{WithRetryInterval(time.Millisecond)}, opts...)
	return New(store, opts...)
}

func TestFetch_HappyPath(t *testing.T) {
	data := []byte("pretend this is a disk image")
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store)

	ref := resolver.ArtifactRef{Name: "base-10.04", URL: srv.URL, SHA256: digestOf(data)}

	entry, err := f.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if entry.Digest != ref.SHA256 {
		t.Errorf("Digest = %q, want %q", entry.Digest, ref.SHA256)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestFetch_CacheHitSkipsDownload(t *testing.T) {
	data := []byte("cached already")
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store)
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: digestOf(data)}

	if _, err := f.Fetch(context.Background(), ref); err != nil {
		t.Fatalf("first Fetch failed: %v", err)
	}

	// Resume law: the second fetch must not touch the network.
	if _, err := f.Fetch(context.Background(), ref); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (second fetch should hit cache)", hits.Load())
	}
}

func TestFetch_IntegrityMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("corrupted bytes"))
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store)

	want := digestOf([]byte("the artifact we declared"))
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: want}

	_, err := f.Fetch(context.Background(), ref)
	if err == nil {
		t.Fatal("Expected IntegrityMismatch")
	}
	if errors.GetExitCode(err) != errors.ExitIntegrityMismatch {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitIntegrityMismatch)
	}

	// Checksum law: nothing cached
	entry, _ := store.Get(context.Background(), want)
	if entry != nil {
		t.Error("mismatched artifact must not be cached")
	}
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	data := []byte("eventually consistent")
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 2 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store)
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: digestOf(data)}

	entry, err := f.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if entry == nil {
		t.Fatal("expected entry after retries")
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3", hits.Load())
	}
}

func TestFetch_FailsAfterBoundedRetries(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store, WithMaxAttempts(3))
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: digestOf([]byte("unreachable"))}

	_, err := f.Fetch(context.Background(), ref)
	if err == nil {
		t.Fatal("Expected FetchFailed")
	}
	if errors.GetExitCode(err) != errors.ExitFetchFailed {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitFetchFailed)
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3 (bounded)", hits.Load())
	}
}

func TestFetch_PermanentClientError(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store)
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: digestOf([]byte("x"))}

	if _, err := f.Fetch(context.Background(), ref); err == nil {
		t.Fatal("Expected error for 404")
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (404 is not retried)", hits.Load())
	}
}

func TestFetch_ResumesPartialDownload(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	var sawRange atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rng := r.Header.Get("Range"); rng != "" {
			sawRange.Store(true)
			var offset int
			fmt.Sscanf(rng, "bytes=%d-", &offset)
			w.Header().Set("Content-Range",
				fmt.Sprintf("bytes %d-%d/%d", offset, len(data)-1, len(data)))
			w.WriteHeader(http.StatusPartialContent)
			w.Write(data[offset:])
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	store := openTestStore(t)

	// Simulate an interrupted earlier run: half the blob already staged.
	digest := digestOf(data)
	partial, err := store.PartialPath(digest)
	if err != nil {
		t.Fatalf("PartialPath failed: %v", err)
	}
	if err := writeFile(partial, data[:18]); err != nil {
		t.Fatalf("failed to stage partial: %v", err)
	}

	f := newTestFetcher(t, store)
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: digest}

	entry, err := f.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !sawRange.Load() {
		t.Error("fetcher should resume with a Range request")
	}
	if entry.SizeBytes != int64(len(data)) {
		t.Errorf("SizeBytes = %d, want %d", entry.SizeBytes, len(data))
	}
}

func TestFetch_RestartsWhenRangeUnsupported(t *testing.T) {
	data := []byte("no range support here at all")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ignores Range entirely, always serves the full blob with 200.
		w.Write(data)
	}))
	defer srv.Close()

	store := openTestStore(t)

	digest := digestOf(data)
	partial, err := store.PartialPath(digest)
	if err != nil {
		t.Fatalf("PartialPath failed: %v", err)
	}
	if err := writeFile(partial, data[:7]); err != nil {
		t.Fatalf("failed to stage partial: %v", err)
	}

	f := newTestFetcher(t, store)
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: digest}

	entry, err := f.Fetch(context.Background(), ref)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if entry.SizeBytes != int64(len(data)) {
		t.Errorf("SizeBytes = %d, want %d (stale prefix must be discarded)", entry.SizeBytes, len(data))
	}
}

func TestFetch_Cancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(1<<20))
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer srv.Close()
	defer close(release)

	store := openTestStore(t)
	f := newTestFetcher(t, store)
	ref := resolver.ArtifactRef{Name: "base", URL: srv.URL, SHA256: digestOf([]byte("never"))}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, ref)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected error after cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Fetch did not stop after cancellation")
	}
}

func TestFetchAll(t *testing.T) {
	blobs := map[string][]byte{
		"/a": []byte("artifact a"),
		"/b": []byte("artifact b"),
		"/c": []byte("artifact c"),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if data, ok := blobs[r.URL.Path]; ok {
			w.Write(data)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store, WithWorkers(2))

	var refs []resolver.ArtifactRef
	for path, data := range blobs {
		refs = append(refs, resolver.ArtifactRef{
			Name:   strings.TrimPrefix(path, "/"),
			URL:    srv.URL + path,
			SHA256: digestOf(data),
		})
	}

	entries, err := f.FetchAll(context.Background(), refs)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("len(entries) = %d, want 3", len(entries))
	}
}

func TestFetchAll_FirstErrorWins(t *testing.T) {
	good := []byte("fine")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/good" {
			w.Write(good)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := openTestStore(t)
	f := newTestFetcher(t, store)

	refs := []resolver.ArtifactRef{
		{Name: "good", URL: srv.URL + "/good", SHA256: digestOf(good)},
		{Name: "bad", URL: srv.URL + "/bad", SHA256: digestOf([]byte("missing"))},
	}

	if _, err := f.FetchAll(context.Background(), refs); err == nil {
		t.Fatal("Expected FetchAll to surface the failing artifact")
	}
}

func TestSplitS3URL(t *testing.T) {
	tests := []struct {
		url        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://images/base-10.04.img", "images", "base-10.04.img", false},
		{"s3://images/nested/key.tar", "images", "nested/key.tar", false},
		{"s3://images", "", "", true},
		{"https://images/base.img", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, key, err := splitS3URL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitS3URL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("splitS3URL(%q) = (%q, %q), want (%q, %q)", tt.url, bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
