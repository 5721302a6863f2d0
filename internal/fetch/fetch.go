// Package fetch downloads resolved artifacts into the local cache.
//
// Downloads are resumable (Range requests against the staged partial
// file), verified against the declared SHA-256 on completion, and retried
// with bounded exponential backoff on transient network failures. A
// verification failure discards the download and reports IntegrityMismatch
// without retrying; exhausted retries report FetchFailed. Independent
// artifacts can be fetched concurrently through a bounded worker pool.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/outpost-tools/outpost-ctl/internal/cache"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
	"github.com/outpost-tools/outpost-ctl/internal/logging"
	"github.com/outpost-tools/outpost-ctl/internal/resolver"
)

const (
	// DefaultMaxAttempts bounds retries of a single artifact download.
	DefaultMaxAttempts = 5

	// DefaultWorkers bounds concurrent downloads in FetchAll.
	DefaultWorkers = 3
)

// Fetcher retrieves artifacts into the cache.
type Fetcher struct {
	store         *cache.Store
	sources       map[string]Source
	maxAttempts   uint64
	retryInterval time.Duration
	workers       int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithSource registers a source implementation for a URL scheme.
func WithSource(scheme string, src Source) Option {
	return func(f *Fetcher) {
		f.sources[scheme] = src
	}
}

// WithMaxAttempts bounds download attempts per artifact.
func WithMaxAttempts(n uint64) Option {
	return func(f *Fetcher) {
		f.maxAttempts = n
	}
}

// WithRetryInterval sets the initial backoff interval. Tests shrink this.
func WithRetryInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		f.retryInterval = d
	}
}

// WithWorkers bounds the FetchAll worker pool.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// New creates a Fetcher with HTTP(S) support. An S3 source is attached by
// the caller when s3:// artifacts are in play (it needs AWS configuration).
func New(store *cache.Store, opts ...Option) *Fetcher {
	httpSrc := NewHTTPSource()
	f := &Fetcher{
		store: store,
		sources: map[string]Source{
			"http":  httpSrc,
			"https": httpSrc,
		},
		maxAttempts:   DefaultMaxAttempts,
		retryInterval: 500 * time.Millisecond,
		workers:       DefaultWorkers,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves one artifact, returning its cache entry. A verified
// cache hit skips the download entirely.
func (f *Fetcher) Fetch(ctx context.Context, ref resolver.ArtifactRef) (*cache.Entry, error) {
	unlock := f.store.Lock(ref.SHA256)
	defer unlock()

	// Another fetcher may have committed the artifact while we waited for
	// the writer lock, and earlier runs share the cache.
	if entry, err := f.store.GetVerified(ctx, ref.SHA256); err != nil {
		return nil, err
	} else if entry != nil {
		logging.Debug("cache hit", "artifact", ref.Name, "digest", ref.SHA256)
		return entry, nil
	}

	src, err := f.sourceFor(ref)
	if err != nil {
		return nil, err
	}

	partial, err := f.store.PartialPath(ref.SHA256)
	if err != nil {
		return nil, errors.FetchFailed(ref.Name, err)
	}

	attempt := 0
	operation := func() error {
		attempt++
		if err := f.download(ctx, src, ref, partial); err != nil {
			logging.Warn("fetch attempt failed", "artifact", ref.Name, "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(f.newBackOff(), f.maxAttempts-1), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		var outpostErr *errors.OutpostError
		if errors.As(err, &outpostErr) {
			return nil, outpostErr
		}
		return nil, errors.FetchFailed(ref.Name, err)
	}

	entry, err := f.store.Put(ctx, partial, ref.SHA256, ref.URL)
	if err != nil {
		return nil, errors.FetchFailed(ref.Name, err)
	}

	logging.Debug("fetched artifact", "artifact", ref.Name, "digest", ref.SHA256, "attempts", attempt)
	return entry, nil
}

func (f *Fetcher) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock
	return b
}

// download performs a single attempt: resume the partial file, stream the
// remainder, and verify the digest. Integrity mismatches are permanent.
func (f *Fetcher) download(ctx context.Context, src Source, ref resolver.ArtifactRef, partial string) error {
	var offset int64
	if stat, err := os.Stat(partial); err == nil {
		offset = stat.Size()
	}

	body, resumed, err := src.Open(ctx, ref, offset)
	if err != nil {
		return err
	}
	defer body.Close()

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if offset > 0 && !resumed {
		// Source restarted from byte zero; drop the stale prefix.
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	file, err := os.OpenFile(partial, flags, 0644)
	if err != nil {
		return backoff.Permanent(err)
	}

	_, copyErr := copyContext(ctx, file, body)
	closeErr := file.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}

	got, err := cache.ComputeFileDigest(partial)
	if err != nil {
		return backoff.Permanent(err)
	}
	if got != ref.SHA256 {
		// Discard, never cache, never retry: a checksum mismatch is a bad
		// artifact, not a flaky network.
		_ = os.Remove(partial)
		return backoff.Permanent(errors.IntegrityMismatch(ref.Name, ref.SHA256, got))
	}

	return nil
}

func (f *Fetcher) sourceFor(ref resolver.ArtifactRef) (Source, error) {
	u, err := url.Parse(ref.URL)
	if err != nil {
		return nil, errors.FetchFailed(ref.Name, err)
	}
	src, ok := f.sources[u.Scheme]
	if !ok {
		return nil, errors.FetchFailed(ref.Name, fmt.Errorf("no source for scheme %q", u.Scheme))
	}
	return src, nil
}

// FetchAll retrieves several independent artifacts through a bounded
// worker pool. The first failure cancels the remaining downloads.
func (f *Fetcher) FetchAll(ctx context.Context, refs []resolver.ArtifactRef) (map[string]*cache.Entry, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name  string
		entry *cache.Entry
		err   error
	}

	sem := make(chan struct{}, f.workers)
	results := make(chan result, len(refs))

	for _, ref := range refs {
		go func(ref resolver.ArtifactRef) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- result{name: ref.Name, err: ctx.Err()}
				return
			}

			entry, err := f.Fetch(ctx, ref)
			results <- result{name: ref.Name, entry: entry, err: err}
		}(ref)
	}

	entries := make(map[string]*cache.Entry, len(refs))
	var firstErr error
	for range refs {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		entries[r.name] = r.entry
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return entries, nil
}
