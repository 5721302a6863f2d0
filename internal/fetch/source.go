package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"

	"github.com/outpost-tools/outpost-ctl/internal/resolver"
)

// Source opens a byte stream for an artifact, optionally starting at an
// offset into the blob. Implementations report whether the offset was
// honored; when it was not, the caller restarts the download from zero.
type Source interface {
	Open(ctx context.Context, ref resolver.ArtifactRef, offset int64) (body io.ReadCloser, resumed bool, err error)
}

// HTTPSource fetches artifacts over HTTP(S) with Range-based resume.
type HTTPSource struct {
	Client *http.Client
}

// NewHTTPSource returns an HTTPSource with a timeout-free client; request
// lifetimes are governed by the caller's context.
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{Client: &http.Client{}}
}

func (s *HTTPSource) Open(ctx context.Context, ref resolver.ArtifactRef, offset int64) (io.ReadCloser, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, false, backoff.Permanent(err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, false, err
	}

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		return resp.Body, true, nil
	case resp.StatusCode == http.StatusOK:
		return resp.Body, false, nil
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && offset > 0:
		// Partial file already spans the blob; nothing left to read.
		resp.Body.Close()
		return io.NopCloser(nilReader{}), true, nil
	}

	resp.Body.Close()
	err = fmt.Errorf("unexpected status %s fetching %s", resp.Status, ref.URL)
	if retryableStatus(resp.StatusCode) {
		return nil, false, err
	}
	return nil, false, backoff.Permanent(err)
}

// retryableStatus reports whether an HTTP status is worth another attempt.
func retryableStatus(code int) bool {
	if code >= 500 {
		return true
	}
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

type nilReader struct{}

func (nilReader) Read([]byte) (int, error) { return 0, io.EOF }

// copyContext copies src to dst, checking for cancellation between chunks
// so a stalled-but-open stream cannot outlive an operator interrupt.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 128*1024)
	var written int64
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, backoff.Permanent(werr)
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
