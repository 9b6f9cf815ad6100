// Package fetch downloads a remote file into a scratch directory.
package fetch

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/zeebo/blake3"
)

// DefaultTimeout bounds a whole download: connect, headers and body.
const DefaultTimeout = 40 * time.Second

// Config configures a Fetcher.
type Config struct {
	// Timeout is the single whole-request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxBytes caps the body size. Zero means unlimited.
	MaxBytes int64

	// UserAgent is sent with every request when set.
	UserAgent string

	// Transport overrides the HTTP transport (tests, proxies).
	Transport http.RoundTripper
}

// File describes a downloaded file.
type File struct {
	Path        string
	Size        int64
	Digest      string // BLAKE3-256, hex
	ContentType string
}

// Fetcher performs plain unauthenticated GET requests.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// New creates a Fetcher. Redirects follow the net/http default policy.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// Fetch streams rawURL into a new file at dst. dst must not exist. Every
// failure is returned as *Error; a partially written file is removed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dst string) (File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return File{}, &Error{URL: rawURL, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return File{}, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return File{}, &Error{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrStatus, resp.Status),
		}
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return File{}, &Error{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, resp.ContentLength, f.maxBytes),
		}
	}

	size, digest, err := f.save(resp.Body, dst)
	if err != nil {
		_ = os.Remove(dst)
		return File{}, &Error{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	return File{
		Path:        dst,
		Size:        size,
		Digest:      digest,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (f *Fetcher) save(body io.Reader, dst string) (int64, string, error) {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, "", err
	}

	if f.maxBytes > 0 {
		// One extra byte tells an exact fit from an overflow.
		body = io.LimitReader(body, f.maxBytes+1)
	}

	hasher := blake3.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, "", err
	}
	if f.maxBytes > 0 && size > f.maxBytes {
		return 0, "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}
