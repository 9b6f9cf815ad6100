package fetch

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zeebo/blake3"
)

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("ANDROID!"), 1024)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "boot.img")
	f := New(Config{Timeout: 5 * time.Second, UserAgent: "bootunpack/test"})

	file, err := f.Fetch(context.Background(), srv.URL+"/boot.img", dst)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("file content does not match payload")
	}
	if file.Size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", file.Size, len(payload))
	}
	sum := blake3.Sum256(payload)
	if file.Digest != hex.EncodeToString(sum[:]) {
		t.Errorf("Digest = %s, want %x", file.Digest, sum)
	}
	if file.ContentType != "application/octet-stream" {
		t.Errorf("ContentType = %q", file.ContentType)
	}
	if gotUA != "bootunpack/test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "boot.img")
	file, err := New(Config{}).Fetch(context.Background(), srv.URL+"/start", dst)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if file.Size != int64(len("payload")) {
		t.Errorf("Size = %d", file.Size)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "boot.img")
	_, err := New(Config{}).Fetch(context.Background(), srv.URL, dst)

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not *Error", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", fe.StatusCode)
	}
	if !errors.Is(err, ErrStatus) {
		t.Errorf("error should wrap ErrStatus: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "error downloading file: ") || !strings.Contains(err.Error(), "404") {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if _, statErr := os.Stat(dst); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("no file should be created on HTTP error")
	}
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	dst := filepath.Join(t.TempDir(), "boot.img")
	start := time.Now()
	_, err := New(Config{Timeout: 100 * time.Millisecond}).Fetch(context.Background(), srv.URL, dst)

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not *Error", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestFetch_TooLarge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "declared length",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
			},
		},
		{
			name: "chunked body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				for range 8 {
					_, _ = w.Write(bytes.Repeat([]byte("x"), 8))
					w.(http.Flusher).Flush()
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			dst := filepath.Join(t.TempDir(), "boot.img")
			_, err := New(Config{MaxBytes: 16}).Fetch(context.Background(), srv.URL, dst)
			if !errors.Is(err, ErrTooLarge) {
				t.Fatalf("Fetch = %v, want ErrTooLarge", err)
			}
			if _, statErr := os.Stat(dst); !errors.Is(statErr, os.ErrNotExist) {
				t.Error("partial file should be removed")
			}
		})
	}
}

func TestFetch_ExactlyMaxBytes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 16))
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "boot.img")
	file, err := New(Config{MaxBytes: 16}).Fetch(context.Background(), srv.URL, dst)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if file.Size != 16 {
		t.Errorf("Size = %d, want 16", file.Size)
	}
}

func TestFetch_UnreachableHost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{Timeout: 2 * time.Second}).Fetch(context.Background(), url, filepath.Join(t.TempDir(), "boot.img"))
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("error %v is not *Error", err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", fe.StatusCode)
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Fetch(ctx, srv.URL, filepath.Join(t.TempDir(), "boot.img"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch = %v, want context.Canceled", err)
	}
}
