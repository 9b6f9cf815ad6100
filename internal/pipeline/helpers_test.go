package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/bootunpack/internal/fetch"
	"github.com/flemzord/bootunpack/internal/router"
	"github.com/flemzord/bootunpack/internal/router/routertest"
	"github.com/flemzord/bootunpack/internal/workspace"
	"github.com/flemzord/bootunpack/pkg/message"
)

type fakeFetcher struct {
	err     error
	content []byte

	mu   sync.Mutex
	dirs []string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, dst string) (fetch.File, error) {
	f.mu.Lock()
	f.dirs = append(f.dirs, filepath.Dir(dst))
	f.mu.Unlock()

	if f.err != nil {
		return fetch.File{}, f.err
	}
	content := f.content
	if content == nil {
		content = []byte("ANDROID!")
	}
	if err := os.WriteFile(dst, content, 0o600); err != nil {
		return fetch.File{}, err
	}
	return fetch.File{Path: dst, Size: int64(len(content)), Digest: "digest"}, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dirs)
}

type fakeInvoker struct {
	fn    func(ctx context.Context, dir, file string) (string, error)
	count atomic.Int32
}

func (f *fakeInvoker) Invoke(ctx context.Context, dir, file string) (string, error) {
	f.count.Add(1)
	if f.fn == nil {
		return "", nil
	}
	return f.fn(ctx, dir, file)
}

func output(s string) *fakeInvoker {
	return &fakeInvoker{fn: func(context.Context, string, string) (string, error) { return s, nil }}
}

type harness struct {
	pipeline *Pipeline
	sender   *routertest.MockResponseSender
	fetcher  *fakeFetcher
	invoker  *fakeInvoker
	root     string
}

// newHarness builds a started pipeline; mutate cfg through fn before New.
func newHarness(t *testing.T, fetcher *fakeFetcher, invoker *fakeInvoker, workers, queue int, fn func(*Config)) *harness {
	t.Helper()

	root := t.TempDir()
	sender := &routertest.MockResponseSender{}
	pool := NewPool(workers, queue, nil)
	cfg := Config{
		Fetcher:   fetcher,
		Invoker:   invoker,
		Workspace: workspace.New(root),
		Pool:      pool,
		Sender:    sender,
	}
	if fn != nil {
		fn(&cfg)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pool.Start(context.Background())
	t.Cleanup(func() { _ = pool.Stop(context.Background()) })

	return &harness{pipeline: p, sender: sender, fetcher: fetcher, invoker: invoker, root: root}
}

var reqSeq atomic.Int64

func unpackRequest(arg string) router.Request {
	id := strconv.FormatInt(reqSeq.Add(1), 10)
	return router.Request{
		ID:       "req-" + id,
		Command:  "unpack",
		Argument: arg,
		Message: message.InboundMessage{
			ID:      id,
			Channel: "channel.telegram",
			Chat:    message.Chat{ID: "1001", Type: message.ChatDM},
			Sender:  message.Sender{ID: "7"},
			Text:    "/unpack " + arg,
		},
	}
}

// waitResults waits until n code replies were sent.
func (h *harness) waitResults(t *testing.T, n int) []message.OutboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		results := codeReplies(h.sender.SentMessages())
		if len(results) >= n {
			return results
		}
		select {
		case <-ctx.Done():
			t.Fatalf("got %d results, want %d", len(results), n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func codeReplies(msgs []message.OutboundMessage) []message.OutboundMessage {
	var out []message.OutboundMessage
	for _, m := range msgs {
		if m.Format == message.FormatCode {
			out = append(out, m)
		}
	}
	return out
}

func (h *harness) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root not empty: %d entries left", len(entries))
	}
}
