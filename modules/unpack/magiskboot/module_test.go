package magiskboot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/bootunpack/internal/core"
	"github.com/flemzord/bootunpack/internal/history"
	"github.com/flemzord/bootunpack/internal/pipeline"
	"github.com/flemzord/bootunpack/internal/router"
	"github.com/flemzord/bootunpack/internal/router/routertest"
	"github.com/flemzord/bootunpack/internal/security"
	"github.com/flemzord/bootunpack/pkg/message"
)

func decodeNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}
	return doc.Content[0]
}

func TestConfigure_Defaults(t *testing.T) {
	t.Parallel()

	m := &Module{}
	if err := m.Configure(decodeNode(t, "workers: 2\n")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	c := m.config
	if c.Workers != 2 || c.QueueSize != pipeline.DefaultQueueSize || c.ToolPath != defaultToolPath {
		t.Errorf("config = %+v", c)
	}
	if c.FetchTimeout != 40*time.Second || *c.InvokeTimeout != 5*time.Minute {
		t.Errorf("timeouts = %s / %s", c.FetchTimeout, *c.InvokeTimeout)
	}
}

func TestConfigure_InvokeTimeoutZeroDisables(t *testing.T) {
	t.Parallel()

	m := &Module{}
	if err := m.Configure(decodeNode(t, "invoke_timeout: 0s\n")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if *m.config.InvokeTimeout != 0 {
		t.Errorf("InvokeTimeout = %s, want 0", *m.config.InvokeTimeout)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	neg := -time.Second
	c := Config{Workers: -1, QueueSize: -1, FetchTimeout: -1, InvokeTimeout: &neg, MaxBytes: -1}
	err := c.validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, field := range []string{"workers", "queue_size", "fetch_timeout", "invoke_timeout", "max_bytes"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s: %v", field, err)
		}
	}
}

func TestProvision_ChmodsTool(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("file modes differ on windows")
	}

	dir := t.TempDir()
	toolPath := filepath.Join(dir, "magiskboot")
	if err := os.WriteFile(toolPath, []byte("#!/bin/sh\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	m := &Module{}
	if err := m.Configure(decodeNode(t, "scratch_root: scratch\n")); err != nil {
		t.Fatal(err)
	}
	appCtx := core.NewAppContext(slog.Default(), dir, dir)
	if err := m.Provision(appCtx.ForModule("unpack.magiskboot")); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	info, err := os.Stat(toolPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("tool mode = %v, want 0755", info.Mode().Perm())
	}
	if m.tool != toolPath {
		t.Errorf("tool = %q, want %q", m.tool, toolPath)
	}
	if m.workspace.Root != filepath.Join(dir, "scratch") {
		t.Errorf("scratch root = %q", m.workspace.Root)
	}
	if _, ok := appCtx.GetService(core.ServicePoolStats); !ok {
		t.Error("unpack.stats service not registered")
	}
}

func TestProvision_MissingToolIsNotFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := &Module{}
	m.config.defaults()
	if err := m.Provision(core.NewAppContext(slog.Default(), dir, dir)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
}

func TestProvision_VerifiesToolDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := []byte("#!/bin/sh\necho ok\n")
	if err := os.WriteFile(filepath.Join(dir, "magiskboot"), content, 0o755); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(content)

	m := &Module{}
	if err := m.Configure(decodeNode(t, "tool_sha256: "+hex.EncodeToString(sum[:])+"\n")); err != nil {
		t.Fatal(err)
	}
	if err := m.Provision(core.NewAppContext(slog.Default(), dir, dir)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
}

func TestProvision_RejectsTamperedTool(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "magiskboot"), []byte("tampered"), 0o755); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte("original"))

	m := &Module{}
	if err := m.Configure(decodeNode(t, "tool_sha256: "+hex.EncodeToString(sum[:])+"\n")); err != nil {
		t.Fatal(err)
	}
	err := m.Provision(core.NewAppContext(slog.Default(), dir, dir))
	if err == nil || !strings.Contains(err.Error(), "verification failed") {
		t.Fatalf("expected verification failure, got %v", err)
	}
}

func TestProvision_PinnedToolMustExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sum := sha256.Sum256([]byte("original"))
	m := &Module{}
	if err := m.Configure(decodeNode(t, "tool_sha256: "+hex.EncodeToString(sum[:])+"\n")); err != nil {
		t.Fatal(err)
	}
	if err := m.Provision(core.NewAppContext(slog.Default(), dir, dir)); err == nil {
		t.Fatal("expected error for missing pinned tool")
	}
}

func TestProvision_RegistersPoolGauges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reg := prometheus.NewRegistry()
	appCtx := core.NewAppContext(slog.Default(), dir, dir)
	appCtx.RegisterService(core.ServiceRegistry, reg)

	m := &Module{}
	m.config.defaults()
	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "bootunpack_pool_workers" {
			found = true
		}
	}
	if !found {
		t.Error("pool gauges not registered")
	}
}

func TestProvision_WorkspaceMaxHold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		yaml string
		want time.Duration
	}{
		{yaml: "workers: 1\n", want: 40*time.Second + 5*time.Minute},
		{yaml: "fetch_timeout: 10s\ninvoke_timeout: 1m\n", want: 70 * time.Second},
		{yaml: "invoke_timeout: 0s\n", want: 0},
	}
	for _, tt := range tests {
		m := &Module{}
		if err := m.Configure(decodeNode(t, tt.yaml)); err != nil {
			t.Fatal(err)
		}
		dir := t.TempDir()
		if err := m.Provision(core.NewAppContext(slog.Default(), dir, dir)); err != nil {
			t.Fatalf("Provision(%q): %v", tt.yaml, err)
		}
		if m.workspace.MaxHold != tt.want {
			t.Errorf("%q: MaxHold = %s, want %s", tt.yaml, m.workspace.MaxHold, tt.want)
		}
	}
}

func TestProvision_HistoryRing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		yaml     string
		existing history.Store
		wantCap  int
	}{
		{name: "configured size", yaml: "history_size: 3\n", wantCap: 3},
		{name: "default size", yaml: "workers: 1\n", wantCap: history.DefaultCapacity},
		{name: "persistent store wins", yaml: "history_size: 3\n", existing: history.NewMemoryStore(7), wantCap: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			appCtx := core.NewAppContext(slog.Default(), dir, dir)
			if tt.existing != nil {
				appCtx.RegisterService(history.ServiceName, tt.existing)
			}

			m := &Module{}
			if err := m.Configure(decodeNode(t, tt.yaml)); err != nil {
				t.Fatal(err)
			}
			if err := m.Provision(appCtx.ForModule("unpack.magiskboot")); err != nil {
				t.Fatalf("Provision: %v", err)
			}

			store, ok := core.Service[*history.MemoryStore](appCtx, history.ServiceName)
			if !ok {
				t.Fatal("history service not registered")
			}
			if store.Cap() != tt.wantCap {
				t.Errorf("Cap() = %d, want %d", store.Cap(), tt.wantCap)
			}
			if tt.existing != nil && history.Store(store) != tt.existing {
				t.Error("existing history service was replaced")
			}
		})
	}
}

// End to end: a real HTTP download handed to a scripted tool.
func TestModule_EndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools need a unix shell")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/boot.img" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ANDROID!"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	script := "#!/bin/sh\n" +
		`if [ "$1" != "unpack" ]; then echo "bad verb $1"; exit 2; fi` + "\n" +
		`head -c 8 "$2"; echo; echo "token=$TELEGRAM_BOT_TOKEN"` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "magiskboot"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:should-not-leak")

	appCtx := core.NewAppContext(slog.Default(), dir, dir)
	store := history.NewMemoryStore(4)
	appCtx.RegisterService(history.ServiceName, store)
	appCtx.RegisterService(core.ServiceCredentials, security.NewCredentialStore())

	m := &Module{}
	if err := m.Configure(decodeNode(t, "scratch_root: scratch\nworkers: 2\n")); err != nil {
		t.Fatal(err)
	}
	if err := m.Provision(appCtx.ForModule("unpack.magiskboot")); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	sender := &routertest.MockResponseSender{}
	r, err := router.NewRouter(router.Config{ResponseSender: sender})
	if err != nil {
		t.Fatal(err)
	}
	for _, route := range m.Commands(sender) {
		if err := r.Handle(route); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	r.Start(context.Background())

	msg := func(id, text string) message.InboundMessage {
		return message.InboundMessage{
			ID: id, Channel: "channel.telegram", Text: text,
			Chat: message.Chat{ID: "1001", Type: message.ChatDM},
		}
	}
	_ = r.Submit(msg("1", "/unpack "+srv.URL+"/boot.img"))
	_ = r.Submit(msg("2", "/unpack "+srv.URL+"/missing.img"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sent := sender.WaitForMessages(ctx, 4)

	r.Stop(context.Background())
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	results := make(map[string]string)
	for _, s := range sent {
		if s.Format == message.FormatCode {
			results[s.ReplyToID] = s.Text
		}
	}
	if got := results["1"]; got != "ANDROID!\ntoken=" {
		t.Errorf("success result = %q", got)
	}
	if got := results["2"]; !strings.HasPrefix(got, "An error occurred: error downloading file:") || !strings.Contains(got, "404") {
		t.Errorf("fetch failure result = %q", got)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "scratch"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d scratch directories left behind", len(entries))
	}
	if store.Len() != 2 {
		t.Errorf("history has %d records, want 2", store.Len())
	}
}
