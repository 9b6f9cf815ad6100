package security

import (
	"slices"
	"strings"
	"testing"
)

func TestSanitizeEnv_RemovesSensitiveVars(t *testing.T) {
	t.Parallel()

	env := []string{
		"PATH=/usr/bin",
		"HOME=/home/bot",
		"TELEGRAM_BOT_TOKEN=123456:abcdef",
		"telegram_proxy=socks5://x",
		"GITHUB_TOKEN=ghp_x",
		"AWS_SECRET_ACCESS_KEY=y",
		"DATABASE_URL=postgres://",
		"DATABASE_HOST=db",
		"malformed",
	}

	got := sanitizeEnv(env, nil)
	want := []string{"PATH=/usr/bin", "HOME=/home/bot", "DATABASE_HOST=db"}
	if !slices.Equal(got, want) {
		t.Errorf("sanitizeEnv() = %v, want %v", got, want)
	}
}

func TestSanitizeEnv_RedactsCredentialValues(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore()
	store.Set("telegram.token", "123456:abcdefgh")
	store.Set("short", "yes")

	env := []string{
		"PROXY_URL=https://user:123456:abcdefgh@proxy",
		"FLAG=yes",
	}

	got := sanitizeEnv(env, store)
	if strings.Contains(got[0], "123456:abcdefgh") {
		t.Errorf("credential value leaked: %q", got[0])
	}
	if !strings.Contains(got[0], RedactPlaceholder) {
		t.Errorf("expected placeholder in %q", got[0])
	}
	if got[1] != "FLAG=yes" {
		t.Errorf("short values must not be replaced, got %q", got[1])
	}
}

func TestSanitizedEnv_UsesProcessEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:process")
	t.Setenv("BOOTUNPACK_TEST_VISIBLE", "1")

	env := SanitizedEnv(nil)
	for _, e := range env {
		if strings.HasPrefix(e, "TELEGRAM_BOT_TOKEN=") {
			t.Fatalf("sensitive variable present: %q", e)
		}
	}
	if !slices.Contains(env, "BOOTUNPACK_TEST_VISIBLE=1") {
		t.Error("expected non-sensitive variable to be kept")
	}
}
