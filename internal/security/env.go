package security

import (
	"os"
	"strings"
)

// sensitiveEnvPrefixes are stripped from the environment of child processes.
var sensitiveEnvPrefixes = []string{
	"TELEGRAM_",
	"BOOTUNPACK_GATEWAY_",
	"AWS_SECRET",
	"AWS_SESSION_TOKEN",
	"GITHUB_TOKEN",
	"GH_TOKEN",
	"GITLAB_TOKEN",
	"OTEL_EXPORTER_OTLP_HEADERS",
}

// sensitiveEnvExact are stripped only on an exact (case-insensitive) match.
var sensitiveEnvExact = map[string]struct{}{
	"AWS_SECRET_ACCESS_KEY": {},
	"DATABASE_URL":          {},
}

// minSecretLen avoids replacing short, common values such as "1" or "true".
const minSecretLen = 8

// SanitizedEnv returns a copy of os.Environ() without sensitive variables.
// Credential values from store that still appear inside the remaining
// variables are replaced with RedactPlaceholder.
func SanitizedEnv(store *CredentialStore) []string {
	return sanitizeEnv(os.Environ(), store)
}

func sanitizeEnv(env []string, store *CredentialStore) []string {
	var secrets []string
	if store != nil {
		for _, v := range store.Values() {
			if len(v) >= minSecretLen {
				secrets = append(secrets, v)
			}
		}
	}

	result := make([]string, 0, len(env))
	for _, entry := range env {
		key, _, ok := strings.Cut(entry, "=")
		if !ok || isSensitiveEnvVar(key) {
			continue
		}
		for _, secret := range secrets {
			entry = strings.ReplaceAll(entry, secret, RedactPlaceholder)
		}
		result = append(result, entry)
	}
	return result
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	if _, ok := sensitiveEnvExact[upper]; ok {
		return true
	}
	for _, prefix := range sensitiveEnvPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
