package security

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// sensitiveQueryKeys are query parameters stripped from logged download URLs.
var sensitiveQueryKeys = []string{
	"token", "access_token", "auth", "key", "sig", "signature",
	"x-amz-signature", "x-amz-credential", "x-amz-security-token",
}

// Redactor replaces secret values in strings with RedactPlaceholder.
// It matches known token formats by pattern and runtime credentials by
// literal value. All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
	tracked  []string
}

// NewRedactor creates a Redactor loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret value. Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Track keeps the redactor in step with store: every credential it holds
// is redacted, and removed credentials stop being redacted.
func (r *Redactor) Track(store *CredentialStore) {
	store.Watch(func(values []string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tracked = values
	})
}

// Redact replaces all known secret patterns and literal values in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	tracked := r.tracked
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	for _, lit := range tracked {
		s = strings.ReplaceAll(s, lit, RedactPlaceholder)
	}
	return s
}

// RedactURL strips user info and signed query parameters from a download
// link before it is logged or stored. Unparseable input is passed to Redact.
func (r *Redactor) RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return r.Redact(raw)
	}
	if u.User != nil {
		u.User = url.User(RedactPlaceholder)
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isSensitiveQueryKey(key) {
				q.Set(key, RedactPlaceholder)
			}
		}
		u.RawQuery = q.Encode()
	}
	return r.Redact(u.String())
}

func isSensitiveQueryKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveQueryKeys {
		if lower == k {
			return true
		}
	}
	return false
}

// DefaultPatterns returns compiled patterns for token formats that may show
// up in URLs, library logs, or tool output.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Telegram bot token, also as it appears in Bot API URLs (/bot<token>/).
		regexp.MustCompile(`[0-9]{6,12}:[A-Za-z0-9_-]{30,}`),
		// GitHub: ghp_, gho_, ghs_, github_pat_
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		// AWS Access Key ID
		regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
		// Bearer tokens in echoed headers.
		regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/=-]{16,}`),
	}
}
