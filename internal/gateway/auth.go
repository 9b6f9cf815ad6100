package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// authMiddleware admits a request when its client address is allowed and it
// carries a known bearer token or the basic credential pair. Secrets are
// compared in constant time and never logged.
func authMiddleware(cfg AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	// Validate has already rejected malformed entries.
	nets, _ := cfg.networks()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(nets) > 0 && !clientAllowed(r.RemoteAddr, nets) {
				logAuthFailure(logger, r, "client network not allowed")
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				logAuthFailure(logger, r, "missing authorization header")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if presented, ok := strings.CutPrefix(header, "Bearer "); ok && matchesAny(presented, cfg.Tokens) {
				next.ServeHTTP(w, r)
				return
			}
			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				// Evaluate both halves so timing does not reveal which one failed.
				userOK := constantTimeEqual(user, cfg.BasicUser)
				passOK := constantTimeEqual(pass, cfg.BasicPass)
				if ok && userOK && passOK {
					next.ServeHTTP(w, r)
					return
				}
			}

			logAuthFailure(logger, r, "invalid credentials")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

func clientAllowed(remoteAddr string, nets []netip.Prefix) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range nets {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func matchesAny(presented string, tokens []string) bool {
	found := false
	for _, tok := range tokens {
		if tok != "" && constantTimeEqual(presented, tok) {
			found = true
		}
	}
	return found
}

func logAuthFailure(logger *slog.Logger, r *http.Request, detail string) {
	if logger == nil {
		return
	}
	logger.Warn("gateway auth failure",
		"detail", detail,
		"remote_addr", r.RemoteAddr,
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
