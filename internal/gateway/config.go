package gateway

import (
	"fmt"
	"net/netip"
	"time"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxRecent caps the limit parameter of /api/requests.
	MaxRecent int `yaml:"max_recent"`
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxRecent <= 0 {
		c.MaxRecent = 200
	}
}

// AuthConfig guards the admin endpoints (/status and /api). Any listed
// bearer token or the basic credential pair is accepted. When
// AllowNetworks is set, clients outside those networks are refused before
// credentials are checked.
type AuthConfig struct {
	Tokens        []string `yaml:"tokens"`
	BasicUser     string   `yaml:"basic_user"`
	BasicPass     string   `yaml:"basic_pass"`
	AllowNetworks []string `yaml:"allow_networks"`
}

// IsConfigured reports whether at least one credential is usable.
func (a AuthConfig) IsConfigured() bool {
	for _, tok := range a.Tokens {
		if tok != "" {
			return true
		}
	}
	return a.BasicUser != "" && a.BasicPass != ""
}

// networks parses AllowNetworks. Bare addresses are treated as single-host
// prefixes.
func (a AuthConfig) networks() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(a.AllowNetworks))
	for _, s := range a.AllowNetworks {
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("gateway: invalid allow_networks entry %q", s)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
