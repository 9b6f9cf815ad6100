package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TokenEnvVar is the variable referenced by generated configuration files.
const TokenEnvVar = "TELEGRAM_BOT_TOKEN"

// InitOptions holds the answers collected by `bootunpack config init`.
type InitOptions struct {
	Token        string
	ToolPath     string
	Workers      int
	AllowDomains []string
	History      bool
	Gateway      bool
	GatewayBind  string
}

// Render produces the YAML for a fresh configuration file. The bot token is
// never written inline; the file references ${TELEGRAM_BOT_TOKEN} instead.
func Render(opts InitOptions) ([]byte, error) {
	unpack := map[string]any{
		"tool_path":     opts.ToolPath,
		"workers":       opts.Workers,
		"fetch_timeout": (40 * time.Second).String(),
	}
	modules := map[string]any{
		"channel.telegram":  map[string]any{"token": "${" + TokenEnvVar + "}"},
		"unpack.magiskboot": unpack,
	}
	if opts.History {
		modules["history.sqlite"] = map[string]any{}
	}
	if opts.Gateway {
		bind := opts.GatewayBind
		if bind == "" {
			bind = "127.0.0.1:8080"
		}
		modules["gateway.http"] = map[string]any{"bind": bind}
	}

	doc := map[string]any{
		"version": "1",
		"modules": modules,
	}
	if len(opts.AllowDomains) > 0 {
		doc["security"] = map[string]any{
			"url_filter": map[string]any{"allow_domains": opts.AllowDomains},
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config: rendering: %w", err)
	}
	return out, nil
}

// WriteDotEnv stores the bot token in the .env file next to configPath.
func WriteDotEnv(configPath, token string) (string, error) {
	path := filepath.Join(filepath.Dir(configPath), DotEnvName)
	if err := godotenv.Write(map[string]string{TokenEnvVar: token}, path); err != nil {
		return "", fmt.Errorf("config: writing %s: %w", path, err)
	}
	return path, nil
}
