package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DotEnvName is the file loaded from the config directory before expansion.
const DotEnvName = ".env"

// varRef matches $${...} (an escaped literal), ${VAR} and ${VAR:-default}.
var varRef = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// Load reads the YAML file at path, substitutes environment references and
// decodes the result. A .env file next to path is applied first without
// overriding variables that are already set.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), DotEnvName)); err != nil {
		return nil, err
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: loading %s: %w", path, err)
}

// expandEnv substitutes variable references line by line. Comment lines are
// copied untouched so a commented-out ${VAR} never has to be set. All
// unresolved names are reported together.
func expandEnv(raw []byte) ([]byte, error) {
	var missing []string
	lines := bytes.SplitAfter(raw, []byte("\n"))
	for i, line := range lines {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("#")) {
			continue
		}
		lines[i] = varRef.ReplaceAllFunc(line, func(ref []byte) []byte {
			if bytes.HasPrefix(ref, []byte("$$")) {
				return ref[1:]
			}
			m := varRef.FindSubmatch(ref)
			name := string(m[1])
			if v, ok := os.LookupEnv(name); ok {
				return []byte(v)
			}
			if m[2] != nil {
				return m[2][2:]
			}
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return ref
		})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved variables: %s", strings.Join(missing, ", "))
	}
	return bytes.Join(lines, nil), nil
}
