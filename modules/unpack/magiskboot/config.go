package magiskboot

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/bootunpack/internal/cert"
	"github.com/flemzord/bootunpack/internal/fetch"
	"github.com/flemzord/bootunpack/internal/pipeline"
	"github.com/flemzord/bootunpack/internal/unpack"
)

const defaultToolPath = "./magiskboot"

// Config holds the unpack module configuration.
type Config struct {
	// ToolPath is the magiskboot executable, relative to the working
	// directory unless absolute.
	ToolPath string `yaml:"tool_path"`

	// Workers and QueueSize size the worker pool.
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`

	// FetchTimeout bounds a whole download. Defaults to 40s.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// InvokeTimeout bounds one tool run. Unset defaults to 5m; 0 disables.
	InvokeTimeout *time.Duration `yaml:"invoke_timeout"`

	// MaxBytes caps the download size. Zero means unlimited.
	MaxBytes int64 `yaml:"max_bytes"`

	// ScratchRoot holds per-request directories. Defaults to the system
	// temp directory.
	ScratchRoot string `yaml:"scratch_root"`

	// FileName is the downloaded image name inside a scratch directory.
	FileName string `yaml:"file_name"`

	// ToolSHA256 pins the tool's hex SHA-256 digest.
	ToolSHA256 string `yaml:"tool_sha256"`

	// ToolSignature is a hex Ed25519 signature of the tool digest, checked
	// against TrustedKeys.
	ToolSignature string   `yaml:"tool_signature"`
	TrustedKeys   []string `yaml:"trusted_keys"`

	// HistorySize is the capacity of the in-memory ring this module
	// registers as the history service when no history.sqlite module is
	// loaded. It is ignored when a persistent store is present.
	HistorySize int `yaml:"history_size"`
}

func (c *Config) defaults() {
	if c.ToolPath == "" {
		c.ToolPath = defaultToolPath
	}
	if c.Workers == 0 {
		c.Workers = pipeline.DefaultWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = pipeline.DefaultQueueSize
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = fetch.DefaultTimeout
	}
	if c.InvokeTimeout == nil {
		d := unpack.DefaultTimeout
		c.InvokeTimeout = &d
	}
	if c.FileName == "" {
		c.FileName = pipeline.DefaultFileName
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("unpack: workers must be positive, got %d", c.Workers))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("unpack: queue_size must be positive, got %d", c.QueueSize))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("unpack: fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.InvokeTimeout != nil && *c.InvokeTimeout < 0 {
		errs = append(errs, fmt.Errorf("unpack: invoke_timeout must not be negative, got %s", *c.InvokeTimeout))
	}
	if c.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("unpack: max_bytes must not be negative, got %d", c.MaxBytes))
	}
	if _, err := c.verifier(); err != nil {
		errs = append(errs, fmt.Errorf("unpack: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) verifier() (*cert.Verifier, error) {
	return cert.NewVerifier(cert.VerifyConfig{
		SHA256:      c.ToolSHA256,
		Signature:   c.ToolSignature,
		TrustedKeys: c.TrustedKeys,
	})
}
