// Package cert checks the external tool binary before it is trusted: an
// optional pinned SHA-256 digest and an optional Ed25519 signature over
// that digest.
package cert

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// VerifyConfig controls tool verification. The zero value verifies nothing.
type VerifyConfig struct {
	// SHA256 is the expected hex digest of the tool.
	SHA256 string

	// Signature is a hex-encoded Ed25519 signature of the tool's SHA-256
	// digest, checked against TrustedKeys.
	Signature string

	// TrustedKeys is a list of hex-encoded Ed25519 public keys.
	TrustedKeys []string
}

// Verifier checks a file against a pinned digest and signature.
type Verifier struct {
	digest    []byte
	signature []byte
	keys      []ed25519.PublicKey
}

// NewVerifier creates a Verifier from the given config.
// Returns an error if a signature is configured without valid keys.
func NewVerifier(cfg VerifyConfig) (*Verifier, error) {
	v := &Verifier{}

	if cfg.SHA256 != "" {
		raw, err := hex.DecodeString(strings.TrimSpace(cfg.SHA256))
		if err != nil || len(raw) != sha256.Size {
			return nil, fmt.Errorf("cert: invalid sha256 %q", cfg.SHA256)
		}
		v.digest = raw
	}

	if cfg.Signature == "" {
		return v, nil
	}

	sig, err := hex.DecodeString(cfg.Signature)
	if err != nil {
		return nil, fmt.Errorf("cert: invalid signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("cert: invalid signature size: got %d, want %d", len(sig), ed25519.SignatureSize)
	}
	v.signature = sig

	keys := make([]ed25519.PublicKey, 0, len(cfg.TrustedKeys))
	for _, hexKey := range cfg.TrustedKeys {
		raw, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("cert: invalid trusted key %q: %w", hexKey, err)
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("cert: invalid key size for %q: got %d, want %d", hexKey, len(raw), ed25519.PublicKeySize)
		}
		keys = append(keys, ed25519.PublicKey(raw))
	}
	if len(keys) == 0 {
		return nil, errors.New("cert: signature configured but no trusted keys provided")
	}
	v.keys = keys
	return v, nil
}

// Enabled reports whether Verify checks anything.
func (v *Verifier) Enabled() bool {
	return v != nil && (v.digest != nil || v.signature != nil)
}

// Verify hashes the file at path and checks it against the pinned digest
// and the signature. A disabled verifier accepts any file.
func (v *Verifier) Verify(path string) error {
	if !v.Enabled() {
		return nil
	}

	digest, err := FileDigest(path)
	if err != nil {
		return err
	}

	if v.digest != nil && subtle.ConstantTimeCompare(digest, v.digest) != 1 {
		return fmt.Errorf("cert: %s: digest mismatch (got %s)", path, hex.EncodeToString(digest))
	}

	if v.signature != nil {
		for _, key := range v.keys {
			if ed25519.Verify(key, digest, v.signature) {
				return nil
			}
		}
		return fmt.Errorf("cert: %s: no trusted key verified the signature", path)
	}
	return nil
}

// FileDigest returns the SHA-256 digest of the file at path.
func FileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cert: opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("cert: reading %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
