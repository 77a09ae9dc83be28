// Package auth issues and verifies login credentials and resolves the
// current user of each request.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	signingKeyFile = "token.key"
	signingKeySize = 32
)

// LoadOrGenerateKey returns the credential signing key kept in
// <dataPath>/token.key, creating it with 32 random bytes on first start.
// The file holds the key hex-encoded.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, signingKeyFile)

	//#nosec G304 -- key path is derived from the configured data path
	if raw, err := os.ReadFile(keyPath); err == nil {
		key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("invalid signing key format in %s: %w", keyPath, err)
		}
		if len(key) != signingKeySize {
			return nil, fmt.Errorf("invalid signing key length in %s: expected %d bytes, got %d", keyPath, signingKeySize, len(key))
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	key := make([]byte, signingKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save signing key: %w", err)
	}

	return key, nil
}
