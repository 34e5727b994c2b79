package crypto

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// LoadOrGenerateKey returns the deployment's data encryption key. The
// key is generated exactly once, on first run, and persisted hex-encoded
// to path with 0600 permissions; every later call loads that same key.
// The key file is the root of trust: if it is lost, everything encrypted
// under it is unrecoverable.
func LoadOrGenerateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return decodeKey(data, path)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	encoded := hex.EncodeToString(key) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}

// WriteKeyFile persists a key hex-encoded with 0600 permissions. Used
// when recovering the key file from the OS keychain escrow.
func WriteKeyFile(path string, key []byte) error {
	if len(key) != KeyLength {
		return ErrInvalidKeyLength
	}
	encoded := hex.EncodeToString(key) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// LoadKey loads an existing key file, failing if it is absent
func LoadKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return decodeKey(data, path)
}

func decodeKey(data []byte, path string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("key file %s is corrupt: %w", path, err)
	}
	if len(key) != KeyLength {
		return nil, fmt.Errorf("key file %s is corrupt: %w", path, ErrInvalidKeyLength)
	}
	return key, nil
}
