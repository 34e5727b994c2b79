package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeychainService is the service name used in the OS keychain
	KeychainService = "umob"
	// KeychainAccount is the account name for the data key
	KeychainAccount = "data-key"
)

// KeychainAvailable checks if the OS keychain is available
func KeychainAvailable() bool {
	_, err := keyring.Get(KeychainService, "__test__")
	// ErrNotFound means the keychain works but the key doesn't exist;
	// any other error means the keychain isn't usable here
	return err == keyring.ErrNotFound || err == nil
}

// StoreKeyInKeychain mirrors the data key into the OS keychain so the
// key survives loss of the key file
func StoreKeyInKeychain(key []byte) error {
	if len(key) != KeyLength {
		return ErrInvalidKeyLength
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := keyring.Set(KeychainService, KeychainAccount, encoded); err != nil {
		return fmt.Errorf("failed to store key in keychain: %w", err)
	}
	return nil
}

// GetKeyFromKeychain retrieves the data key from the OS keychain
func GetKeyFromKeychain() ([]byte, error) {
	encoded, err := keyring.Get(KeychainService, KeychainAccount)
	if err == keyring.ErrNotFound {
		return nil, fmt.Errorf("no key found in keychain")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key from keychain: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key from keychain: %w", err)
	}
	if len(key) != KeyLength {
		return nil, fmt.Errorf("invalid key length in keychain")
	}
	return key, nil
}

// DeleteKeyFromKeychain removes the data key from the OS keychain
func DeleteKeyFromKeychain() error {
	err := keyring.Delete(KeychainService, KeychainAccount)
	if err == keyring.ErrNotFound {
		return nil // Already deleted, not an error
	}
	if err != nil {
		return fmt.Errorf("failed to delete key from keychain: %w", err)
	}
	return nil
}
