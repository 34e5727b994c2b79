package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmobility/umob/internal/config"
	"github.com/urbanmobility/umob/internal/crypto"
)

var keychainCmd = &cobra.Command{
	Use:   "keychain",
	Short: "Manage OS keychain escrow of the encryption key",
	Long: `Keep a copy of the data encryption key in the OS keychain
(macOS Keychain, Windows Credential Manager, or Linux Secret Service).

If the key file in the data directory is ever lost, 'umob keychain
recover' writes it back from the keychain. Without the key the
encrypted database contents cannot be read.

Examples:
  umob keychain status
  umob keychain enable
  umob keychain recover
  umob keychain disable`,
}

var keychainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show keychain escrow status",
	RunE:  runKeychainStatus,
}

var keychainEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Store a copy of the key in the OS keychain",
	RunE:  runKeychainEnable,
}

var keychainDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Remove the key copy from the OS keychain",
	RunE:  runKeychainDisable,
}

var keychainRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Rewrite the key file from the OS keychain",
	RunE:  runKeychainRecover,
}

func init() {
	rootCmd.AddCommand(keychainCmd)
	keychainCmd.AddCommand(keychainStatusCmd)
	keychainCmd.AddCommand(keychainEnableCmd)
	keychainCmd.AddCommand(keychainDisableCmd)
	keychainCmd.AddCommand(keychainRecoverCmd)
}

func runKeychainStatus(cmd *cobra.Command, args []string) error {
	if !crypto.KeychainAvailable() {
		fmt.Println("Keychain is not available on this system")
		return nil
	}
	fmt.Println("Keychain available: true")

	if _, err := crypto.GetKeyFromKeychain(); err != nil {
		fmt.Println("Key escrowed:       false")
		fmt.Println("\nEnable with 'umob keychain enable' to protect against key file loss.")
		return nil
	}
	fmt.Println("Key escrowed:       true")
	return nil
}

func runKeychainEnable(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	key, err := crypto.LoadKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("no key file found: run 'umob setup' first")
	}
	if !crypto.KeychainAvailable() {
		return fmt.Errorf("keychain is not available on this system")
	}
	if err := crypto.StoreKeyInKeychain(key); err != nil {
		return fmt.Errorf("failed to store key in keychain: %w", err)
	}
	fmt.Println("Key copied to the OS keychain")
	return nil
}

func runKeychainDisable(cmd *cobra.Command, args []string) error {
	if err := crypto.DeleteKeyFromKeychain(); err != nil {
		return fmt.Errorf("failed to remove key from keychain: %w", err)
	}
	fmt.Println("Key removed from the OS keychain")
	return nil
}

func runKeychainRecover(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	escrowed, err := crypto.GetKeyFromKeychain()
	if err != nil {
		return fmt.Errorf("no key found in keychain: %w", err)
	}

	if existing, err := crypto.LoadKey(cfg.KeyPath); err == nil {
		if bytes.Equal(existing, escrowed) {
			fmt.Println("Key file already matches the keychain copy")
			return nil
		}
		return fmt.Errorf("a different key file already exists at %s; refusing to overwrite", cfg.KeyPath)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return err
	}
	if err := crypto.WriteKeyFile(cfg.KeyPath, escrowed); err != nil {
		return err
	}
	fmt.Printf("Key file restored at %s\n", cfg.KeyPath)
	return nil
}
