package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmobility/umob/internal/config"
	"github.com/urbanmobility/umob/internal/service"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initialize the data directory",
	Long: `Initialize the data directory: generate the encryption key, create
the database, and seed the bootstrap super administrator account.

Safe to run more than once; existing data is left alone.

Examples:
  umob setup
  umob setup --seed-demo   # Also load a small demo dataset`,
	RunE: runSetup,
}

var setupSeedDemo bool

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&setupSeedDemo, "seed-demo", false, "Load demo accounts, travellers, and scooters")
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	svc, seeded, err := service.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	defer svc.Close()

	fmt.Printf("Data directory ready at %s\n", cfg.DataDir)
	if seeded {
		fmt.Printf("Seeded bootstrap account '%s'. Log in and change its password.\n", service.SeedUsername)
	}

	if setupSeedDemo {
		if err := svc.SeedDemo(); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		fmt.Println("Demo dataset loaded")
	}
	return nil
}
