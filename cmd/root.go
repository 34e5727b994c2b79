package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "umob",
	Short: "Urban Mobility fleet and customer management",
	Long: `umob manages a shared scooter fleet and its customers for a regional
mobility operator. Operator accounts, customer contact details, and the
activity log are encrypted at rest in a local SQLite database.

Access is role based: service engineers maintain scooters, system
administrators manage customers, the fleet, and engineer accounts, and
the super administrator manages administrators, backups, and restore
codes.

Example workflow:
  umob setup                         # Initialize the data directory
  umob login                         # Log in (seeded account: super_admin)
  umob traveller add --first-name... # Register a customer
  umob scooter search ninebot        # Find fleet vehicles
  umob backup create                 # Snapshot the database`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
