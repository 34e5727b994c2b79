package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmobility/umob/internal/config"
	"github.com/urbanmobility/umob/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show initialization and session state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	fmt.Printf("Data directory: %s\n", cfg.DataDir)
	if !cfg.Exists() {
		fmt.Println("Status:         not initialized (run 'umob setup')")
		return nil
	}
	fmt.Println("Status:         initialized")

	svc, err := service.Open(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	actor, err := svc.CurrentActor()
	switch {
	case err == nil:
		fmt.Printf("Session:        %s (%s)\n", actor.Username, actor.Role)
	case errors.Is(err, service.ErrSessionExpired):
		fmt.Println("Session:        expired")
	default:
		fmt.Println("Session:        not logged in")
	}
	return nil
}
