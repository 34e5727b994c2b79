package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Logout(actor); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}
