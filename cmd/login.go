package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmobility/umob/internal/service"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and open a session",
	Long: `Log in with a username and password. A successful login opens a
session valid for 8 hours; commands run within it act as that operator.

Examples:
  umob login
  umob login --username fleet_admin`,
	RunE: runLogin,
}

var loginUsername string

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted if omitted)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	username := loginUsername
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	actor, err := svc.Login(username, password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s)\n", actor.Username, actor.Role)

	if actor.Username == service.SeedUsername {
		fmt.Println("You are using the bootstrap account; change its password with 'umob passwd'.")
	}
	if count, err := svc.UnreadSuspiciousCount(actor); err == nil && count > 0 {
		fmt.Printf("Alert: %d unread suspicious log entries. Review with 'umob logs'.\n", count)
	}
	return nil
}
