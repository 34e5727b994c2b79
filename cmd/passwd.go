package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your own password",
	Long: `Change the password of the logged-in operator. The current password
must be entered first; the new one must be 12-30 characters with an
uppercase letter, a lowercase letter, a digit, and a special character.`,
	RunE: runPasswd,
}

func init() {
	rootCmd.AddCommand(passwdCmd)
}

func runPasswd(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	current, err := promptPassword("Current password: ")
	if err != nil {
		return err
	}
	next, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Repeat new password: ")
	if err != nil {
		return err
	}
	if next != confirm {
		return fmt.Errorf("passwords do not match")
	}

	if err := svc.ChangeOwnPassword(actor, current, next); err != nil {
		return err
	}
	fmt.Println("Password changed")
	return nil
}
