package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View or update your own profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE:  runProfileShow,
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your first and last name",
	RunE:  runProfileUpdate,
}

var (
	profileFirstName string
	profileLastName  string
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileUpdateCmd.Flags().StringVar(&profileFirstName, "first-name", "", "First name (required)")
	profileUpdateCmd.Flags().StringVar(&profileLastName, "last-name", "", "Last name (required)")
	profileUpdateCmd.MarkFlagRequired("first-name")
	profileUpdateCmd.MarkFlagRequired("last-name")
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := svc.OwnProfile(actor)
	if err != nil {
		return err
	}
	fmt.Printf("Username:   %s\n", actor.Username)
	fmt.Printf("Role:       %s\n", actor.Role)
	fmt.Printf("Name:       %s\n", p.Name())
	fmt.Printf("Registered: %s\n", p.RegisteredAt.Format("2006-01-02"))
	return nil
}

func runProfileUpdate(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.UpdateOwnProfile(actor, profileFirstName, profileLastName); err != nil {
		return err
	}
	fmt.Println("Profile updated")
	return nil
}
