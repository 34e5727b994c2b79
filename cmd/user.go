package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmobility/umob/internal/identity"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts",
	Long: `Manage operator accounts. System administrators manage service
engineers; the super administrator manages system administrators.

Examples:
  umob user add --role engineer --username mech_davis
  umob user list --role admin
  umob user update 3 --role engineer --first-name Sam --last-name Davis
  umob user reset-password 3
  umob user delete 3 --role engineer`,
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an operator account",
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List operator accounts for a role",
	RunE:  runUserList,
}

var userUpdateCmd = &cobra.Command{
	Use:   "update <USER_ID>",
	Short: "Update an operator's name",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserUpdate,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <USER_ID>",
	Short: "Deactivate an operator account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDelete,
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <USER_ID>",
	Short: "Reset a service engineer's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserResetPassword,
}

var (
	userRole      string
	userUsername  string
	userFirstName string
	userLastName  string
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userUpdateCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userResetPasswordCmd)

	for _, c := range []*cobra.Command{userAddCmd, userListCmd, userUpdateCmd, userDeleteCmd} {
		c.Flags().StringVarP(&userRole, "role", "r", "", "Account role: engineer or admin (required)")
		c.MarkFlagRequired("role")
	}
	userAddCmd.Flags().StringVarP(&userUsername, "username", "u", "", "Username, 8-20 characters (required)")
	userAddCmd.MarkFlagRequired("username")
	userAddCmd.Flags().StringVar(&userFirstName, "first-name", "", "First name (required)")
	userAddCmd.MarkFlagRequired("first-name")
	userAddCmd.Flags().StringVar(&userLastName, "last-name", "", "Last name (required)")
	userAddCmd.MarkFlagRequired("last-name")

	userUpdateCmd.Flags().StringVar(&userFirstName, "first-name", "", "First name (required)")
	userUpdateCmd.MarkFlagRequired("first-name")
	userUpdateCmd.Flags().StringVar(&userLastName, "last-name", "", "Last name (required)")
	userUpdateCmd.MarkFlagRequired("last-name")
}

func isEngineerRole() (bool, error) {
	switch userRole {
	case "engineer":
		return true, nil
	case "admin":
		return false, nil
	}
	return false, fmt.Errorf("unknown role %q; expected 'engineer' or 'admin'", userRole)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	engineer, err := isEngineerRole()
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	password, err := promptPassword("Password for new account: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	var id int64
	if engineer {
		id, err = svc.AddServiceEngineer(actor, userUsername, password, userFirstName, userLastName)
	} else {
		id, err = svc.AddSystemAdmin(actor, userUsername, password, userFirstName, userLastName)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Created account %s (id %d)\n", userUsername, id)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	engineer, err := isEngineerRole()
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	var members []identity.Member
	if engineer {
		members, err = svc.ListServiceEngineers(actor)
	} else {
		members, err = svc.ListSystemAdmins(actor)
	}
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Println("No accounts found")
		return nil
	}
	for _, m := range members {
		fmt.Printf("%4d  %-20s  %s\n", m.ID, m.Username, m.Name)
	}
	return nil
}

func runUserUpdate(cmd *cobra.Command, args []string) error {
	engineer, err := isEngineerRole()
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	if engineer {
		err = svc.UpdateEngineerProfile(actor, id, userFirstName, userLastName)
	} else {
		err = svc.UpdateAdminProfile(actor, id, userFirstName, userLastName)
	}
	if err != nil {
		return err
	}
	fmt.Println("Profile updated")
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	engineer, err := isEngineerRole()
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	ok, err := confirmPhrase(
		fmt.Sprintf("This permanently deactivates account %d; there is no reactivation.", id),
		"DELETE")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled")
		return nil
	}

	if engineer {
		err = svc.DeleteServiceEngineer(actor, id)
	} else {
		err = svc.DeleteSystemAdmin(actor, id)
	}
	if err != nil {
		return err
	}
	fmt.Println("Account deactivated")
	return nil
}

func runUserResetPassword(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	password, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	if err := svc.ResetEngineerPassword(actor, id, password); err != nil {
		return err
	}
	fmt.Println("Password reset")
	return nil
}
