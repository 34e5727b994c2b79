package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCodeCmd = &cobra.Command{
	Use:   "restore-code",
	Short: "Issue and revoke backup restore codes",
	Long: `Issue and revoke one-time restore codes. Only the super administrator
may do this. A code lets one system administrator restore one specific
backup; it is single use and expires after 24 hours.

Examples:
  umob restore-code generate backup_20250830_142501.zip --admin-id 2
  umob restore-code revoke --admin-id 2`,
}

var restoreCodeGenerateCmd = &cobra.Command{
	Use:   "generate <BACKUP_FILE>",
	Short: "Generate a restore code for a system administrator",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestoreCodeGenerate,
}

var restoreCodeRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an administrator's active restore codes",
	RunE:  runRestoreCodeRevoke,
}

var restoreCodeAdminID int64

func init() {
	rootCmd.AddCommand(restoreCodeCmd)
	restoreCodeCmd.AddCommand(restoreCodeGenerateCmd)
	restoreCodeCmd.AddCommand(restoreCodeRevokeCmd)
	for _, c := range []*cobra.Command{restoreCodeGenerateCmd, restoreCodeRevokeCmd} {
		c.Flags().Int64Var(&restoreCodeAdminID, "admin-id", 0, "System administrator user id (required)")
		c.MarkFlagRequired("admin-id")
	}
}

func runRestoreCodeGenerate(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	code, err := svc.GenerateRestoreCode(actor, args[0], restoreCodeAdminID)
	if err != nil {
		return err
	}
	fmt.Printf("Restore code: %s\n", code.Code)
	fmt.Printf("Backup:       %s\n", code.BackupFilename)
	fmt.Printf("Expires:      %s\n", code.ExpiresAt.Format("2006-01-02 15:04"))
	fmt.Println("The code is single use; share it with the administrator over a secure channel.")
	return nil
}

func runRestoreCodeRevoke(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	revoked, err := svc.RevokeRestoreCodes(actor, restoreCodeAdminID)
	if err != nil {
		return err
	}
	fmt.Printf("Revoked %d code(s)\n", revoked)
	return nil
}
