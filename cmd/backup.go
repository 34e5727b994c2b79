package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, and restore database backups",
	Long: `Create, list, and restore zip snapshots of the database.

A super administrator restores any backup directly. A system
administrator needs a one-time restore code issued by the super
administrator; the code is bound to one backup file and expires after
24 hours.

Examples:
  umob backup create
  umob backup list
  umob backup restore backup_20250830_142501.zip
  umob backup restore --code 4f2a...                  # As system admin`,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup of the database",
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups, newest first",
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [BACKUP_FILE]",
	Short: "Restore the database from a backup",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupRestore,
}

var backupRestoreCode string

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupRestoreCmd.Flags().StringVar(&backupRestoreCode, "code", "", "Restore code (required for system administrators)")
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	filename, err := svc.CreateBackup(actor)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", filename)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	backups, err := svc.ListBackups(actor)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}
	for _, name := range backups {
		fmt.Println(name)
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	filename := ""
	if len(args) == 1 {
		filename = args[0]
	}
	if filename == "" && backupRestoreCode == "" {
		return fmt.Errorf("pass a backup filename or a restore code")
	}

	ok, err := confirmPhrase(
		"This replaces the live database with the backup contents. Changes made since the backup are lost and all sessions end.",
		"RESTORE")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled")
		return nil
	}

	if err := svc.RestoreBackup(actor, filename, backupRestoreCode); err != nil {
		return err
	}
	fmt.Println("Database restored. Log in again.")
	return nil
}
