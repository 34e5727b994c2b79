package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Review the system activity log",
	Long: `Show the decrypted activity log, newest first, and mark every entry
as reviewed. Suspicious entries are flagged.

Examples:
  umob logs
  umob logs --suspicious   # Only flagged entries`,
	RunE: runLogs,
}

var logsSuspiciousOnly bool

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVar(&logsSuspiciousOnly, "suspicious", false, "Show only suspicious entries")
}

func runLogs(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	entries, err := svc.ViewLogs(actor)
	if err != nil {
		return err
	}

	shown := 0
	for _, e := range entries {
		if logsSuspiciousOnly && !e.IsSuspicious {
			continue
		}
		flag := " "
		if e.IsSuspicious {
			flag = "!"
		}
		fmt.Printf("%s %s  %-28s %-15s %s\n",
			flag, e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.Username, e.Description)
		if e.Details != "" {
			fmt.Printf("      %s\n", e.Details)
		}
		shown++
	}
	if shown == 0 {
		fmt.Println("No log entries")
	}
	return nil
}
