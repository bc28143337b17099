package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newSchedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Reminder and no-show jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Send due reminders and sweep no-shows once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.reminders.Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	})
	return cmd
}
