package cmd

import (
	"agenda-backend/config"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := config.Migrate(a.db); err != nil {
				return err
			}
			a.logger.Info("Migrations applied")
			return nil
		},
	}
}
