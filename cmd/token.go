package cmd

import (
	"errors"
	"fmt"
	"time"

	"agenda-backend/config"
	"agenda-backend/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newTokenCmd issues API tokens. Account management lives outside this
// service, so operators mint tokens for integrations here.
func newTokenCmd() *cobra.Command {
	var (
		company string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed API token for a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(company); err != nil {
				return errors.New("--company must be a company id")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.JWTExpiry()
			}
			token, err := utils.GenerateToken(cfg.JWTSecret, subject, company, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "company id the token is scoped to")
	cmd.Flags().StringVar(&subject, "subject", "integration", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_EXPIRY_HOURS)")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}
