package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/assettrack/internal/auth"
	"github.com/JonMunkholm/assettrack/internal/config"
	"github.com/JonMunkholm/assettrack/internal/core"
)

func newTokenCmd() *cobra.Command {
	var (
		actor core.Actor
		role  string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ac config.AuthConfig
			if err := config.LoadInto(&ac); err != nil {
				return err
			}
			if ttl > 0 {
				ac.TokenTTL = ttl
			}
			actor.Role = core.Role(role)
			if actor.Role != core.RoleAdmin && actor.Role != core.RoleUser {
				return fmt.Errorf("unknown role %q: want admin or user", role)
			}

			token, err := auth.NewIssuer(ac.Secret, ac.Issuer, ac.TokenTTL).Issue(actor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&actor.UserID, "user", 0, "user id (required)")
	cmd.Flags().Int64Var(&actor.OrganizationID, "org", 0, "organization id (required)")
	cmd.Flags().StringVar(&role, "role", string(core.RoleUser), "role: admin or user")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default JWT_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
