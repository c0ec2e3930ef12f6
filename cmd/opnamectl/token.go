package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/auth"
)

var (
	tokenUser   string
	tokenBranch string
	tokenPerms  []string
	tokenAdmin  bool
	tokenTTL    time.Duration
)

// tokenCmd issues tokens for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token (development)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
		user := appctx.UserContext{
			UserID:      tokenUser,
			Permissions: tokenPerms,
			IsAdmin:     tokenAdmin,
		}
		if tokenBranch != "" {
			branchID, err := id.Parse(tokenBranch)
			if err != nil {
				return fmt.Errorf("invalid --branch: %w", err)
			}
			user.BranchID = branchID
		}

		jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
		jwtCfg.Issuer = cfg.JWTIssuer
		jwtCfg.AccessTokenTTL = tokenTTL

		token, _, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(user)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (required)")
	tokenCmd.Flags().StringVar(&tokenBranch, "branch", "", "home branch id")
	tokenCmd.Flags().StringSliceVar(&tokenPerms, "perm", nil, "permission, repeatable (e.g. "+auth.PermOpnameReview+")")
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "grant every permission")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
