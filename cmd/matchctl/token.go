package main

import (
	"fmt"
	"time"

	"gig-match/internal/config"
	"gig-match/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	tokenUserID string
	tokenTTL    time.Duration
)

// tokenCmd mints access tokens for local testing; it needs no database.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed access token for a user id",
	RunE: func(cmd *cobra.Command, _ []string) error {
		uid, err := uuid.Parse(tokenUserID)
		if err != nil {
			return fmt.Errorf("invalid --user-id: %w", err)
		}
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWT.AccessTTL
		}

		tok, err := jwt.NewHMACService(cfg.JWT.AccessSecret, cfg.JWT.Issuer, ttl).GenerateAccessToken(uid)
		if err != nil {
			return fmt.Errorf("sign token (is JWT_ACCESS_SECRET set?): %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "user the token is issued to")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default JWT_ACCESS_TTL)")
	_ = tokenCmd.MarkFlagRequired("user-id")
}
