// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package main

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sramkeep/sramkeep/internal/auth"
	"github.com/sramkeep/sramkeep/internal/auth/postgres"
	"github.com/sramkeep/sramkeep/internal/config"
	"github.com/sramkeep/sramkeep/internal/logging"
)

// inviteConfig holds configuration for the invite command.
type inviteConfig struct {
	databaseURL string
	issuer      string
	count       int
	timeout     time.Duration
}

// Validate checks the invite configuration.
func (c *inviteConfig) Validate() error {
	if c.count < 1 {
		return oops.Code("CONFIG_INVALID").
			With("field", "count").
			Errorf("count must be at least 1")
	}
	if c.issuer != "" && c.count != 1 {
		return oops.Code("CONFIG_INVALID").
			With("field", "count").
			Errorf("an issuing user gets one code per cooldown window")
	}
	if c.timeout <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("field", "timeout").
			Errorf("timeout must be positive")
	}
	return nil
}

// NewInviteCmd creates the invite subcommand.
func NewInviteCmd() *cobra.Command {
	icfg := &inviteConfig{}

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Mint referral codes",
		Long: `Mint referral codes that admit new members at signup.

Without --issuer the codes are operator-seeded and attributed to nobody.
With --issuer the code is issued on behalf of that user, subject to their
referral cooldown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInvite(cmd, icfg)
		},
	}

	cmd.Flags().StringVar(&icfg.databaseURL, "database-url", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&icfg.issuer, "issuer", "", "handle of the issuing user (empty seeds operator codes)")
	cmd.Flags().IntVar(&icfg.count, "count", 1, "number of operator codes to mint")
	cmd.Flags().DurationVar(&icfg.timeout, "timeout", 30*time.Second, "timeout for the mint operation")

	return cmd
}

func runInvite(cmd *cobra.Command, icfg *inviteConfig) error {
	if err := icfg.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database-url").
			Errorf("database-url is required")
	}
	logging.SetDefault(logging.Options{Format: cfg.LogFormat, Level: cfg.Level()})

	ctx, cancel := context.WithTimeout(cmd.Context(), icfg.timeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	if icfg.issuer == "" {
		return mintOperatorCodes(ctx, cmd, store, icfg.count, cfg.ReferralTTL)
	}
	return mintIssuerCode(ctx, cmd, store, icfg.issuer, cfg)
}

// mintOperatorCodes seeds codes attributed to nobody, bypassing the
// per-user cooldown. This is how the first accounts get in.
func mintOperatorCodes(ctx context.Context, cmd *cobra.Command, store auth.CredentialStore, count int, ttl time.Duration) error {
	for i := 0; i < count; i++ {
		code, err := auth.GenerateReferralCode()
		if err != nil {
			return err
		}
		if err := store.PutReferral(ctx, code, ulid.ULID{}, ttl); err != nil {
			return err
		}
		cmd.Println(code)
	}
	return nil
}

func mintIssuerCode(ctx context.Context, cmd *cobra.Command, store auth.CredentialStore, issuer string, cfg *config.Config) error {
	user, err := store.GetUserByHandle(ctx, issuer)
	if err != nil {
		return oops.Code("INVITE_ISSUER_UNKNOWN").
			With("issuer", issuer).
			Wrap(err)
	}

	referrals, err := auth.NewReferralService(store, cfg.ReferralTTL, cfg.ReferralCooldown)
	if err != nil {
		return err
	}

	code, err := referrals.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	cmd.Println(code)
	return nil
}
