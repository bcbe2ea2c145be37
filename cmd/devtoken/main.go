// Command devtoken prints a signed bearer token for a user id, for calling a
// local API without the external identity provider.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/auth"
	"github.com/homelink/marketplace/internal/config"
	"github.com/spf13/cobra"
)

type options struct {
	UserID string
	TTL    time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "devtoken",
		Short:        "Print a bearer token for a local marketplace API",
		Long:         "Signs a token with JWT_SECRET and JWT_ISSUER from the environment (or .env).",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "user id (uuid); a random one is used when empty")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	userID := uuid.New()
	if opts.UserID != "" {
		id, err := uuid.Parse(opts.UserID)
		if err != nil {
			return fmt.Errorf("invalid --user %q: %w", opts.UserID, err)
		}
		userID = id
	}

	cfg := config.Load()
	token, err := auth.GenerateJWT(cfg.JWTSecret, cfg.JWTIssuer, userID, opts.TTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "user_id=%s ttl=%s\n", userID, opts.TTL)
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
