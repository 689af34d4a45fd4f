package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sluicedb/sluice/internal/service"
)

func newTokenCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an operator JWT",
		Long: `Issue a signed operator token for the system API. The signing secret
and expiry come from the auth section of sluice.yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(args[0], email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Operator email claim")

	return cmd
}

func runToken(subject, email string) error {
	cfg, _, err := loadGatewayConfig()
	if err != nil {
		return err
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = viper.GetString("auth.jwt_secret")
	}
	if secret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured; refusing to sign with a default")
	}

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	authSvc := service.NewAuthService(store, secret)
	token, err := authSvc.IssueJWT(context.Background(), subject, email, cfg.JWTExpiryDuration())
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Println(token)
	return nil
}
