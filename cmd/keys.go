package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/sport-scheduler/internal/config"
	"github.com/example/sport-scheduler/internal/crypto"
	"github.com/example/sport-scheduler/internal/sportrick"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the sealed site credentials",
	}
	cmd.AddCommand(newKeysGenerateCmd())
	cmd.AddCommand(newKeysSealCmd())
	return cmd
}

func newKeysGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate a CREDENTIALS_KEY value (hex)",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateKeyHex()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "export CREDENTIALS_KEY=%s\n", key)
			return nil
		},
	}
}

func newKeysSealCmd() *cobra.Command {
	var (
		username   string
		password   string
		otpauthURL string
	)
	c := &cobra.Command{
		Use:   "seal",
		Short: "Encrypt site credentials into the credentials file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.CredentialsKey == "" {
				return fmt.Errorf("CREDENTIALS_KEY is not set (run: sportsched keys generate)")
			}

			creds := sportrick.Credentials{
				Username:   username,
				Password:   password,
				OTPAuthURL: otpauthURL,
			}
			if err := sportrick.SaveCredentials(cfg.CredentialsFile, cfg.CredentialsKey, creds); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "credentials sealed into %s\n", cfg.CredentialsFile)
			return nil
		},
	}
	c.Flags().StringVar(&username, "username", "", "site username")
	c.Flags().StringVar(&password, "password", "", "site password")
	c.Flags().StringVar(&otpauthURL, "otpauth-url", "", "otpauth://totp/... URL with the 2FA secret")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("password")
	_ = c.MarkFlagRequired("otpauth-url")
	return c
}
