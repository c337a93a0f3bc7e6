package main

import (
	"errors"
	"fmt"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/spf13/cobra"
)

func newTOTPCmd() *cobra.Command {
	var issuer string
	tool := func() pmsGuard.TOTP {
		cfg := pmsGuard.DefaultConfig().TOTP
		if issuer != "" {
			cfg.Issuer = issuer
		}
		return pmsGuard.NewTOTP(cfg)
	}

	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Second-factor helpers",
	}
	cmd.PersistentFlags().StringVar(&issuer, "issuer", "", "issuer shown in authenticator apps")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "secret",
			Short: "Print a new base32 secret",
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := tool().GenerateSecret()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			},
		},
		&cobra.Command{
			Use:   "uri <account> <secret>",
			Short: "Print the otpauth:// provisioning URI",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), tool().URI(args[0], args[1]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "code <secret>",
			Short: "Print the current code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				code, err := tool().Code(args[0], time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			},
		},
		&cobra.Command{
			Use:   "verify <secret> <code>",
			Short: "Check a code against a secret",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !tool().Verify(args[0], args[1], time.Now()) {
					return errors.New("code rejected")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			},
		},
	)
	return cmd
}
