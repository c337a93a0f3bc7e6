package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/password"
	"github.com/spf13/cobra"
)

func newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password hashing helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "hash",
		Short: "Hash a password read from stdin with the default parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			plain := strings.TrimRight(line, "\r\n")
			if plain == "" {
				return errors.New("empty password")
			}

			v, err := password.NewVerifier(pmsGuard.DefaultConfig().Login.Password)
			if err != nil {
				return err
			}
			h, err := v.Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	})
	return cmd
}
