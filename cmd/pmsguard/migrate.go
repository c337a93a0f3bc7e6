package main

import (
	"fmt"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/store/sqlstore"
	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := pmsGuard.LoadConfig(root.configPath)
			if err != nil {
				return err
			}
			d, err := sqlstore.ParseDialect(cfg.Store.Driver)
			if err != nil {
				return err
			}
			s, err := sqlstore.Open(cmd.Context(), d, cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Migrate(cmd.Context()); err != nil {
				return err
			}
			v, err := sqlstore.MigrationVersion(s.DB(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (%s)\n", v, d)
			return nil
		},
	}
}
