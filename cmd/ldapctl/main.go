// Command ldapctl is a one-shot administrative CLI for the directory
// server: bootstrapping a fresh Postgres database, printing the effective
// configuration, and sanity-checking the live network-policy set ldapd
// reads fresh on every Bind (there is no policy cache to reload).
package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/MultifactorLab/MultiDirectory/internal/config"
	"github.com/MultifactorLab/MultiDirectory/internal/store/postgres"
)

func main() {
	root := &cobra.Command{
		Use:   "ldapctl",
		Short: "Administrative CLI for the MultiDirectory LDAP server",
	}
	root.AddCommand(bootstrapCmd(), configCmd(), reloadCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Apply the idempotent schema DDL to POSTGRES_URI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			conn, err := sqlx.ConnectContext(cmd.Context(), "postgres", cfg.PostgresURI)
			if err != nil {
				return fmt.Errorf("ldapctl: connect postgres: %w", err)
			}
			defer conn.Close()

			if _, err := conn.ExecContext(cmd.Context(), postgres.Schema); err != nil {
				return fmt.Errorf("ldapctl: apply schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "listen:       %s (tls=%v)\n", cfg.Addr(), cfg.UseCoreTLS)
			fmt.Fprintf(out, "http:         %s\n", cfg.HTTPAddr())
			fmt.Fprintf(out, "postgres_uri: %s\n", redact(cfg.PostgresURI))
			fmt.Fprintf(out, "mfa_api_uri:  %s\n", cfg.MFAAPIURI)
			fmt.Fprintf(out, "vendor:       %s %s\n", cfg.VendorName, cfg.VendorVersion)
			return nil
		},
	}
}

func reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Sanity-check connectivity and print the live network-policy count",
		Long: "ldapd re-reads NetworkPolicies from the store on every Bind, so there " +
			"is no in-process cache to flush. This command exists to let an operator " +
			"confirm the store a prospective policy edit would take effect against.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			conn, err := sqlx.ConnectContext(cmd.Context(), "postgres", cfg.PostgresURI)
			if err != nil {
				return fmt.Errorf("ldapctl: connect postgres: %w", err)
			}
			defer conn.Close()

			store := postgres.Open(conn)
			policies, err := store.NetworkPolicies(cmd.Context())
			if err != nil {
				return fmt.Errorf("ldapctl: load network policies: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d enabled network policies\n", len(policies))
			return nil
		},
	}
}

func redact(uri string) string {
	if uri == "" {
		return ""
	}
	return "********"
}
