package cmd

import (
	"fmt"

	"github.com/illarion/securestore/internal/core"
	"github.com/illarion/securestore/internal/crypto"
	"github.com/spf13/cobra"
)

func exportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <bundle>",
		Short: "Export all secrets to a passphrase-protected bundle",
		Long: `Re-encrypts every stored secret under a passphrase and writes them to a new
bundle file. Use it before changing hostname or user name, or to move secrets
to another machine. The passphrase is read from SECURESTORE_PASSPHRASE or
prompted for.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}

			passphrase, err := GetPassphraseForExport()
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(passphrase)

			result, err := s.Export(cmd.Context(), args[0], passphrase)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "exported: %d secret(s) to %s\n", len(result.Keys), result.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "bundle id: %s\n", result.BundleID)
			return nil
		},
	}
}

func importCmd(a *app) *cobra.Command {
	var strategyName string

	c := &cobra.Command{
		Use:   "import <bundle>",
		Short: "Import secrets from a backup bundle",
		Long: `Decrypts a bundle with its passphrase and stores every secret under this
machine's key. Keys that exist locally with a different value are resolved by
--strategy: keep-local (default), use-backup, or abort.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := core.ParseStrategy(strategyName)
			if err != nil {
				return err
			}

			s, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}

			bundleID, err := core.BundleID(args[0])
			if err != nil {
				return err
			}

			passphrase, err := GetPassphrase(bundleID, "Enter passphrase: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(passphrase)

			result, err := s.Import(cmd.Context(), args[0], passphrase, strategy)
			if result != nil {
				out := cmd.OutOrStdout()
				for _, k := range result.Imported {
					fmt.Fprintf(out, "imported: %s\n", k)
				}
				for _, k := range result.Unchanged {
					fmt.Fprintf(out, "unchanged: %s\n", k)
				}
				for _, k := range result.Skipped {
					fmt.Fprintf(out, "skipped: %s (kept local)\n", k)
				}
				for _, msg := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", msg)
				}
			}
			return err
		},
	}
	c.Flags().StringVar(&strategyName, "strategy", core.StrategyKeepLocal.String(), "conflict strategy: keep-local, use-backup, abort")
	return c
}
