package cmd

import (
	"fmt"

	"github.com/illarion/securestore/internal/core"
	"github.com/illarion/securestore/internal/crypto"
	"github.com/illarion/securestore/internal/keyring"
	"github.com/spf13/cobra"
)

func keyringCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "keyring",
		Short: "Manage bundle passphrases in the OS keyring",
	}
	c.AddCommand(keyringSaveCmd(), keyringDeleteCmd(), keyringStatusCmd())
	return c
}

// keyringSaveCmd saves the bundle passphrase to the OS keyring
func keyringSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <bundle>",
		Short: "Save the bundle passphrase to the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundleID, err := core.BundleID(args[0])
			if err != nil {
				return err
			}

			// Never read back from the keyring here: the point is to replace it
			passphrase := core.GetPasswordFromEnv()
			if passphrase == nil {
				passphrase, err = core.ReadPassword("Enter passphrase: ")
				if err != nil {
					return err
				}
			}
			defer crypto.ClearBytes(passphrase)

			if _, err := core.VerifyPassphrase(args[0], passphrase); err != nil {
				return err
			}

			if err := keyring.SavePassphrase(bundleID, string(passphrase)); err != nil {
				return fmt.Errorf("failed to save to keyring: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Passphrase saved to keyring")
			return nil
		},
	}
}

// keyringDeleteCmd removes the bundle passphrase from the OS keyring
func keyringDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <bundle>",
		Short: "Remove the bundle passphrase from the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundleID, err := core.BundleID(args[0])
			if err != nil {
				return err
			}

			if err := keyring.DeletePassphrase(bundleID); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No passphrase stored in keyring")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Passphrase removed from keyring")
			return nil
		},
	}
}

// keyringStatusCmd checks if a bundle passphrase is stored in the keyring
func keyringStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <bundle>",
		Short: "Show whether the bundle passphrase is in the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundleID, err := core.BundleID(args[0])
			if err != nil {
				return err
			}

			if keyring.HasPassphrase(bundleID) {
				fmt.Fprintln(cmd.OutOrStdout(), "Passphrase: stored in keyring")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Passphrase: not stored")
			}
			return nil
		},
	}
}
