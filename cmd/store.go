package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

func storeCmd(a *app) *cobra.Command {
	var fromStdin bool

	c := &cobra.Command{
		Use:   "store <key> [value]",
		Short: "Encrypt and store a secret",
		Long:  "Encrypts value under the machine key and stores it as <key>. Without a value, or with --stdin, the value is read from standard input.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromStdin && len(args) == 2 {
				return fmt.Errorf("--stdin cannot be combined with a value argument")
			}

			value, err := readValue(args, 1, a.in)
			if err != nil {
				return err
			}

			s, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Store(cmd.Context(), args[0], value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored: %s\n", args[0])
			return nil
		},
	}
	c.Flags().BoolVar(&fromStdin, "stdin", false, "read the value from standard input")
	return c
}

func getCmd(a *app) *cobra.Command {
	var copyValue bool

	c := &cobra.Command{
		Use:   "get <key>",
		Short: "Decrypt and print a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			value, err := s.Retrieve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if value == nil {
				return fmt.Errorf("%w: %s", errKeyNotFound, args[0])
			}

			if copyValue {
				if clipboard.Unsupported {
					return fmt.Errorf("clipboard not available on this system")
				}
				if err := clipboard.WriteAll(*value); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "copied: %s\n", args[0])
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), *value)
			return nil
		},
	}
	c.Flags().BoolVarP(&copyValue, "copy", "c", false, "copy the value to the clipboard instead of printing it")
	return c
}

func existsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <key>",
		Short: "Report whether a secret is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			exists, err := s.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), exists)
			return nil
		},
	}
}
