package cmd

import (
	"fmt"

	"github.com/illarion/securestore/internal/core"
	"github.com/spf13/cobra"
)

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key> [key...]",
		Aliases: []string{"remove"},
		Short:   "Remove stored secrets",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			for _, key := range args {
				removed, err := s.Remove(cmd.Context(), key)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "removed: %s\n", key)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "not found: %s\n", key)
				}
			}
			return nil
		},
	}
}

func clearCmd(a *app) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			if !force {
				ok, err := core.Confirm(a.in, cmd.ErrOrStderr(), "Remove all stored secrets?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			if err := s.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}
	c.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return c
}
