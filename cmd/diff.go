package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func diffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <bundle>",
		Short: "Compare stored keys with a backup bundle",
		Long:  "Lists keys only stored locally (-) and keys only in the bundle (+). No passphrase is needed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}

			out, err := s.DiffKeys(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no differences")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
