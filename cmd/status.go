package cmd

import (
	"fmt"
	"time"

	"github.com/illarion/securestore/internal/git"
	"github.com/spf13/cobra"
)

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage status",
		Long:  "Shows the storage directory, stored records and git integration warnings. Nothing is decrypted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}

			status, err := s.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "App name:    %s\n", status.AppName)
			fmt.Fprintf(out, "Storage:     %s\n", status.StorageDir)
			fmt.Fprintf(out, "Algorithm:   %s (record v%d)\n", status.Algorithm, status.RecordVersion)
			fmt.Fprintf(out, "Records:     %d (%d bytes)\n", status.RecordCount, status.TotalSize)
			if !status.LastModified.IsZero() {
				fmt.Fprintf(out, "Last change: %s\n", status.LastModified.Format(time.RFC3339))
			}

			if len(status.Records) > 0 {
				fmt.Fprintln(out, "\nStored keys:")
				for _, rec := range status.Records {
					fmt.Fprintf(out, "  %s (%s)\n", rec.Key, rec.ModTime.Format(time.RFC3339))
				}
			}

			if status.GitStatus != nil {
				fmt.Fprint(out, git.FormatGitStatus(status.GitStatus))
			}
			return nil
		},
	}
}
