package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/illarion/securestore/internal/core"
	"github.com/spf13/cobra"
)

func storeBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "store-batch [file]",
		Short: "Store several secrets from JSON",
		Long: `Reads a JSON object {"key": "value", ...} or an array of [key, value]
pairs from file, or from standard input when no file is given. Nothing is
stored if any key or value is invalid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.in
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			items, err := parseBatch(r)
			if err != nil {
				return err
			}

			s, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.StoreBatch(cmd.Context(), items); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored: %d secret(s)\n", len(items))
			return nil
		},
	}
}

// parseBatch accepts a JSON object (stored in key order) or an array of
// two-element string arrays (stored in array order)
func parseBatch(r io.Reader) ([]core.Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty batch input")
	}

	switch data[0] {
	case '{':
		var obj map[string]string
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("invalid batch object: %w", err)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		items := make([]core.Item, 0, len(keys))
		for _, k := range keys {
			items = append(items, core.Item{Key: k, Value: obj[k]})
		}
		return items, nil

	case '[':
		var pairs [][]string
		if err := json.Unmarshal(data, &pairs); err != nil {
			return nil, fmt.Errorf("invalid batch array: %w", err)
		}
		items := make([]core.Item, 0, len(pairs))
		for i, pair := range pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("batch entry %d: want [key, value], got %d element(s)", i, len(pair))
			}
			items = append(items, core.Item{Key: pair[0], Value: pair[1]})
		}
		return items, nil
	}

	return nil, fmt.Errorf("batch must be a JSON object or array")
}

func getBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get-batch <key> [key...]",
		Short: "Print several secrets as a JSON object",
		Long:  "Prints {\"key\": \"value\", ...} with null for keys that are not stored.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			values, err := s.RetrieveBatch(cmd.Context(), args)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(values)
		},
	}
}
