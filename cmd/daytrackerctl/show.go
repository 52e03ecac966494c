package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"daytracker/internal/core"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <date>",
		Short: "Print one day record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := core.ParseDayKey(args[0])
			if err != nil {
				return err
			}

			res, err := opts.openStore(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore(res)

			rec, err := res.Backend.FindByExactKey(cmd.Context(), date)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("no record for %s", date)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}
