package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"daytracker/internal/aggregate"
	"daytracker/internal/export"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		scope  string
		params aggregate.Params
		format string
	)

	cmd := &cobra.Command{
		Use:       "export <daily|time|spend|comments>",
		Short:     "Write an export table to stdout",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"daily", "time", "spend", "comments"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := export.ParseKind(args[0])
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			tag := scope
			if tag == "" {
				tag = string(aggregate.DefaultScope(kind.DefaultScope(), params))
			}
			p, err := aggregate.ResolveScope(tag, params)
			if err != nil {
				return err
			}

			res, err := opts.openStore(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore(res)

			table, err := export.Build(cmd.Context(), aggregate.NewEngine(res.Backend), kind, p)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), table, f)
		},
	}

	cmd.Flags().StringVar(&scope, "type", "", "scope: daily, monthly, yearly, lifetime or range")
	cmd.Flags().StringVar(&params.Date, "date", "", "day for the daily scope (YYYY-MM-DD)")
	cmd.Flags().StringVar(&params.Year, "year", "", "year for monthly and yearly scopes")
	cmd.Flags().StringVar(&params.Month, "month", "", "month for the monthly scope")
	cmd.Flags().StringVar(&params.From, "from", "", "first date of a range, inclusive")
	cmd.Flags().StringVar(&params.To, "to", "", "last date of a range, inclusive")
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or json")
	return cmd
}
