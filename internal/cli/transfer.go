package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "export <table> <file.jsonl>",
		Short: "Write every row of a table to a JSONL file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				if _, err := a.registry.Table(args[0]); err != nil {
					return err
				}
				n, err := a.store.Export(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return s.reportCount(cmd, "exported", n)
			})
		},
	}
}

func newImportCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "import <table> <file.jsonl>",
		Short: "Upsert rows from a JSONL file",
		Long: `Import overwrites rows whose primary key already exists and inserts the
rest. Rows are written as-is, without shape validation; malformed lines
are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.registry.Table(args[0])
				if err != nil {
					return err
				}
				n, err := a.store.Import(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				e := t.Endpoint()
				a.coordinator.Invalidate(ctx, e.Scope())
				return s.reportCount(cmd, "imported", n)
			})
		},
	}
}

func (s *state) reportCount(cmd *cobra.Command, verb string, n int) error {
	if s.flags.jsonMode {
		return printJSON(s.out(cmd), map[string]int{verb: n})
	}
	_, err := fmt.Fprintf(s.out(cmd), "%s %d rows\n", verb, n)
	return err
}
