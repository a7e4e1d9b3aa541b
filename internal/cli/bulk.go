package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/accessor"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newBulkCreateCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-create <table> <file.jsonl|->",
		Short: "Create many rows in one write",
		Long: `Bulk-create reads one JSON row per line. Every row is validated before
anything is written; a single invalid row writes nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runBulk(cmd, args[0], args[1], (*accessor.Accessor).CreateMany)
		},
	}
}

func newBulkUpdateCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-update <table> <file.jsonl|->",
		Short: "Apply many patches in order",
		Long: `Bulk-update reads one JSON patch per line, each carrying the primary key,
and applies them in order. The first failure stops the run; earlier
patches stay applied and later ones are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runBulk(cmd, args[0], args[1], (*accessor.Accessor).UpdateMany)
		},
	}
}

func newBulkDeleteCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-delete <table> <key>...",
		Short: "Delete many rows by primary key in one write",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.registry.Table(args[0])
				if err != nil {
					return err
				}
				keys := make([]any, 0, len(args)-1)
				for _, raw := range args[1:] {
					k, err := parseKey(t.Endpoint(), raw)
					if err != nil {
						return err
					}
					keys = append(keys, k)
				}
				outcomes, err := t.DeleteMany(ctx, keys)
				return s.reportOutcomes(cmd.OutOrStdout(), outcomes, err)
			})
		},
	}
}

type bulkFunc func(a *accessor.Accessor, ctx context.Context, inputs []any) ([]accessor.Outcome, error)

func (s *state) runBulk(cmd *cobra.Command, table, path string, run bulkFunc) error {
	items, err := readLines(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	return s.withApp(cmd, func(ctx context.Context, a *app) error {
		t, err := a.registry.Table(table)
		if err != nil {
			return err
		}
		outcomes, err := run(t, ctx, items)
		return s.reportOutcomes(cmd.OutOrStdout(), outcomes, err)
	})
}

type outcomeView struct {
	Index  int       `json:"index"`
	Status string    `json:"status"`
	Row    types.Row `json:"row,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// reportOutcomes prints per-item outcomes and returns err so the exit code
// reflects a failed batch.
func (s *state) reportOutcomes(w io.Writer, outcomes []accessor.Outcome, err error) error {
	if s.flags.jsonMode {
		views := make([]outcomeView, len(outcomes))
		for i, o := range outcomes {
			views[i] = outcomeView{Index: o.Index, Status: string(o.Status), Row: o.Row}
			if o.Err != nil {
				views[i].Error = o.Err.Error()
			}
		}
		if perr := printJSON(w, views); perr != nil {
			return perr
		}
		return err
	}
	for _, o := range outcomes {
		if o.Status == accessor.StatusFailed {
			fmt.Fprintf(w, "item %d: %v\n", o.Index, o.Err)
		}
	}
	if n := accessor.Requested(outcomes); n > 0 {
		fmt.Fprintf(w, "%d of %d requested\n", n, len(outcomes))
		return err
	}
	fmt.Fprintf(w, "%d of %d written\n", accessor.Written(outcomes), len(outcomes))
	return err
}
