package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newGetCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <key>",
		Short: "Get one row by primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.registry.Table(args[0])
				if err != nil {
					return err
				}
				key, err := parseKey(t.Endpoint(), args[1])
				if err != nil {
					return err
				}
				row, err := t.Get(ctx, key)
				if err != nil {
					return err
				}
				return s.printRow(cmd, t.Endpoint(), row)
			})
		},
	}
}

type listFlags struct {
	filters  []string
	sort     string
	page     int
	pageSize int
	fields   []string
}

func newListCmd(s *state) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List one page of rows",
		Long: `List returns one page of rows matching every filter, plus the total number
of matching rows.

Filters are field=value for equality or field:op=value with op one of
eq, neq, gt, gte, lt, lte, like, in (comma-separated values) and range
(lo..hi, either bound may be empty). Sort by a field, prefixed with "-"
for descending order.

Example:
  pantry list todos --filter done=false --filter priority:gte=3 --sort -priority
  pantry list todos --page 2 --page-size 20 --select id,name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.directives()
			if err != nil {
				return err
			}
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.registry.Table(args[0])
				if err != nil {
					return err
				}
				resp, err := t.List(ctx, d)
				if err != nil {
					return err
				}
				w := s.out(cmd)
				if s.flags.jsonMode {
					return printJSON(w, resp)
				}
				if err := printRows(w, t.Endpoint().Returns, resp.Data); err != nil {
					return err
				}
				p := resp.Pagination
				_, err = fmt.Fprintf(w, "page %d of %d (%d rows)\n", p.Page, p.TotalPages, p.Total)
				return err
			})
		},
	}
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "filter as field=value or field:op=value (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort field, \"-field\" for descending")
	cmd.Flags().IntVar(&f.page, "page", query.DefaultPage, "page number, from 1")
	cmd.Flags().IntVar(&f.pageSize, "page-size", query.DefaultPageSize, "rows per page")
	cmd.Flags().StringSliceVar(&f.fields, "select", nil, "columns to return")
	return cmd
}

func (f listFlags) directives() (query.Directives, error) {
	d := query.Directives{}.Paginate(f.page, f.pageSize)
	for _, raw := range f.filters {
		flt, err := query.ParseFilter(raw)
		if err != nil {
			return d, err
		}
		d = d.Where(flt.Field, flt.Predicate)
	}
	if f.sort != "" {
		srt, err := query.ParseSort(f.sort)
		if err != nil {
			return d, err
		}
		d = d.OrderBy(srt.Field, srt.Direction)
	}
	if len(f.fields) > 0 {
		d = d.Fields(f.fields...)
	}
	return d, nil
}

func newCreateCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "create <table> <row-json|->",
		Short: "Create a row",
		Example: `  pantry create todos '{"name": "buy milk", "description": "2%", "priority": 2}'
  echo '{"name": "a", "description": "b"}' | pantry create todos -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.registry.Table(args[0])
				if err != nil {
					return err
				}
				in, err := s.objectArg(cmd, args[1])
				if err != nil {
					return err
				}
				row, err := t.Create(ctx, in)
				if err != nil {
					return err
				}
				return s.printRow(cmd, t.Endpoint(), row)
			})
		},
	}
}

func newUpdateCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "update <table> <patch-json|->",
		Short: "Update a row; the patch must carry the primary key",
		Example: `  pantry update todos '{"id": "0190...", "done": true}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.registry.Table(args[0])
				if err != nil {
					return err
				}
				in, err := s.objectArg(cmd, args[1])
				if err != nil {
					return err
				}
				row, err := t.Update(ctx, in)
				if err != nil {
					return err
				}
				return s.printRow(cmd, t.Endpoint(), row)
			})
		},
	}
}

func newDeleteCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <key>",
		Short: "Delete one row by primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.registry.Table(args[0])
				if err != nil {
					return err
				}
				key, err := parseKey(t.Endpoint(), args[1])
				if err != nil {
					return err
				}
				if err := t.Delete(ctx, key); err != nil {
					return err
				}
				if s.flags.jsonMode {
					return printJSON(s.out(cmd), map[string]any{"deleted": key})
				}
				_, err = fmt.Fprintf(s.out(cmd), "deleted %v\n", key)
				return err
			})
		},
	}
}

func (s *state) objectArg(cmd *cobra.Command, arg string) (map[string]any, error) {
	data, err := readInput(cmd.InOrStdin(), arg)
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

func (s *state) printRow(cmd *cobra.Command, e types.Endpoint, row types.Row) error {
	if s.flags.jsonMode {
		return printJSON(s.out(cmd), row)
	}
	return printRows(s.out(cmd), e.Returns, []types.Row{row})
}
