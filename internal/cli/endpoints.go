package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newEndpointsCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints declared in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				endpoints := a.registry.Endpoints()
				w := s.out(cmd)
				if s.flags.jsonMode {
					return printJSON(w, endpoints)
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tKIND\tDESCRIPTION")
				for _, e := range endpoints {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Kind, e.Description)
				}
				return tw.Flush()
			})
		},
	}
}

// withApp opens the app for the duration of fn.
func (s *state) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()
	return fn(ctx, a)
}
