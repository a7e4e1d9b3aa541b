package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

func newCallCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "call <procedure> [args-json|-]",
		Short: "Call a procedure",
		Long: `Call validates the JSON arguments against the procedure's argument shape,
runs it and validates the result against its return shape.

Example:
  pantry call todo_stats '{"min_priority": 3}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withApp(cmd, func(ctx context.Context, a *app) error {
				proc, err := a.registry.Procedure(args[0])
				if err != nil {
					return err
				}
				var in any = map[string]any{}
				if len(args) == 2 {
					data, err := readInput(cmd.InOrStdin(), args[1])
					if err != nil {
						return err
					}
					if err := json.Unmarshal(data, &in); err != nil {
						return usagef("invalid JSON arguments: %v", err)
					}
				}
				result, err := proc.Call(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(s.out(cmd), result)
			})
		},
	}
}
