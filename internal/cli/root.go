// Package cli implements the pantry command-line interface.
// See docs/ARCHITECTURE.md § CLI.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/pkg/accessor"
	"github.com/mesh-intelligence/pantry/pkg/catalog"
	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values for one command tree.
type rootFlags struct {
	configDir   string
	dataDir     string
	catalog     string
	logLevel    string
	metricsFile string
	jsonMode    bool
}

// state is shared by the commands of one root.
type state struct {
	flags rootFlags
}

// NewRootCmd creates the top-level "pantry" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	s := &state{}
	root := &cobra.Command{
		Use:   "pantry",
		Short: "Typed access to tables and procedures declared in a catalog",
		Long: `Pantry validates every read and write against the shapes declared in an
endpoint catalog before it reaches the backend, and validates procedure
results on the way back.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&s.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&s.flags.dataDir, "data-dir", "", "SQLite data directory (default: $(CWD)/.pantry-db)")
	pf.StringVar(&s.flags.catalog, "catalog", "", "endpoint catalog (default: <config-dir>/catalog.yaml)")
	pf.StringVar(&s.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&s.flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.BoolVar(&s.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(s),
		newEndpointsCmd(s),
		newCallCmd(s),
		newGetCmd(s),
		newListCmd(s),
		newCreateCmd(s),
		newUpdateCmd(s),
		newDeleteCmd(s),
		newBulkCreateCmd(s),
		newBulkUpdateCmd(s),
		newBulkDeleteCmd(s),
		newExportCmd(s),
		newImportCmd(s),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pantry:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode classifies err: caller mistakes exit 1, everything else 2.
func exitCode(err error) int {
	var (
		argErr   *types.ArgumentValidationError
		notFound *types.NotFoundError
		useErr   usageError
	)
	switch {
	case errors.As(err, &argErr),
		errors.As(err, &notFound),
		errors.As(err, &useErr),
		errors.Is(err, accessor.ErrEndpointNotFound),
		errors.Is(err, accessor.ErrWrongKind),
		errors.Is(err, query.ErrInvalidPage),
		errors.Is(err, query.ErrInvalidPredicate),
		errors.Is(err, query.ErrInvalidSort),
		errors.Is(err, catalog.ErrInvalidCatalog),
		errors.Is(err, catalog.ErrUnsupportedVersion):
		return exitUserError
	}
	return exitSysError
}

// usageError marks bad command-line input.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func (s *state) resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(s.flags.configDir)
}

func (s *state) out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
