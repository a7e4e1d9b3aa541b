package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/mesh-intelligence/pantry/internal/sqlstore"
	"github.com/mesh-intelligence/pantry/pkg/catalog"
)

func newInitCmd(s *state) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration, a starter catalog and the database",
		Long: `Init writes config.yaml and a starter catalog when they are missing, then
creates the tables the catalog declares. Existing files are left alone, so
init is safe to run again after editing the catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runInit(cmd)
		},
	}
}

func (s *state) runInit(cmd *cobra.Command) error {
	st, err := s.settings()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(st.catalogPath), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	created, err := writeIfMissing(st.catalogPath, catalog.Starter)
	if err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	cat, err := catalog.Load(st.catalogPath, st.logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store := sqlstore.New(st.logger)
	if err := store.Attach(ctx, st.cfg.Store(st.dataDir)); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	err = store.Register(ctx, cat.Endpoints...)
	if err = multierr.Append(err, store.Close()); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}

	w := s.out(cmd)
	if s.flags.jsonMode {
		return printJSON(w, map[string]any{
			"config_dir":      st.configDir,
			"catalog":         st.catalogPath,
			"catalog_created": created,
			"data_dir":        st.dataDir,
			"backend":         st.cfg.Backend,
			"endpoints":       len(cat.Endpoints),
		})
	}
	if created {
		fmt.Fprintf(w, "wrote starter catalog %s\n", st.catalogPath)
	}
	fmt.Fprintf(w, "pantry initialized: %d endpoints, %s backend\n", len(cat.Endpoints), st.cfg.Backend)
	return nil
}
