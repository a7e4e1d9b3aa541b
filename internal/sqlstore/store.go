// Package sqlstore implements the backend transport on SQL databases.
//
// SQLite (modernc.org/sqlite) serves local data directories and PostgreSQL
// (pgx) serves shared deployments. Tables are created from the row shapes
// of registered endpoints; procedures are Go handlers, catalog SQL bodies
// or, on PostgreSQL, server functions.
// See docs/ARCHITECTURE.md § SQL Store.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DatabaseFile is the SQLite file created inside the data directory.
const DatabaseFile = "pantry.db"

// Store errors.
var (
	ErrNotAttached      = errors.New("store is not attached")
	ErrAlreadyAttached  = errors.New("store is already attached")
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrUnknownProcedure = errors.New("unknown procedure")
	ErrNotInt64         = errors.New("value is not representable as int64")
)

// Store is a SQL backend transport. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	dialect  dialect
	tables   map[string]*table
	procs    map[string]Handler
	sqlProcs map[string]sqlProcedure
	logger   *zap.Logger
}

// New returns a detached store. Call Attach before use.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		tables:   make(map[string]*table),
		procs:    make(map[string]Handler),
		sqlProcs: make(map[string]sqlProcedure),
		logger:   logger,
	}
}

// Attach opens the database described by config. SQLite databases live in
// DataDir, which is created if needed.
func (s *Store) Attach(ctx context.Context, config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	var (
		db  *sql.DB
		err error
	)
	switch config.Backend {
	case types.BackendSQLite:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err = sql.Open("sqlite", filepath.Join(dataDir, DatabaseFile))
		if err == nil {
			// SQLite serializes writers; one connection avoids SQLITE_BUSY.
			db.SetMaxOpenConns(1)
		}
		s.dialect = sqliteDialect{}
	case types.BackendPostgres:
		db, err = sql.Open("pgx", config.DSN)
		s.dialect = postgresDialect{}
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", config.Backend, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping %s: %w", config.Backend, err)
	}

	s.db = db
	s.config = config
	s.attached = true
	s.logger.Info("store attached", zap.String("backend", config.Backend))
	return nil
}

// Close releases the database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.attached = false
	s.tables = make(map[string]*table)
	return err
}

// Register prepares the store for the given endpoints. Tables are created
// when missing; procedures with a SQL body become callable.
func (s *Store) Register(ctx context.Context, endpoints ...types.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return ErrNotAttached
	}
	for _, e := range endpoints {
		switch {
		case e.IsTable():
			t, err := newTable(e.Complete())
			if err != nil {
				return err
			}
			if _, err := s.db.ExecContext(ctx, t.createDDL(s.dialect)); err != nil {
				return fmt.Errorf("create table %s: %w", e.Name, err)
			}
			s.tables[e.Name] = t
		case e.IsProcedure() && e.SQL != "":
			s.sqlProcs[e.Name] = sqlProcedure{sql: e.SQL, returns: e.Returns}
		}
	}
	return nil
}

// DB returns the underlying handle, or nil when detached.
func (s *Store) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Backend names the attached backend.
func (s *Store) Backend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Backend
}

// lookup returns the registered table. The caller must hold s.mu.
func (s *Store) lookup(name string) (*table, error) {
	if !s.attached {
		return nil, ErrNotAttached
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// newKey generates a UUID v7 primary key.
func newKey() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
