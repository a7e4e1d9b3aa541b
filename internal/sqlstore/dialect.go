package sqlstore

import (
	"database/sql"
	"strconv"

	"github.com/lib/pq"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// dialect hides the differences between SQLite and PostgreSQL.
type dialect interface {
	// placeholder returns the n-th (1-based) bind parameter.
	placeholder(n int) string
	// bindJSON wraps the placeholder of a JSON column.
	bindJSON(p string) string
	columnType(s *types.Shape, primary bool) string
	// readTx returns the options for a consistent read snapshot.
	readTx() *sql.TxOptions
}

// quote quotes an identifier. SQLite accepts the standard double-quoted
// form PostgreSQL uses.
func quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

type sqliteDialect struct{}

func (sqliteDialect) placeholder(int) string   { return "?" }
func (sqliteDialect) bindJSON(p string) string { return p }

func (sqliteDialect) columnType(s *types.Shape, primary bool) string {
	switch s.Type {
	case types.TypeInteger:
		return "INTEGER"
	case types.TypeNumber:
		return "REAL"
	case types.TypeBoolean:
		return "BOOLEAN"
	case types.TypeText:
		return "TEXT"
	}
	return "TEXT"
}

// SQLite transactions are serializable already.
func (sqliteDialect) readTx() *sql.TxOptions { return nil }

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgresDialect) bindJSON(p string) string { return p + "::text::jsonb" }

func (postgresDialect) columnType(s *types.Shape, primary bool) string {
	switch s.Type {
	case types.TypeInteger:
		if primary {
			return "BIGINT GENERATED BY DEFAULT AS IDENTITY"
		}
		return "BIGINT"
	case types.TypeNumber:
		return "DOUBLE PRECISION"
	case types.TypeBoolean:
		return "BOOLEAN"
	case types.TypeText:
		return "TEXT"
	}
	return "JSONB"
}

func (postgresDialect) readTx() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}
