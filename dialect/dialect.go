package dialect

import (
	"context"
	"database/sql/driver"

	"github.com/syssam/derive/criteria"
)

// Dialect names.
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
	Cosmos    = "cosmos"
	DynamoDB  = "dynamodb"
)

// Relational reports if the dialect is rendered as SQL over columns.
func Relational(name string) bool {
	switch name {
	case Postgres, MySQL, SQLite, SQLServer, Oracle:
		return true
	default:
		return false
	}
}

// Renderer turns criteria into dialect-specific statements. Rendering is
// deterministic: the same query always yields the same statement.
type Renderer interface {
	// Dialect returns the dialect name.
	Dialect() string
	// Render renders a criteria query.
	Render(q *criteria.Query) (*Statement, error)
	// RenderRaw renumbers the parameters of a pre-rendered query.
	RenderRaw(r Raw) (*Statement, error)
}

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for executing
// rendered statements.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}
