package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/syssam/derive/dialect"
)

// drivers maps relational dialects to the database/sql driver name their
// driver package registers.
var drivers = map[string]string{
	dialect.Postgres:  "postgres",
	dialect.MySQL:     "mysql",
	dialect.SQLite:    "sqlite",
	dialect.SQLServer: "sqlserver",
	dialect.Oracle:    "oracle",
}

// DriverName returns the database/sql driver name of a relational dialect.
func DriverName(name string) (string, error) {
	if d, ok := drivers[name]; ok {
		return d, nil
	}
	return "", fmt.Errorf("dialect/sql: no database driver for dialect %q", name)
}

// Driver runs the statements of one relational dialect over a database/sql
// pool. The driver package of the dialect must be imported by the program.
type Driver struct {
	Conn
	db      *sql.DB
	dialect string
}

// Open opens a pool for the dialect with the given data source name.
func Open(name, dsn string) (*Driver, error) {
	driverName, err := DriverName(name)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", name, err)
	}
	return OpenDB(name, db), nil
}

// OpenDB returns a Driver for an already opened pool.
func OpenDB(name string, db *sql.DB) *Driver {
	return &Driver{Conn: Conn{db}, db: db, dialect: name}
}

// DB returns the underlying pool.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect implements dialect.Driver.
func (d *Driver) Dialect() string { return d.dialect }

// Tx implements dialect.Driver.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with the given options.
func (d *Driver) BeginTx(ctx context.Context, opts *sql.TxOptions) (dialect.Tx, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin: %w", err)
	}
	return &Tx{Conn: Conn{tx}, tx: tx}, nil
}

// Close closes the pool.
func (d *Driver) Close() error { return d.db.Close() }

// Tx is a transaction started by a Driver.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit implements dialect.Tx.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback implements dialect.Tx.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// ExecQuerier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn adapts an ExecQuerier to dialect.ExecQuerier. Arguments are passed
// as []any. Errors reporting a constraint violation are returned as
// *ConstraintError.
type Conn struct {
	ExecQuerier
}

// Exec implements dialect.ExecQuerier. v is nil or a *Result receiving the
// driver result.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, err := arguments(args)
	if err != nil {
		return err
	}
	res, ok := v.(*Result)
	if v != nil && !ok {
		return fmt.Errorf("dialect/sql: exec: unexpected result type %T, want *sql.Result", v)
	}
	r, err := c.ExecContext(ctx, query, argv...)
	if err != nil {
		return execError(err)
	}
	if res != nil {
		*res = r
	}
	return nil
}

// Query implements dialect.ExecQuerier. v must be a *Rows; the caller
// closes it.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	rows, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: query: unexpected result type %T, want *sql.Rows", v)
	}
	argv, err := arguments(args)
	if err != nil {
		return err
	}
	r, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	rows.Rows = r
	return nil
}

func arguments(args any) ([]any, error) {
	switch args := args.(type) {
	case nil:
		return nil, nil
	case []any:
		return args, nil
	default:
		return nil, fmt.Errorf("dialect/sql: unexpected arguments type %T, want []any", args)
	}
}

type (
	// Result is the result of an executed statement.
	Result = sql.Result

	// Rows holds the rows of a query.
	Rows struct{ *sql.Rows }
)

// errNoRows is returned by Close on rows never opened.
var errNoRows = errors.New("dialect/sql: rows not initialized")

// Close closes the rows. It is safe to call on zero Rows.
func (r *Rows) Close() error {
	if r.Rows == nil {
		return errNoRows
	}
	return r.Rows.Close()
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ dialect.Tx     = (*Tx)(nil)
)
