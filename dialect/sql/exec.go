package sql

import (
	"context"
	"fmt"

	"github.com/syssam/derive"
	"github.com/syssam/derive/bind"
	"github.com/syssam/derive/dialect"
)

// ErrStale is returned when a mutation guarded by identity and version
// matches no row.
var ErrStale = derive.ErrStale

// Exec runs a bound insert, update or delete and returns the number of
// affected rows.
func Exec(ctx context.Context, drv dialect.ExecQuerier, ex *bind.Executable) (int64, error) {
	var res Result
	if err := drv.Exec(ctx, ex.Text, ex.Args, &res); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dialect/sql: rows affected: %w", err)
	}
	if n == 0 && ex.Statement.Guarded {
		return 0, ErrStale
	}
	return n, nil
}

// Query runs a bound query and returns its rows keyed by column. Columns
// are named by property path when the statement records them.
func Query(ctx context.Context, drv dialect.ExecQuerier, ex *bind.Executable) ([]map[string]any, error) {
	var rows Rows
	if err := drv.Query(ctx, ex.Text, ex.Args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: columns: %w", err)
	}
	if cols := ex.Statement.Columns; len(cols) == len(names) {
		names = cols
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scan: %w", err)
		}
		row := make(map[string]any, len(names))
		for i, n := range names {
			if b, ok := vals[i].([]byte); ok {
				row[n] = string(b)
				continue
			}
			row[n] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Count runs a bound count query.
func Count(ctx context.Context, drv dialect.ExecQuerier, ex *bind.Executable) (int64, error) {
	var rows Rows
	if err := drv.Query(ctx, ex.Text, ex.Args, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("dialect/sql: scan: %w", err)
		}
	}
	return n, rows.Err()
}

// Exists runs a bound existence query.
func Exists(ctx context.Context, drv dialect.ExecQuerier, ex *bind.Executable) (bool, error) {
	var rows Rows
	if err := drv.Query(ctx, ex.Text, ex.Args, &rows); err != nil {
		return false, err
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}
