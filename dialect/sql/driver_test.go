package sql

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive/dialect"
)

func mockDriver(t *testing.T, name string) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(name, db), mock
}

func TestOpenDB(t *testing.T) {
	for _, name := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.SQLServer, dialect.Oracle} {
		t.Run(name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(name, db)
			assert.Equal(t, name, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestDriverName(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
		err     bool
	}{
		{dialect: dialect.SQLite, want: "sqlite"},
		{dialect: dialect.Postgres, want: "postgres"},
		{dialect: dialect.MySQL, want: "mysql"},
		{dialect: dialect.Cosmos, err: true},
		{dialect: dialect.DynamoDB, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			name, err := DriverName(tt.dialect)
			if tt.err {
				assert.ErrorContains(t, err, "no database driver")
				_, err = Open(tt.dialect, "")
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestConnQuery(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)

	t.Run("rows", func(t *testing.T) {
		mock.ExpectQuery("SELECT name FROM person WHERE id = \\$1").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ann"))
		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT name FROM person WHERE id = $1", []any{1}, rows))
		require.True(t, rows.Next())
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, "Ann", name)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil_args", func(t *testing.T) {
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}))
		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), "SELECT 1", nil, rows))
		require.NoError(t, rows.Close())
	})

	t.Run("driver_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("database error"))
		err := drv.Query(context.Background(), "SELECT", []any{}, &Rows{})
		require.EqualError(t, err, "dialect/sql: query: database error")
	})

	t.Run("invalid_types", func(t *testing.T) {
		assert.ErrorContains(t, drv.Query(context.Background(), "SELECT 1", []any{}, nil), "unexpected result type")
		assert.ErrorContains(t, drv.Query(context.Background(), "SELECT 1", "args", &Rows{}), "unexpected arguments type string")
	})

	t.Run("zero_rows", func(t *testing.T) {
		assert.ErrorIs(t, (&Rows{}).Close(), errNoRows)
	})
}

func TestConnExec(t *testing.T) {
	drv, mock := mockDriver(t, dialect.MySQL)
	ctx := context.Background()

	mock.ExpectExec("UPDATE person SET name = \\? WHERE id = \\?").
		WithArgs("Ann", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	var res Result
	require.NoError(t, drv.Exec(ctx, "UPDATE person SET name = ? WHERE id = ?", []any{"Ann", 1}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, drv.Exec(ctx, "DELETE FROM person", nil, nil))

	mock.ExpectExec("DELETE").WillReturnError(errors.New("lock wait timeout"))
	err = drv.Exec(ctx, "DELETE FROM person", []any{}, nil)
	require.EqualError(t, err, "dialect/sql: exec: lock wait timeout")
	assert.False(t, IsConstraintError(err))

	assert.ErrorContains(t, drv.Exec(ctx, "DELETE FROM person", []any{}, new(int)), "unexpected result type *int")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTx(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO person").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Exec(ctx, "INSERT INTO person (name) VALUES ($1)", []any{"Ann"}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback_on_violation", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO person").WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()
		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		err = tx.Exec(ctx, "INSERT INTO person (id, name) VALUES ($1, $2)", []any{1, "Ann"}, nil)
		assert.True(t, IsUniqueConstraintError(err))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_error", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
		_, err := drv.Tx(ctx)
		require.EqualError(t, err, "dialect/sql: begin: too many connections")
	})
}

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(time.Hour),
		WithLogger(slog.New(slog.DiscardHandler)),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("DELETE FROM person").WillReturnError(errors.New("locked"))
	mock.ExpectExec("INSERT INTO person").WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM person").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.Error(t, drv.Exec(ctx, "DELETE FROM person", []any{}, nil))
	err = drv.Exec(ctx, "INSERT INTO person (team_id) VALUES ($1)", []any{7}, nil)
	assert.True(t, IsForeignKeyConstraintError(err))
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, "DELETE FROM person", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.Stats().Snapshot()
	assert.Equal(t, StatsSnapshot{Queries: 1, Execs: 3, Errors: 2, Violations: 1, Elapsed: s.Elapsed}, s)
	assert.Contains(t, s.String(), "queries=1 execs=3 errors=2 violations=1 slow=0")

	drv = NewStatsDriver(OpenDB(dialect.Postgres, db), WithSlowThreshold(-1), WithLogger(slog.New(slog.DiscardHandler)))
	mock.ExpectExec("DELETE FROM person").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(ctx, "DELETE FROM person", []any{}, nil))
	assert.Equal(t, int64(1), drv.Stats().Snapshot().Slow)
	assert.Zero(t, StatsSnapshot{}.Mean())
}
