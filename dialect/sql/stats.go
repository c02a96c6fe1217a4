package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/derive/dialect"
)

// Stats counts the statements run through a StatsDriver and its
// transactions.
type Stats struct {
	queries    atomic.Int64
	execs      atomic.Int64
	errs       atomic.Int64
	violations atomic.Int64
	slow       atomic.Int64
	elapsed    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Queries int64
	Execs   int64
	Errors  int64
	// Violations counts the errors that were constraint violations.
	Violations int64
	Slow       int64
	Elapsed    time.Duration
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:    s.queries.Load(),
		Execs:      s.execs.Load(),
		Errors:     s.errs.Load(),
		Violations: s.violations.Load(),
		Slow:       s.slow.Load(),
		Elapsed:    time.Duration(s.elapsed.Load()),
	}
}

// Mean returns the mean statement duration.
func (s StatsSnapshot) Mean() time.Duration {
	if n := s.Queries + s.Execs; n > 0 {
		return s.Elapsed / time.Duration(n)
	}
	return 0
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d errors=%d violations=%d slow=%d elapsed=%s mean=%s",
		s.Queries, s.Execs, s.Errors, s.Violations, s.Slow, s.Elapsed, s.Mean())
}

// StatsDriver decorates a driver with statement statistics. Statements are
// logged at debug level, slow ones at warn level.
type StatsDriver struct {
	dialect.Driver
	stats *Stats
	slow  time.Duration
	log   *slog.Logger
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.slow = d }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) { s.log = l }
}

// NewStatsDriver wraps drv.
//
//	drv, _ := sql.Open(dialect.Postgres, dsn)
//	sd := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond))
//	n, err := sql.Exec(ctx, sd, ex)
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver: drv,
		stats:  &Stats{},
		slow:   100 * time.Millisecond,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the live counters.
func (d *StatsDriver) Stats() *Stats { return d.stats }

// Query implements dialect.ExecQuerier.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.stats.queries, query, args, func() error {
		return d.Driver.Query(ctx, query, args, v)
	})
}

// Exec implements dialect.ExecQuerier.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.stats.execs, query, args, func() error {
		return d.Driver.Exec(ctx, query, args, v)
	})
}

// Tx implements dialect.Driver. Statements of the transaction are counted
// by the driver.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, d: d}, nil
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	elapsed := time.Since(start)

	counter.Add(1)
	d.stats.elapsed.Add(int64(elapsed))
	if err != nil {
		d.stats.errs.Add(1)
		if IsConstraintError(err) {
			d.stats.violations.Add(1)
		}
	}
	if elapsed > d.slow {
		d.stats.slow.Add(1)
		d.log.WarnContext(ctx, "slow statement", "elapsed", elapsed, "text", query, "args", args, "error", err)
		return err
	}
	d.log.DebugContext(ctx, "statement", "elapsed", elapsed, "text", query, "error", err)
	return err
}

type statsTx struct {
	dialect.Tx
	d *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.d.observe(ctx, &tx.d.stats.queries, query, args, func() error {
		return tx.Tx.Query(ctx, query, args, v)
	})
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.d.observe(ctx, &tx.d.stats.execs, query, args, func() error {
		return tx.Tx.Exec(ctx, query, args, v)
	})
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
)
