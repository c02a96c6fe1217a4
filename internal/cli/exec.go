package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/derive/bind"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/dialect/sql"

	// Database drivers of the relational dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	TargetOptions
	OperationOptions
	DSN   string
	Args  []string
	Named []string
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Render, bind and run an operation against a database",
		Long: `Exec renders an operation for a relational dialect, binds the given
arguments and runs the statement. Queries print one JSON object per row,
counts and existence checks print the result and mutations print the
number of affected rows.`,
		Example: `  derive exec -s library.yaml -d sqlite --dsn app.db -e Author -m findByName -p name:string --arg Ann`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runExec(ctx, opts, cmd.OutOrStdout())
		},
	}

	opts.TargetOptions.flags(cmd)
	opts.OperationOptions.flags(cmd)
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.Flags().StringArrayVarP(&opts.Args, "arg", "a", nil, "positional argument, repeatable")
	cmd.Flags().StringArrayVar(&opts.Named, "named", nil, "named argument name=value, repeatable")
	_ = cmd.MarkFlagRequired("dsn")

	return cmd
}

func runExec(ctx context.Context, opts *ExecOptions, w io.Writer) error {
	reg, op, err := opts.operation()
	if err != nil {
		return err
	}
	eng, target, err := opts.engine(opts.RootOptions, reg)
	if err != nil {
		return err
	}
	r, err := eng.Renderer(target)
	if err != nil {
		return err
	}
	if !dialect.Relational(r.Dialect()) {
		return fmt.Errorf("exec supports relational dialects only, got %q", r.Dialect())
	}
	p, err := eng.Prepare(target, op)
	if err != nil {
		return err
	}
	vals, err := opts.values()
	if err != nil {
		return err
	}
	ex, err := p.Bind(vals)
	if err != nil {
		return err
	}
	drv, err := sql.Open(r.Dialect(), opts.DSN)
	if err != nil {
		return err
	}
	defer drv.Close()
	log := opts.logger()
	sd := sql.NewStatsDriver(drv, sql.WithLogger(log))
	defer func() {
		log.Debug("exec stats", "stats", sd.Stats().Snapshot().String())
	}()
	log.Debug("exec", "text", ex.Text, "args", len(ex.Args))

	switch st := p.Statement(); {
	case st.Kind.Mutation():
		n, err := sql.Exec(ctx, sd, ex)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d row(s) affected\n", n)
	case st.Kind == criteria.KindCount:
		n, err := sql.Count(ctx, sd, ex)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, n)
	case st.Kind == criteria.KindExists:
		ok, err := sql.Exists(ctx, sd, ex)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, ok)
	default:
		rows, err := sql.Query(ctx, sd, ex)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		log.Info("query done", "rows", len(rows))
	}
	return nil
}

// values returns the call-site arguments. Arguments are passed as text and
// converted to the declared parameter types by the binder.
func (o *ExecOptions) values() (bind.Values, error) {
	args := make([]any, len(o.Args))
	for i, a := range o.Args {
		args[i] = a
	}
	vals := bind.Args(args...)
	for _, kv := range o.Named {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return bind.Values{}, fmt.Errorf("invalid named argument %q: want name=value", kv)
		}
		vals = vals.With(k, v)
	}
	return vals, nil
}
