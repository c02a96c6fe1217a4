// Package cli implements the derive command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/engine"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/field"
	"github.com/syssam/derive/schema/load"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Verbose bool

	cfg *engine.Config
	log *slog.Logger
}

// NewRootCommand creates the root command of the derive CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive queries from method signatures and declarative queries",
		Long: `derive turns repository method names and declarative queries into
store-specific statements for relational, document and key-value databases.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "engine configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))

	return cmd
}

// setup loads the configuration and installs the logger.
func (o *RootOptions) setup(w io.Writer) error {
	cfg, err := engine.LoadConfig(o.Config)
	if err != nil {
		return err
	}
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	if o.Verbose {
		lvl = slog.LevelDebug
	}
	o.cfg = cfg
	o.log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	return nil
}

// logger returns the configured logger, or a discarding one when the
// command runs without the root pre-run.
func (o *RootOptions) logger() *slog.Logger {
	if o.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.log
}

// TargetOptions selects the rendering target of a command. Either a
// dialect is given on the command line or a target of the configuration
// is used.
type TargetOptions struct {
	Dialect string
	Naming  string
	Target  string
}

func (t *TargetOptions) flags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.Dialect, "dialect", "d", "", "target dialect (postgres, mysql, sqlite, sqlserver, oracle, cosmos, dynamodb)")
	cmd.Flags().StringVar(&t.Naming, "naming", "", "naming strategy (snake, upper, camel, kebab, raw)")
	cmd.Flags().StringVarP(&t.Target, "target", "t", "", "configured target name")
}

// engine builds an engine over reg with the selected target and returns
// the target name.
func (t *TargetOptions) engine(root *RootOptions, reg *schema.Registry) (*engine.Engine, string, error) {
	opts := []engine.Option{engine.WithLogger(root.logger())}
	cfg := root.cfg
	if cfg == nil {
		cfg = &engine.Config{}
	}
	name := t.Target
	switch {
	case t.Dialect != "":
		r, err := engine.NewRenderer(t.Dialect, t.Naming, cfg.AlwaysQuote)
		if err != nil {
			return nil, "", err
		}
		name = strings.ToLower(t.Dialect)
		opts = append(opts, engine.WithTarget(name, r))
	case len(cfg.Targets) > 0:
		copts, err := cfg.Options()
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, copts...)
	default:
		return nil, "", fmt.Errorf("no dialect given and no targets configured")
	}
	eng, err := engine.New(reg, opts...)
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		name = eng.DefaultTarget()
	}
	return eng, name, nil
}

// OperationOptions describes the operation of a command.
type OperationOptions struct {
	Schema string
	Entity string
	Method string
	Query  string
	Raw    string
	Kind   string
	Params []string
}

func (o *OperationOptions) flags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Schema, "schema", "s", "", "entity schema file (YAML)")
	cmd.Flags().StringVarP(&o.Entity, "entity", "e", "", "root entity")
	cmd.Flags().StringVarP(&o.Method, "method", "m", "", "method name, for example findByNameAndAgeGreaterThan")
	cmd.Flags().StringVarP(&o.Query, "query", "q", "", "declarative query")
	cmd.Flags().StringVar(&o.Raw, "raw", "", "raw query written for the target dialect")
	cmd.Flags().StringVar(&o.Kind, "kind", "", "operation kind of a raw or declarative query (query, count, exists, delete, update, insert)")
	cmd.Flags().StringArrayVarP(&o.Params, "param", "p", nil, "declared parameter name:type[:role], type prefixed with [] for collections")
	_ = cmd.MarkFlagRequired("schema")
}

// operation loads the schema and returns the described operation.
func (o *OperationOptions) operation() (*schema.Registry, engine.Operation, error) {
	reg, err := load.Registry(o.Schema)
	if err != nil {
		return nil, engine.Operation{}, err
	}
	op := engine.Operation{Entity: o.Entity, Method: o.Method, Query: o.Query, Raw: o.Raw}
	if o.Kind != "" {
		if op.Kind, err = criteria.ParseKind(o.Kind); err != nil {
			return nil, engine.Operation{}, err
		}
	}
	for _, s := range o.Params {
		d, err := ParseParam(s)
		if err != nil {
			return nil, engine.Operation{}, err
		}
		op.Params = append(op.Params, d)
	}
	return reg, op, nil
}

// ParseParam parses a parameter declaration of the form name:type[:role].
// A type prefixed with [] declares a collection.
func ParseParam(s string) (criteria.ParamDecl, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 || parts[0] == "" {
		return criteria.ParamDecl{}, fmt.Errorf("invalid parameter %q: want name:type[:role]", s)
	}
	d := criteria.ParamDecl{Name: parts[0]}
	if len(parts) > 1 {
		typ := parts[1]
		if rest, ok := strings.CutPrefix(typ, "[]"); ok && rest != "string" {
			d.Collection = true
			typ = rest
		}
		t, err := field.ParseType(typ)
		if err != nil {
			return criteria.ParamDecl{}, fmt.Errorf("invalid parameter %q: %w", s, err)
		}
		d.Type = t
	}
	if len(parts) > 2 {
		if err := d.Role.UnmarshalText([]byte(parts[2])); err != nil {
			return criteria.ParamDecl{}, fmt.Errorf("invalid parameter %q: %w", s, err)
		}
	}
	return d, nil
}
