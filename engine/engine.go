// Package engine ties the derivation pipeline together. An Engine owns an
// entity registry, one renderer per configured target, and the caches that
// memoize derived criteria and rendered statements.
//
//	eng, err := engine.New(reg, engine.WithTarget("pg", pgRenderer))
//	if err != nil {
//		return err
//	}
//	p, err := eng.Prepare("pg", engine.Operation{
//		Entity: "Person",
//		Method: "findByNameAndAgeGreaterThan",
//		Params: params,
//	})
//	if err != nil {
//		return err
//	}
//	ex, err := p.Bind(bind.Args("Ann", 30))
//
// Derivation and rendering are pure, so their results are cached for the
// lifetime of the engine and shared by concurrent callers. Binding is
// per invocation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/derive"
	"github.com/syssam/derive/bind"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/finder"
	"github.com/syssam/derive/jdql"
	"github.com/syssam/derive/schema"
)

// Operation describes an operation to derive: a method signature, a
// declarative query or a raw query written for one dialect. Exactly one of
// Method, Query and Raw is set.
type Operation struct {
	Entity string               `yaml:"entity" msgpack:"entity"`
	Method string               `yaml:"method,omitempty" msgpack:"method"`
	Query  string               `yaml:"query,omitempty" msgpack:"query"`
	Raw    string               `yaml:"raw,omitempty" msgpack:"raw"`
	Kind   criteria.Kind        `yaml:"kind,omitempty" msgpack:"kind"`
	Params []criteria.ParamDecl `yaml:"params,omitempty" msgpack:"params"`
}

// String returns a short description of the operation for logs.
func (op Operation) String() string {
	switch {
	case op.Method != "":
		return op.Entity + "." + op.Method
	case op.Query != "":
		return fmt.Sprintf("%s %q", op.Entity, op.Query)
	default:
		return fmt.Sprintf("%s raw %q", op.Entity, op.Raw)
	}
}

func (op Operation) validate() error {
	n := 0
	for _, s := range []string{op.Method, op.Query, op.Raw} {
		if s != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return fmt.Errorf("engine: operation on %q has no method, query or raw text", op.Entity)
	case n > 1:
		return fmt.Errorf("engine: operation on %q sets more than one of method, query and raw text", op.Entity)
	case op.Method != "" && op.Entity == "":
		return fmt.Errorf("engine: method %q has no entity", op.Method)
	case op.Raw != "" && op.Entity == "":
		return errors.New("engine: raw query has no entity")
	}
	return nil
}

// Engine derives, renders and binds operations. It is safe for concurrent
// use.
type Engine struct {
	reg      *schema.Registry
	matcher  *finder.Matcher
	binder   *bind.Binder
	log      *slog.Logger
	targets  map[string]dialect.Renderer
	order    []string
	def      string
	bindOpts []bind.Option
	asts     derive.Cache[*criteria.Query]
	stmts    derive.Cache[*dialect.Statement]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithTarget registers a renderer under a target name. The first
// registered target is the default unless WithDefaultTarget is given.
func WithTarget(name string, r dialect.Renderer) Option {
	return func(e *Engine) {
		if _, ok := e.targets[name]; !ok {
			e.order = append(e.order, name)
		}
		e.targets[name] = r
	}
}

// WithDefaultTarget sets the target used when an empty target name is given.
func WithDefaultTarget(name string) Option {
	return func(e *Engine) {
		e.def = name
	}
}

// WithClock sets the clock used for auto-populated timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.bindOpts = append(e.bindOpts, bind.WithClock(now))
	}
}

// WithIDGenerator sets the generator of surrogate string identifiers.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.bindOpts = append(e.bindOpts, bind.WithIDGenerator(gen))
	}
}

// New returns an engine over the given registry.
func New(reg *schema.Registry, opts ...Option) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("engine: nil registry")
	}
	e := &Engine{
		reg:     reg,
		matcher: finder.New(reg),
		log:     slog.Default(),
		targets: make(map[string]dialect.Renderer),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.order) == 0 {
		return nil, errors.New("engine: no targets configured")
	}
	if e.def == "" {
		e.def = e.order[0]
	}
	if _, ok := e.targets[e.def]; !ok {
		return nil, fmt.Errorf("engine: default target %q is not configured", e.def)
	}
	e.binder = bind.New(e.bindOpts...)
	return e, nil
}

// Registry returns the entity registry.
func (e *Engine) Registry() *schema.Registry {
	return e.reg
}

// Targets returns the configured target names in registration order.
func (e *Engine) Targets() []string {
	return slices.Clone(e.order)
}

// DefaultTarget returns the name of the default target.
func (e *Engine) DefaultTarget() string {
	return e.def
}

// Renderer returns the renderer of a target. An empty name selects the
// default target.
func (e *Engine) Renderer(target string) (dialect.Renderer, error) {
	if target == "" {
		target = e.def
	}
	r, ok := e.targets[target]
	if !ok {
		return nil, fmt.Errorf("engine: unknown target %q", target)
	}
	return r, nil
}

// Derive returns the criteria of a method or declarative query operation.
// Results are cached by operation.
func (e *Engine) Derive(op Operation) (*criteria.Query, error) {
	if err := op.validate(); err != nil {
		return nil, err
	}
	if op.Raw != "" {
		return nil, fmt.Errorf("engine: raw query on %q has no criteria", op.Entity)
	}
	key, err := derive.CacheKey(op)
	if err != nil {
		return nil, err
	}
	q, err := e.asts.Get(key, func() (*criteria.Query, error) {
		e.log.Debug("derive criteria", "operation", op.String())
		if op.Method != "" {
			return e.matcher.Match(finder.Signature{Method: op.Method, Entity: op.Entity, Params: op.Params})
		}
		return jdql.Compile(e.reg, op.Query, jdql.Target{Entity: op.Entity, Kind: op.Kind, Params: op.Params})
	})
	if err != nil {
		e.log.Warn("derive criteria failed", "operation", op.String(), "error", err)
		return nil, err
	}
	return q, nil
}

// Parse compiles a declarative query against an optional root entity.
func (e *Engine) Parse(entity, query string, params ...criteria.ParamDecl) (*criteria.Query, error) {
	return e.Derive(Operation{Entity: entity, Query: query, Params: params})
}

// Render returns the statement of an operation for a target. Results are
// cached by target and operation.
func (e *Engine) Render(target string, op Operation) (*dialect.Statement, error) {
	if target == "" {
		target = e.def
	}
	r, err := e.Renderer(target)
	if err != nil {
		return nil, err
	}
	if err := op.validate(); err != nil {
		return nil, err
	}
	key, err := derive.CacheKey(struct {
		Target string    `msgpack:"target"`
		Op     Operation `msgpack:"op"`
	}{target, op})
	if err != nil {
		return nil, err
	}
	st, err := e.stmts.Get(key, func() (*dialect.Statement, error) {
		e.log.Debug("render statement", "target", target, "dialect", r.Dialect(), "operation", op.String())
		if op.Raw != "" {
			ent, err := e.reg.Entity(op.Entity)
			if err != nil {
				return nil, err
			}
			return r.RenderRaw(dialect.Raw{Text: op.Raw, Kind: op.Kind, Entity: ent, Params: op.Params})
		}
		q, err := e.Derive(op)
		if err != nil {
			return nil, err
		}
		return r.Render(q)
	})
	if err != nil {
		e.log.Warn("render statement failed", "target", target, "operation", op.String(), "error", err)
		return nil, err
	}
	return st, nil
}

// Prepared is a rendered operation ready to bind. It is safe for
// concurrent use.
type Prepared struct {
	Target    string
	Operation Operation
	st        *dialect.Statement
	binder    *bind.Binder
}

// Statement returns the rendered statement.
func (p *Prepared) Statement() *dialect.Statement {
	return p.st
}

// Bind resolves the call-site values of one invocation.
func (p *Prepared) Bind(vals bind.Values) (*bind.Executable, error) {
	return p.binder.Bind(p.st, vals)
}

// BindBatch resolves a batch invocation, one executable per entity of the
// entity-collection argument.
func (p *Prepared) BindBatch(vals bind.Values) ([]*bind.Executable, error) {
	return p.binder.BindBatch(p.st, vals)
}

// Prepare renders an operation for a target.
func (e *Engine) Prepare(target string, op Operation) (*Prepared, error) {
	if target == "" {
		target = e.def
	}
	st, err := e.Render(target, op)
	if err != nil {
		return nil, err
	}
	return &Prepared{Target: target, Operation: op, st: st, binder: e.binder}, nil
}

// PrepareAll prepares operations in parallel. The result is parallel to
// ops. Every failure is reported, joined in operation order.
func (e *Engine) PrepareAll(ctx context.Context, target string, ops []Operation) ([]*Prepared, error) {
	var (
		out  = make([]*Prepared, len(ops))
		errs = make([]error, len(ops))
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, op := range ops {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := e.Prepare(target, op)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", op, err)
				return nil
			}
			out[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats is a snapshot of the engine caches.
type Stats struct {
	Criteria   derive.CacheStats
	Statements derive.CacheStats
}

// Stats returns a snapshot of the engine caches.
func (e *Engine) Stats() Stats {
	return Stats{Criteria: e.asts.Stats(), Statements: e.stmts.Stats()}
}
