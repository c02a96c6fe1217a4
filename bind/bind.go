// Package bind resolves the parameters of rendered statements against
// call-site values.
//
// A rendered statement lists the parameter behind every placeholder slot.
// Binding walks the slots in order and produces the value of each one:
// positional arguments, named arguments, properties of entity-instance
// arguments, and values populated automatically such as generated
// identifiers, timestamps and incremented versions.
//
//	b := bind.New()
//	ex, err := b.Bind(st, bind.Args("Ann", 30))
//	if err != nil {
//		return err
//	}
//	rows, err := db.QueryContext(ctx, ex.Text, ex.Args...)
package bind

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
)

// Values holds the call-site arguments of an operation.
type Values struct {
	Positional []any
	Named      map[string]any
}

// Args returns positional values.
func Args(args ...any) Values {
	return Values{Positional: args}
}

// With returns a copy of v with a named value added.
func (v Values) With(name string, value any) Values {
	named := make(map[string]any, len(v.Named)+1)
	for k, x := range v.Named {
		named[k] = x
	}
	named[name] = value
	return Values{Positional: v.Positional, Named: named}
}

// Binding is the value bound to one placeholder slot.
type Binding struct {
	// Name is the placeholder name, empty for positional dialects.
	Name  string
	Param *criteria.Param
	Value any
}

// Executable is a statement with every parameter resolved.
type Executable struct {
	Statement *dialect.Statement
	// Text is the statement text with collection parameters expanded.
	Text string
	// Args holds the driver arguments in placeholder order. For named
	// dialects it is parallel to Bindings.
	Args     []any
	Bindings []Binding
	// Previous holds the values of entity properties the statement
	// rewrites, such as the version before an optimistic-lock update.
	Previous map[string]any
	// Generated holds values populated at bind time, keyed by property.
	Generated map[string]any
	// PartitionKey is the partition key value, nil for cross-partition
	// statements.
	PartitionKey any
}

// Option configures a Binder.
type Option func(*Binder)

// WithClock sets the time source of timestamps and temporal versions.
func WithClock(now func() time.Time) Option {
	return func(b *Binder) {
		b.now = now
	}
}

// WithIDGenerator sets the generator of string identities. The default
// returns random uuids.
func WithIDGenerator(gen func() string) Option {
	return func(b *Binder) {
		b.newID = gen
	}
}

// Binder binds statements. It is safe for concurrent use.
type Binder struct {
	now   func() time.Time
	newID func() string
}

// New returns a binder.
func New(opts ...Option) *Binder {
	b := &Binder{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind resolves every slot of st. Entity properties are read before any
// value is derived from them, so a version guard binds the version the
// caller holds while the assignment binds its successor.
func (b *Binder) Bind(st *dialect.Statement, vals Values) (*Executable, error) {
	r := &resolver{
		Binder: b,
		vals:   vals,
		now:    b.now(),
		values: make(map[string]any),
		ex: &Executable{
			Statement: st,
			Previous:  make(map[string]any),
			Generated: make(map[string]any),
		},
	}
	for _, p := range st.Params {
		if err := r.read(p); err != nil {
			return nil, err
		}
	}
	var sizes []int
	for i, p := range st.Params {
		v, err := r.resolve(p)
		if err != nil {
			return nil, err
		}
		bd := Binding{Param: p, Value: v}
		if i < len(st.Names) {
			bd.Name = st.Names[i]
		}
		r.ex.Bindings = append(r.ex.Bindings, bd)
		elems, _ := v.([]any)
		sizes = append(sizes, len(elems))
		switch {
		case p.Collection && len(st.Names) == 0 && st.Expandable():
			r.ex.Args = append(r.ex.Args, elems...)
		default:
			r.ex.Args = append(r.ex.Args, v)
		}
	}
	r.ex.Text = st.Text
	if st.Expandable() {
		r.ex.Text = st.Expand(sizes)
	}
	if pk := st.PartitionKey; pk != nil && pk.Slot >= 0 && pk.Slot < len(r.ex.Bindings) {
		r.ex.PartitionKey = r.ex.Bindings[pk.Slot].Value
	}
	return r.ex, nil
}

// BindBatch binds a batch statement once per element of its
// entity-instance argument. Other statements bind once.
func (b *Binder) BindBatch(st *dialect.Statement, vals Values) ([]*Executable, error) {
	if !st.Batch {
		ex, err := b.Bind(st, vals)
		if err != nil {
			return nil, err
		}
		return []*Executable{ex}, nil
	}
	i := st.EntityParam
	if i < 0 || i >= len(vals.Positional) {
		return nil, derive.NewParameterResolutionError(slot(i), fmt.Errorf("missing entity collection"))
	}
	elems, ok := elements(vals.Positional[i])
	if !ok {
		return nil, derive.NewParameterResolutionError(slot(i), fmt.Errorf("%T is not a collection", vals.Positional[i]))
	}
	out := make([]*Executable, 0, len(elems))
	for _, e := range elems {
		args := append([]any(nil), vals.Positional...)
		args[i] = e
		ex, err := b.Bind(st, Values{Positional: args, Named: vals.Named})
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

type resolver struct {
	*Binder
	vals   Values
	now    time.Time
	values map[string]any // Raw values by parameter key.
	ex     *Executable
}

// read loads the raw call-site value of p.
func (r *resolver) read(p *criteria.Param) error {
	key := p.Key()
	if _, ok := r.values[key]; ok || p.Auto == criteria.AutoNow {
		return nil
	}
	var v any
	switch {
	case p.Index >= 0:
		if p.Index >= len(r.vals.Positional) {
			return derive.NewParameterResolutionError(label(p), fmt.Errorf("missing argument %d", p.Index))
		}
		v = r.vals.Positional[p.Index]
	default:
		x, ok := r.vals.Named[p.Name]
		if !ok && p.Auto == criteria.AutoNone {
			return derive.NewParameterResolutionError(label(p), fmt.Errorf("no value for named parameter"))
		}
		v = x
	}
	if p.Property != "" {
		pv, err := Property(v, p.Property)
		switch {
		case err != nil && p.Auto == criteria.AutoNone:
			return derive.NewParameterResolutionError(label(p), err)
		case err != nil:
			// Populated values may be absent from the instance.
			pv = nil
		}
		v = pv
	}
	r.values[key] = v
	return nil
}

// resolve computes the value bound to p.
func (r *resolver) resolve(p *criteria.Param) (any, error) {
	v := r.values[p.Key()]
	switch p.Auto {
	case criteria.AutoNow:
		return r.now, nil
	case criteria.AutoID:
		if zero(v) {
			v = r.newID()
			r.ex.Generated[r.property(p)] = v
		}
	case criteria.AutoInitial:
		if p.Type.Temporal() {
			return r.now, nil
		}
		if zero(v) {
			v = int64(0)
		}
	case criteria.AutoIncrement:
		r.ex.Previous[r.property(p)] = v
		if p.Type.Temporal() {
			return r.now, nil
		}
		if v == nil {
			v = int64(0)
		}
		cur, err := convert(p.Type, v)
		if err != nil {
			return nil, derive.NewParameterResolutionError(label(p), err)
		}
		n, ok := cur.(int64)
		if !ok {
			return nil, derive.NewParameterResolutionError(label(p), fmt.Errorf("version of type %T cannot be incremented", cur))
		}
		return n + 1, nil
	}
	if p.Collection {
		elems, ok := elements(v)
		if !ok {
			return nil, derive.NewParameterResolutionError(label(p), fmt.Errorf("%T is not a collection", v))
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			c, err := r.scalar(p, e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return r.scalar(p, v)
}

// scalar converts a single value, reducing entity instances given for
// to-one associations to the identity of the target.
func (r *resolver) scalar(p *criteria.Param, v any) (any, error) {
	t := p.Type
	if a := target(p); a != nil && v != nil && !scalar(v) {
		id, err := Property(v, a.Target.ID.Name)
		if err != nil {
			return nil, derive.NewParameterResolutionError(label(p), err)
		}
		v, t = id, a.Target.ID.Type
	} else if a != nil {
		t = a.Target.ID.Type
	}
	c, err := convert(t, v)
	if err != nil {
		return nil, derive.NewParameterResolutionError(label(p), err)
	}
	return c, nil
}

// target returns the to-one owning association p is bound to, if its
// target has a single identity.
func target(p *criteria.Param) *schema.Association {
	if p.Target == nil || p.Target.Assoc == nil || p.Target.Assoc.Kind != edge.ToOneOwning {
		return nil
	}
	if p.Target.Assoc.Target.ID == nil {
		return nil
	}
	return p.Target.Assoc
}

func (r *resolver) property(p *criteria.Param) string {
	switch {
	case p.Property != "":
		return p.Property
	case p.Target != nil:
		return p.Target.Name
	default:
		return p.Name
	}
}

func label(p *criteria.Param) string {
	if p.Name != "" {
		return p.Name
	}
	return slot(p.Index)
}

func slot(i int) string {
	return "?" + strconv.Itoa(i)
}
