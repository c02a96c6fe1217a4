package jdql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/field"
)

// Target describes where a query string is compiled to.
type Target struct {
	// Entity is the root entity when the query has no FROM clause.
	Entity string
	// Kind overrides the kind of select statements, for example to turn a
	// query into an existence check. The zero value keeps the inferred kind.
	Kind criteria.Kind
	// Params are the declared parameters. When empty, parameters are
	// accepted as written.
	Params []criteria.ParamDecl
}

// Compile parses src and lowers it to criteria.
func Compile(reg *schema.Registry, src string, target Target) (*criteria.Query, error) {
	st, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Lower(reg, st, src, target)
}

// Lower converts a parsed statement to criteria, resolving entities and
// properties through the registry. src is the text st was parsed from and
// is used to report errors.
func Lower(reg *schema.Registry, st *Statement, src string, target Target) (*criteria.Query, error) {
	name := target.Entity
	if st.From != nil {
		name = st.From.Entity
	}
	if name == "" {
		return nil, derive.NewQueryParseError(src, 1, 1, firstWord(src), "query does not name an entity")
	}
	e, err := reg.Entity(name)
	if err != nil {
		return nil, err
	}
	l := &lowerer{src: src, entity: e, params: target.Params}
	if st.From != nil {
		l.alias = st.From.Alias
	}
	return l.lower(st, target.Kind)
}

type lowerer struct {
	src    string
	entity *schema.Entity
	alias  string
	params []criteria.ParamDecl
}

func (l *lowerer) fail(pos Pos, token, format string, args ...any) error {
	return derive.NewQueryParseError(l.src, pos.Line, pos.Column, token, fmt.Sprintf(format, args...))
}

func (l *lowerer) lower(st *Statement, override criteria.Kind) (*criteria.Query, error) {
	kind := criteria.KindQuery
	switch {
	case st.Kind == UpdateStmt:
		kind = criteria.KindUpdate
	case st.Kind == DeleteStmt:
		kind = criteria.KindDelete
	case st.Select != nil && st.Select.Count:
		kind = criteria.KindCount
	case override != criteria.KindQuery:
		kind = override
	}
	b := criteria.New(kind, l.entity)
	if sel := st.Select; sel != nil {
		var paths []*schema.Path
		for _, item := range sel.Items {
			if l.isRoot(item) {
				continue
			}
			p, err := l.path(item)
			if err != nil {
				return nil, err
			}
			paths = append(paths, p)
		}
		if sel.Distinct {
			b.Distinct()
		}
		switch {
		case sel.Count:
			b.Count(paths...)
		case len(paths) > 0:
			b.Select(paths...)
		}
	}
	for _, item := range st.Set {
		p, err := l.path(item.Path)
		if err != nil {
			return nil, err
		}
		v, err := l.expr(item.Value)
		if err != nil {
			return nil, err
		}
		b.Set(p, v)
	}
	if st.Where != nil {
		where, err := l.cond(st.Where)
		if err != nil {
			return nil, err
		}
		b.Where(where)
	}
	for _, o := range st.Order {
		p, err := l.path(o.Path)
		if err != nil {
			return nil, err
		}
		b.OrderBy(criteria.Order{Path: p, Desc: o.Desc})
	}
	for i, d := range l.params {
		if d.Role == criteria.RolePartitionKey {
			b.PartitionKey(&criteria.Param{Index: i, Name: d.Name, Type: d.Type})
		}
	}
	return b.Build()
}

// isRoot reports if the path names the root entity itself, as in
// SELECT b FROM Book b.
func (l *lowerer) isRoot(p *Path) bool {
	if len(p.Parts) != 1 {
		return false
	}
	return (l.alias != "" && p.Parts[0] == l.alias) || strings.EqualFold(p.Parts[0], "this")
}

func (l *lowerer) path(p *Path) (*schema.Path, error) {
	parts := p.Parts
	if len(parts) > 1 && ((l.alias != "" && parts[0] == l.alias) || strings.EqualFold(parts[0], "this")) {
		parts = parts[1:]
	}
	return l.entity.ResolveParts(parts...)
}

func (l *lowerer) cond(n Node) (criteria.Predicate, error) {
	switch n := n.(type) {
	case *Logical:
		a, err := l.cond(n.L)
		if err != nil {
			return nil, err
		}
		b, err := l.cond(n.R)
		if err != nil {
			return nil, err
		}
		if n.Or {
			return criteria.Or(a, b), nil
		}
		return criteria.And(a, b), nil
	case *Not:
		x, err := l.cond(n.X)
		if err != nil {
			return nil, err
		}
		return criteria.Not(x), nil
	case *Compare:
		return l.compare(n)
	case *Like:
		x, err := l.expr(n.X)
		if err != nil {
			return nil, err
		}
		pattern, err := l.expr(n.Pattern)
		if err != nil {
			return nil, err
		}
		if t := typeOf(x); t.Valid() && !t.Textual() {
			return nil, l.fail(n.P, "LIKE", "LIKE requires a string operand, got %s", t)
		}
		like := criteria.Matches(x, pattern)
		like.Negated = n.Negated
		return like, nil
	case *In:
		x, err := l.expr(n.X)
		if err != nil {
			return nil, err
		}
		items := make([]criteria.Expr, len(n.Items))
		for i, it := range n.Items {
			if items[i], err = l.expr(it); err != nil {
				return nil, err
			}
		}
		if len(items) == 1 {
			if p, ok := items[0].(*criteria.Param); ok {
				p.Collection = true
				if p.Type == field.TypeStrings {
					p.Type = field.TypeString
				}
			}
		}
		return &criteria.In{L: x, Items: items, Negated: n.Negated}, nil
	case *Between:
		x, err := l.expr(n.X)
		if err != nil {
			return nil, err
		}
		lo, err := l.expr(n.Lo)
		if err != nil {
			return nil, err
		}
		hi, err := l.expr(n.Hi)
		if err != nil {
			return nil, err
		}
		between := criteria.Range(x, lo, hi)
		between.Negated = n.Negated
		return between, nil
	case *IsNull:
		x, err := l.expr(n.X)
		if err != nil {
			return nil, err
		}
		if n.Negated {
			return criteria.NotNull(x), nil
		}
		return criteria.IsNull(x), nil
	}
	return nil, l.fail(n.Pos(), "", "expected condition")
}

var compareOps = map[TokenKind]criteria.Op{
	EQ:  criteria.EQ,
	NEQ: criteria.NEQ,
	GT:  criteria.GT,
	GTE: criteria.GTE,
	LT:  criteria.LT,
	LTE: criteria.LTE,
}

func (l *lowerer) compare(n *Compare) (criteria.Predicate, error) {
	a, err := l.expr(n.L)
	if err != nil {
		return nil, err
	}
	b, err := l.expr(n.R)
	if err != nil {
		return nil, err
	}
	if lit, ok := b.(*criteria.Literal); ok && lit.Value == nil {
		switch n.Op {
		case EQ:
			return criteria.IsNull(a), nil
		case NEQ:
			return criteria.NotNull(a), nil
		default:
			return nil, l.fail(n.P, n.Op.String(), "NULL can only be compared for equality")
		}
	}
	if ta, tb := typeOf(a), typeOf(b); !compatible(ta, tb) {
		return nil, l.fail(n.P, n.Op.String(), "cannot compare %s with %s", ta, tb)
	}
	return &criteria.Comparison{Op: compareOps[n.Op], L: a, R: b}, nil
}

var arithOps = map[TokenKind]criteria.ArithOp{
	Plus:   criteria.Add,
	Minus:  criteria.Sub,
	Star:   criteria.Mul,
	Slash:  criteria.Div,
	Concat: criteria.Concat,
}

func (l *lowerer) expr(n Node) (criteria.Expr, error) {
	switch n := n.(type) {
	case *Path:
		p, err := l.path(n)
		if err != nil {
			return nil, err
		}
		return criteria.P(p), nil
	case *Literal:
		return l.literal(n)
	case *Param:
		return l.param(n)
	case *Binary:
		a, err := l.expr(n.L)
		if err != nil {
			return nil, err
		}
		b, err := l.expr(n.R)
		if err != nil {
			return nil, err
		}
		return &criteria.Arith{Op: arithOps[n.Op], L: a, R: b}, nil
	case *Unary:
		x, err := l.expr(n.X)
		if err != nil {
			return nil, err
		}
		if lit, ok := x.(*criteria.Literal); ok {
			switch v := lit.Value.(type) {
			case int64:
				return criteria.Lit(-v), nil
			case float64:
				return criteria.Lit(-v), nil
			}
		}
		if neg, ok := x.(*criteria.Neg); ok {
			return neg.X, nil
		}
		return &criteria.Neg{X: x}, nil
	case *Call:
		fn, ok := criteria.LookupFn(strings.ToLower(n.Name))
		if !ok {
			return nil, l.fail(n.P, n.Name, "unknown function %s", n.Name)
		}
		if len(n.Args) != fn.Arity() {
			return nil, l.fail(n.P, n.Name, "function %s takes %d arguments, got %d", n.Name, fn.Arity(), len(n.Args))
		}
		args := make([]criteria.Expr, len(n.Args))
		for i, a := range n.Args {
			x, err := l.expr(a)
			if err != nil {
				return nil, err
			}
			args[i] = x
		}
		return &criteria.Func{Fn: fn, Args: args}, nil
	}
	return nil, l.fail(n.Pos(), "", "expected scalar expression")
}

func (l *lowerer) literal(n *Literal) (criteria.Expr, error) {
	switch n.Kind {
	case String:
		return criteria.Lit(n.Value), nil
	case Int:
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return nil, l.fail(n.P, n.Value, "integer out of range")
		}
		return criteria.Lit(v), nil
	case Float:
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, l.fail(n.P, n.Value, "malformed float")
		}
		return criteria.Lit(v), nil
	}
	switch strings.ToUpper(n.Value) {
	case "TRUE":
		return criteria.Lit(true), nil
	case "FALSE":
		return criteria.Lit(false), nil
	default:
		return criteria.Lit(nil), nil
	}
}

func (l *lowerer) param(n *Param) (criteria.Expr, error) {
	if n.Index > 0 {
		i := n.Index - 1
		if len(l.params) == 0 {
			return criteria.Arg(i, "", field.TypeInvalid), nil
		}
		if i >= len(l.params) {
			return nil, l.fail(n.P, "?"+strconv.Itoa(n.Index), "parameter ?%d is not declared", n.Index)
		}
		d := l.params[i]
		return &criteria.Param{Index: i, Name: d.Name, Type: d.Type, Collection: d.Collection}, nil
	}
	for i, d := range l.params {
		if d.Name == n.Name {
			return &criteria.Param{Index: i, Name: d.Name, Type: d.Type, Collection: d.Collection}, nil
		}
	}
	if len(l.params) > 0 {
		return nil, l.fail(n.P, ":"+n.Name, "parameter :%s is not declared", n.Name)
	}
	return criteria.Named(n.Name, field.TypeInvalid), nil
}

// typeOf returns the static type of an expression, or TypeInvalid when it is
// not known before binding.
func typeOf(x criteria.Expr) field.Type {
	switch x := x.(type) {
	case *criteria.Prop:
		return x.Path.Type()
	case *criteria.Param:
		return x.Type
	case *criteria.Literal:
		switch x.Value.(type) {
		case string:
			return field.TypeString
		case int64:
			return field.TypeInt64
		case float64:
			return field.TypeFloat
		case bool:
			return field.TypeBool
		}
	case *criteria.Func:
		switch x.Fn {
		case criteria.FnLength:
			return field.TypeInt
		case criteria.FnLower, criteria.FnUpper, criteria.FnLeft, criteria.FnRight:
			return field.TypeString
		}
	case *criteria.Arith:
		if x.Op == criteria.Concat {
			return field.TypeString
		}
	}
	return field.TypeInvalid
}

// compatible extends field.Type.ComparableWith with string literals
// compared to temporal properties.
func compatible(a, b field.Type) bool {
	if a.Temporal() && b == field.TypeString || b.Temporal() && a == field.TypeString {
		return true
	}
	return a.ComparableWith(b)
}

func firstWord(src string) string {
	if f := strings.Fields(src); len(f) > 0 {
		return f[0]
	}
	return "<EOF>"
}
