// Package dynamodb renders criteria queries as DynamoDB PartiQL statements
// and runs them through the ExecuteStatement API.
//
//	SELECT * FROM "Person" WHERE "name" = ? AND "age" IN [?, ?]
//
// Attribute names are always double quoted and string literals single
// quoted. Collection parameters are expanded at bind time. PartiQL has no
// aggregates: count and exists statements select the key attributes and the
// adapter counts the returned items. Limits and offsets are applied by the
// adapter while paging.
package dynamodb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/naming"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
)

// Renderer renders criteria queries as PartiQL. It is safe for concurrent
// use.
type Renderer struct {
	naming naming.Strategy
}

var _ dialect.Renderer = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithNaming sets the strategy mapping entity and property names to tables
// and attributes. The default keeps logical names.
func WithNaming(s naming.Strategy) Option {
	return func(r *Renderer) {
		r.naming = s
	}
}

// NewRenderer returns a PartiQL renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{naming: naming.Raw}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dialect implements dialect.Renderer.
func (*Renderer) Dialect() string {
	return dialect.DynamoDB
}

// Render implements dialect.Renderer.
func (r *Renderer) Render(q *criteria.Query) (*dialect.Statement, error) {
	for _, j := range q.Joins {
		if j.Path.Property.Assoc.Kind != edge.Embedded {
			return nil, derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf("dynamodb cannot join %s", j.Path))
		}
	}
	s := &state{Renderer: r, q: q, b: dialect.NewBuilder(dialect.Question)}
	switch q.Kind {
	case criteria.KindQuery, criteria.KindCount, criteria.KindExists:
		s.selectStmt()
	case criteria.KindDelete:
		s.keyed()
		s.b.WriteString("DELETE FROM " + s.table())
		s.where()
	case criteria.KindUpdate:
		s.keyed()
		s.updateStmt()
	case criteria.KindInsert:
		s.insertStmt()
	default:
		s.fail("unsupported operation %s", q.Kind)
	}
	if s.err != nil {
		return nil, s.err
	}
	st := s.b.Statement(dialect.DynamoDB, q.Kind)
	st.Entity = q.Entity
	st.Columns = s.columns
	st.EntityParam = q.EntityParam
	st.Batch = q.Batch
	st.Guarded = q.Identity && q.Entity.Version != nil && q.Kind.Mutation()
	switch l := q.Limit; {
	case q.Kind == criteria.KindExists || q.Selection.Kind == criteria.SelectExists:
		st.Paging = &dialect.Paging{Limit: 1}
	case q.Kind == criteria.KindQuery && q.Selection.Kind != criteria.SelectCount && (l.Max > 0 || l.Offset > 0):
		st.Paging = &dialect.Paging{Limit: l.Max, Offset: l.Offset}
	}
	return st, nil
}

// RenderRaw implements dialect.Renderer.
func (r *Renderer) RenderRaw(raw dialect.Raw) (*dialect.Statement, error) {
	b := dialect.NewBuilder(dialect.Question)
	if err := dialect.WriteRaw(b, raw); err != nil {
		return nil, err
	}
	st := b.Statement(dialect.DynamoDB, raw.Kind)
	st.Entity = raw.Entity
	return st, nil
}

type state struct {
	*Renderer
	q       *criteria.Query
	b       *dialect.Builder
	columns []string
	err     error
}

func (s *state) fail(format string, args ...any) {
	if s.err == nil {
		s.err = derive.NewCriteriaError(s.q.Entity.Name, fmt.Sprintf(format, args...))
	}
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *state) table() string {
	return quote(naming.Table(s.naming, s.q.Entity))
}

// segments returns the attribute names along a path.
func (s *state) segments(p *schema.Path) []string {
	if !criteria.NeedsJoin(p) && !p.Embedded() {
		return []string{naming.Column(s.naming, nil, p.Via[0])}
	}
	if !p.Embedded() {
		s.fail("dynamodb cannot traverse association %s", p)
	}
	segs := make([]string, 0, len(p.Via)+1)
	for _, v := range p.Via {
		segs = append(segs, attr(s.naming, v))
	}
	return append(segs, attr(s.naming, p.Property))
}

func attr(n naming.Strategy, p *schema.Property) string {
	if p.Assoc != nil && p.Assoc.Kind == edge.Embedded {
		if p.StorageKey != "" {
			return p.StorageKey
		}
		return n.MappedName(p.Name)
	}
	return naming.Column(n, nil, p)
}

// attribute returns the quoted document path, for example "address"."city".
func (s *state) attribute(p *schema.Path) string {
	segs := s.segments(p)
	for i, seg := range segs {
		segs[i] = quote(seg)
	}
	return strings.Join(segs, ".")
}

// keys selects the identity attributes of the entity.
func (s *state) keys() {
	e := s.q.Entity
	ids := e.Identity()
	if len(ids) == 0 {
		s.fail("%s has no identity", e.Name)
		return
	}
	for i, p := range ids {
		if i > 0 {
			s.b.WriteString(", ")
		}
		s.b.WriteString(s.attribute(&schema.Path{Root: e, Property: p}))
		s.columns = append(s.columns, p.Name)
	}
}

// keyed fails unless the condition of a mutation selects one item by its
// full key. An equality on the version attribute may guard it.
func (s *state) keyed() {
	e := s.q.Entity
	ids := e.Identity()
	seen := make(map[*schema.Property]bool, len(ids))
	for _, c := range criteria.Conjuncts(s.q.Where) {
		p := keyProperty(c)
		if p != nil && (p.IsID || p == e.Version) {
			seen[p] = true
			continue
		}
		s.fail("dynamodb mutations of %s must match the full key", e.Name)
		return
	}
	for _, p := range ids {
		if !seen[p] {
			s.fail("dynamodb mutations of %s must match the full key", e.Name)
			return
		}
	}
}

// keyProperty returns the root property compared for equality by c.
func keyProperty(c criteria.Predicate) *schema.Property {
	cmp, ok := c.(*criteria.Comparison)
	if !ok || cmp.Op != criteria.EQ || cmp.IgnoreCase {
		return nil
	}
	for _, x := range []criteria.Expr{cmp.L, cmp.R} {
		if p, ok := x.(*criteria.Prop); ok && len(p.Path.Via) == 0 {
			return p.Path.Property
		}
	}
	return nil
}

func (s *state) selectStmt() {
	q := s.q
	b := s.b
	sel := q.Selection
	b.WriteString("SELECT ")
	switch {
	case q.Kind == criteria.KindExists || sel.Kind == criteria.SelectExists:
		s.keys()
	case sel.Kind == criteria.SelectCount && sel.Distinct:
		s.fail("dynamodb cannot count distinct values")
	case sel.Kind == criteria.SelectCount && len(sel.Paths) > 0:
		b.WriteString(s.attribute(sel.Paths[0]))
		s.columns = []string{sel.Paths[0].String()}
	case sel.Kind == criteria.SelectCount:
		s.keys()
	case sel.Kind == criteria.SelectProperties:
		if sel.Distinct {
			s.fail("dynamodb cannot select distinct values")
		}
		for i, p := range sel.Paths {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.attribute(p))
			s.columns = append(s.columns, p.String())
		}
	default:
		if sel.Distinct {
			s.fail("dynamodb cannot select distinct values")
		}
		b.WriteString("*")
	}
	b.WriteString(" FROM " + s.table())
	if sel.Kind == criteria.SelectCount && len(sel.Paths) > 0 {
		// Items without the attribute are not counted.
		b.WriteString(" WHERE " + s.attribute(sel.Paths[0]) + " IS NOT MISSING")
		if q.Where != nil {
			b.WriteString(" AND (")
			s.pred(q.Where)
			b.WriteString(")")
		}
	} else {
		s.where()
	}
	if len(q.Order) > 0 && q.Kind == criteria.KindQuery && sel.Kind != criteria.SelectCount {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			if o.IgnoreCase {
				s.fail("dynamodb cannot order ignoring case")
			}
			b.WriteString(s.attribute(o.Path))
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
}

func (s *state) updateStmt() {
	if len(s.q.Set) == 0 {
		s.fail("update has no assignments")
		return
	}
	s.b.WriteString("UPDATE " + s.table())
	for _, a := range s.q.Set {
		s.b.WriteString(" SET " + s.attribute(a.Path) + " = ")
		s.expr(a.Value)
	}
	s.where()
}

// node is an attribute of an inserted item: a value or a nested map.
type node struct {
	name  string
	value criteria.Expr
	kids  []*node
}

func (n *node) child(name string) *node {
	for _, k := range n.kids {
		if k.name == name {
			return k
		}
	}
	k := &node{name: name}
	n.kids = append(n.kids, k)
	return k
}

func (s *state) insertStmt() {
	if len(s.q.Set) == 0 {
		s.fail("insert has no values")
		return
	}
	root := &node{}
	for _, a := range s.q.Set {
		n := root
		for _, seg := range s.segments(a.Path) {
			n = n.child(seg)
		}
		n.value = a.Value
	}
	s.b.WriteString("INSERT INTO " + s.table() + " VALUE ")
	s.item(root)
}

func (s *state) item(n *node) {
	s.b.WriteString("{")
	for i, k := range n.kids {
		if i > 0 {
			s.b.WriteString(", ")
		}
		s.b.WriteString(literal(k.name) + " : ")
		if len(k.kids) > 0 {
			s.item(k)
			continue
		}
		s.expr(k.value)
	}
	s.b.WriteString("}")
}

func (s *state) where() {
	if s.q.Where == nil {
		return
	}
	s.b.WriteString(" WHERE ")
	s.pred(s.q.Where)
}

var ops = map[criteria.Op]string{
	criteria.EQ:  " = ",
	criteria.NEQ: " <> ",
	criteria.GT:  " > ",
	criteria.GTE: " >= ",
	criteria.LT:  " < ",
	criteria.LTE: " <= ",
}

func (s *state) pred(p criteria.Predicate) {
	b := s.b
	switch p := p.(type) {
	case *criteria.Comparison:
		if p.IgnoreCase {
			s.fail("dynamodb cannot compare ignoring case")
			return
		}
		s.expr(p.L)
		b.WriteString(ops[p.Op])
		s.expr(p.R)
	case *criteria.Junction:
		sep := " AND "
		if p.Or {
			sep = " OR "
		}
		for i, c := range p.Preds {
			if i > 0 {
				b.WriteString(sep)
			}
			if _, ok := c.(*criteria.Junction); ok {
				b.WriteString("(")
				s.pred(c)
				b.WriteString(")")
			} else {
				s.pred(c)
			}
		}
	case *criteria.Negation:
		b.WriteString("NOT (")
		s.pred(p.P)
		b.WriteString(")")
	case *criteria.Like:
		s.like(p)
	case *criteria.In:
		if p.Negated {
			b.WriteString("NOT ")
		}
		s.expr(p.L)
		b.WriteString(" IN [")
		for i, it := range p.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			s.expr(it)
		}
		b.WriteString("]")
	case *criteria.Between:
		if p.Negated {
			b.WriteString("NOT (")
		}
		s.expr(p.L)
		b.WriteString(" BETWEEN ")
		s.expr(p.Lo)
		b.WriteString(" AND ")
		s.expr(p.Hi)
		if p.Negated {
			b.WriteString(")")
		}
	case *criteria.NullCheck:
		b.WriteString("(")
		s.expr(p.L)
		if p.Negated {
			b.WriteString(" IS NOT NULL AND ")
			s.expr(p.L)
			b.WriteString(" IS NOT MISSING)")
			return
		}
		b.WriteString(" IS NULL OR ")
		s.expr(p.L)
		b.WriteString(" IS MISSING)")
	case *criteria.EmptyCheck:
		if p.Negated {
			b.WriteString("NOT ")
		}
		b.WriteString("(")
		s.expr(p.L)
		b.WriteString(" IS MISSING OR ")
		s.expr(p.L)
		b.WriteString(" = '')")
	default:
		s.fail("unsupported predicate %T", p)
	}
}

var likeFuncs = map[criteria.LikeMode]string{
	criteria.LikeContains: "contains",
	criteria.LikeStarts:   "begins_with",
}

func (s *state) like(p *criteria.Like) {
	fn, ok := likeFuncs[p.Mode]
	switch {
	case p.IgnoreCase:
		s.fail("dynamodb cannot match ignoring case")
		return
	case !ok:
		s.fail("dynamodb supports only contains and begins_with matching")
		return
	}
	if p.Negated {
		s.b.WriteString("NOT ")
	}
	s.b.WriteString(fn + "(")
	s.expr(p.L)
	s.b.WriteString(", ")
	s.expr(p.Pattern)
	s.b.WriteString(")")
}

func (s *state) expr(e criteria.Expr) {
	b := s.b
	switch e := e.(type) {
	case *criteria.Prop:
		b.WriteString(s.attribute(e.Path))
	case *criteria.Param:
		b.Arg(e)
	case *criteria.Literal:
		b.WriteString(literal(e.Value))
	case *criteria.Neg:
		// A bare minus before a nested negation or a negative literal
		// would read as a line comment.
		switch e.X.(type) {
		case *criteria.Prop, *criteria.Param:
			b.WriteString("-")
			s.expr(e.X)
		default:
			b.WriteString("-(")
			s.expr(e.X)
			b.WriteString(")")
		}
	case *criteria.Arith:
		if e.Op != criteria.Add && e.Op != criteria.Sub {
			s.fail("dynamodb supports only addition and subtraction, got %s", e.Op)
			return
		}
		s.expr(e.L)
		b.WriteString(" " + e.Op.String() + " ")
		s.expr(e.R)
	case *criteria.Func:
		if e.Fn != criteria.FnLength {
			s.fail("unsupported function %s", e.Fn)
			return
		}
		b.WriteString("size(")
		s.expr(e.Args[0])
		b.WriteString(")")
	default:
		s.fail("unsupported expression %T", e)
	}
}

func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
