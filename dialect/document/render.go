// Package document renders criteria queries for document stores that speak
// a SQL dialect over JSON documents, such as Azure Cosmos DB.
//
// Queries address documents through the alias c and bind values through
// named @ parameters:
//
//	SELECT * FROM c WHERE c.category = @category AND c.price > @price
//
// Document stores do not update or delete through the query language. For
// mutations the rendered text selects the affected documents, and the
// statement carries the patch operations (or a whole-document replace) the
// driver applies to each of them. Limits are applied by the driver.
package document

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

// Renderer renders criteria queries as document SQL. It is safe for
// concurrent use.
type Renderer struct {
	naming naming.Strategy
	alias  string
}

var _ dialect.Renderer = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithNaming sets the strategy mapping property names to document
// attributes. The default keeps logical names.
func WithNaming(s naming.Strategy) Option {
	return func(r *Renderer) {
		r.naming = s
	}
}

// NewRenderer returns a document renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{naming: naming.Raw, alias: "c"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dialect implements dialect.Renderer.
func (*Renderer) Dialect() string {
	return dialect.Cosmos
}

// Render implements dialect.Renderer.
func (r *Renderer) Render(q *criteria.Query) (*dialect.Statement, error) {
	for _, j := range q.Joins {
		if j.Path.Property.Assoc.Kind != edge.Embedded {
			return nil, derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf("document stores cannot join %s", j.Path))
		}
	}
	s := &state{Renderer: r, q: q, b: dialect.NewNamedBuilder("@")}
	switch q.Kind {
	case criteria.KindQuery, criteria.KindCount, criteria.KindExists:
		s.selectStmt()
	case criteria.KindDelete:
		s.targets()
	case criteria.KindUpdate:
		s.targets()
		s.patch()
	case criteria.KindInsert:
		s.patch()
	default:
		s.fail("unsupported operation %s", q.Kind)
	}
	pk := s.partitionKey()
	if s.err != nil {
		return nil, s.err
	}
	st := s.b.Statement(dialect.Cosmos, q.Kind)
	st.Entity = q.Entity
	st.Columns = s.columns
	st.Patch = s.ops
	st.Replace = q.WholeDocument && q.Kind.Mutation()
	st.EntityParam = q.EntityParam
	st.Batch = q.Batch
	st.Guarded = q.Identity && q.Entity.Version != nil && q.Kind.Mutation()
	st.PartitionKey = pk
	if l := q.Limit; (l.Max > 0 || l.Offset > 0) && q.Kind == criteria.KindQuery {
		st.Paging = &dialect.Paging{Limit: l.Max, Offset: l.Offset}
	}
	return st, nil
}

// RenderRaw implements dialect.Renderer. Raw mutations are rejected:
// documents are only modified through patch or replace operations.
func (r *Renderer) RenderRaw(raw dialect.Raw) (*dialect.Statement, error) {
	if raw.Kind.Mutation() {
		return nil, derive.NewUnsupportedRawMutationError(dialect.Cosmos, raw.Kind.String())
	}
	b := dialect.NewNamedBuilder("@")
	if err := dialect.WriteRaw(b, raw); err != nil {
		return nil, err
	}
	st := b.Statement(dialect.Cosmos, raw.Kind)
	st.Entity = raw.Entity
	st.PartitionKey = &dialect.PartitionKey{Path: pkPath(r.naming, raw.Entity), Slot: -1}
	return st, nil
}

type state struct {
	*Renderer
	q       *criteria.Query
	b       *dialect.Builder
	columns []string
	ops     []dialect.PatchOp
	err     error
}

func (s *state) fail(format string, args ...any) {
	if s.err == nil {
		s.err = derive.NewCriteriaError(s.q.Entity.Name, fmt.Sprintf(format, args...))
	}
}

// segments returns the document attribute names along a path.
func (s *state) segments(p *schema.Path) []string {
	if !criteria.NeedsJoin(p) && !p.Embedded() {
		// Identity of a referenced document: the stored reference.
		return []string{naming.Column(s.naming, nil, p.Via[0])}
	}
	if !p.Embedded() {
		s.fail("document stores cannot traverse association %s", p)
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

// selector returns the query selector of a path, for example c.address.city.
func (s *state) selector(p *schema.Path) string {
	var sb strings.Builder
	sb.WriteString(s.alias)
	for _, seg := range s.segments(p) {
		if ident(seg) {
			sb.WriteString("." + seg)
		} else {
			sb.WriteString("[" + strconv.Quote(seg) + "]")
		}
	}
	return sb.String()
}

// pointer returns the JSON pointer of a path, for example /address/city.
func (s *state) pointer(p *schema.Path) string {
	segs := s.segments(p)
	for i, seg := range segs {
		segs[i] = strings.NewReplacer("~", "~0", "/", "~1").Replace(seg)
	}
	return "/" + strings.Join(segs, "/")
}

func ident(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z'):
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}

func (s *state) selectStmt() {
	q := s.q
	b := s.b
	sel := q.Selection
	b.WriteString("SELECT ")
	switch {
	case q.Kind == criteria.KindExists || sel.Kind == criteria.SelectExists:
		b.WriteString("VALUE COUNT(1)")
		s.columns = []string{"count"}
	case sel.Kind == criteria.SelectCount && len(sel.Paths) > 0 && sel.Distinct:
		b.WriteString("VALUE COUNT(1) FROM (SELECT DISTINCT VALUE " + s.selector(sel.Paths[0]) + " FROM " + s.alias)
		s.where()
		b.WriteString(")")
		s.columns = []string{"count"}
		return
	case sel.Kind == criteria.SelectCount && len(sel.Paths) > 0:
		b.WriteString("VALUE COUNT(" + s.selector(sel.Paths[0]) + ")")
		s.columns = []string{"count"}
	case sel.Kind == criteria.SelectCount:
		b.WriteString("VALUE COUNT(1)")
		s.columns = []string{"count"}
	case sel.Kind == criteria.SelectProperties:
		if sel.Distinct {
			b.WriteString("DISTINCT ")
		}
		for i, p := range sel.Paths {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.selector(p))
			s.columns = append(s.columns, p.String())
		}
	default:
		if sel.Distinct {
			b.WriteString("DISTINCT ")
		}
		b.WriteString("*")
	}
	b.WriteString(" FROM " + s.alias)
	s.where()
	if len(q.Order) > 0 && sel.Kind != criteria.SelectCount && q.Kind == criteria.KindQuery {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.selector(o.Path))
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
}

// targets selects the identity and partition key of the documents a
// mutation applies to.
func (s *state) targets() {
	e := s.q.Entity
	var paths []*schema.Path
	for _, p := range e.Identity() {
		paths = append(paths, &schema.Path{Root: e, Property: p})
	}
	if pk := e.PartitionKey; pk != nil && !pk.IsID {
		paths = append(paths, &schema.Path{Root: e, Property: pk})
	}
	if len(paths) == 0 {
		paths = append(paths, nil)
	}
	s.b.WriteString("SELECT ")
	for i, p := range paths {
		if i > 0 {
			s.b.WriteString(", ")
		}
		if p == nil {
			s.b.WriteString(s.alias + ".id")
			s.columns = append(s.columns, "id")
			continue
		}
		s.b.WriteString(s.selector(p))
		s.columns = append(s.columns, p.String())
	}
	s.b.WriteString(" FROM " + s.alias)
	s.where()
}

// patch records one set operation per assignment.
func (s *state) patch() {
	for _, a := range s.q.Set {
		p, ok := a.Value.(*criteria.Param)
		if !ok {
			s.fail("document stores cannot assign computed value %s", a.Value)
			return
		}
		s.ops = append(s.ops, dialect.PatchOp{Op: "set", Path: s.pointer(a.Path), Slot: s.b.Slot(p)})
	}
}

// partitionKey locates the partition key of the statement: an explicit
// partition key argument, or the partition key property of the entity
// instance argument.
func (s *state) partitionKey() *dialect.PartitionKey {
	e := s.q.Entity
	pk := &dialect.PartitionKey{Path: pkPath(s.naming, e), Slot: -1}
	switch {
	case s.q.PartitionKey != nil:
		pk.Slot = s.b.Slot(s.q.PartitionKey)
	case s.q.EntityParam >= 0:
		prop := e.PartitionKey
		if prop == nil {
			prop = e.ID
		}
		if prop == nil {
			break
		}
		for _, p := range s.q.Params {
			if p.Index == s.q.EntityParam && p.Property == prop.Name && p.Auto == criteria.AutoNone {
				pk.Slot = s.b.Slot(p)
				return pk
			}
		}
		pk.Slot = s.b.Slot(&criteria.Param{
			Index:    s.q.EntityParam,
			Name:     "pk",
			Type:     prop.Type,
			Property: prop.Name,
			Target:   prop,
		})
	}
	return pk
}

// pkPath returns the partition key path of an entity. Entities without a
// partition key property are partitioned by identity.
func pkPath(n naming.Strategy, e *schema.Entity) string {
	if e != nil && e.PartitionKey != nil {
		return "/" + naming.Column(n, nil, e.PartitionKey)
	}
	return "/id"
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
	criteria.NEQ: " != ",
	criteria.GT:  " > ",
	criteria.GTE: " >= ",
	criteria.LT:  " < ",
	criteria.LTE: " <= ",
}

func (s *state) pred(p criteria.Predicate) {
	b := s.b
	switch p := p.(type) {
	case *criteria.Comparison:
		if p.IgnoreCase && (p.Op == criteria.EQ || p.Op == criteria.NEQ) {
			if p.Op == criteria.NEQ {
				b.WriteString("NOT ")
			}
			b.WriteString("STRINGEQUALS(")
			s.expr(p.L)
			b.WriteString(", ")
			s.expr(p.R)
			b.WriteString(", true)")
			return
		}
		s.fold(p.L, p.IgnoreCase)
		b.WriteString(ops[p.Op])
		s.fold(p.R, p.IgnoreCase)
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
		if len(p.Items) == 1 {
			if prm, ok := p.Items[0].(*criteria.Param); ok && prm.Collection {
				if p.Negated {
					b.WriteString("NOT ")
				}
				b.WriteString("ARRAY_CONTAINS(")
				b.Arg(prm)
				b.WriteString(", ")
				s.expr(p.L)
				b.WriteString(")")
				return
			}
		}
		s.expr(p.L)
		if p.Negated {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN (")
		for i, it := range p.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			s.expr(it)
		}
		b.WriteString(")")
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
		if p.Negated {
			b.WriteString("NOT ")
		}
		b.WriteString("IS_NULL(")
		s.expr(p.L)
		b.WriteString(")")
	case *criteria.EmptyCheck:
		if p.Negated {
			b.WriteString("NOT ")
		}
		b.WriteString("(NOT IS_DEFINED(")
		s.expr(p.L)
		b.WriteString(") OR IS_NULL(")
		s.expr(p.L)
		b.WriteString(") OR ")
		s.expr(p.L)
		b.WriteString(` = "")`)
	default:
		s.fail("unsupported predicate %T", p)
	}
}

func (s *state) fold(e criteria.Expr, ignoreCase bool) {
	if !ignoreCase {
		s.expr(e)
		return
	}
	s.b.WriteString("LOWER(")
	s.expr(e)
	s.b.WriteString(")")
}

var likeFuncs = map[criteria.LikeMode]string{
	criteria.LikeContains: "CONTAINS",
	criteria.LikeStarts:   "STARTSWITH",
	criteria.LikeEnds:     "ENDSWITH",
}

func (s *state) like(p *criteria.Like) {
	b := s.b
	if p.Negated {
		b.WriteString("NOT ")
	}
	fn, ok := likeFuncs[p.Mode]
	if !ok {
		if p.Negated {
			b.WriteString("(")
		}
		s.fold(p.L, p.IgnoreCase)
		b.WriteString(" LIKE ")
		s.fold(p.Pattern, p.IgnoreCase)
		if p.Negated {
			b.WriteString(")")
		}
		return
	}
	b.WriteString(fn + "(")
	s.expr(p.L)
	b.WriteString(", ")
	s.expr(p.Pattern)
	if p.IgnoreCase {
		b.WriteString(", true")
	}
	b.WriteString(")")
}

var funcs = map[criteria.Fn]string{
	criteria.FnAbs:    "ABS",
	criteria.FnLength: "LENGTH",
	criteria.FnLower:  "LOWER",
	criteria.FnUpper:  "UPPER",
	criteria.FnLeft:   "LEFT",
	criteria.FnRight:  "RIGHT",
}

func (s *state) expr(e criteria.Expr) {
	b := s.b
	switch e := e.(type) {
	case *criteria.Prop:
		b.WriteString(s.selector(e.Path))
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
		if e.Op == criteria.Concat {
			b.WriteString("CONCAT(")
			s.expr(e.L)
			b.WriteString(", ")
			s.expr(e.R)
			b.WriteString(")")
			return
		}
		b.WriteString("(")
		s.expr(e.L)
		b.WriteString(" " + e.Op.String() + " ")
		s.expr(e.R)
		b.WriteString(")")
	case *criteria.Func:
		name, ok := funcs[e.Fn]
		if !ok {
			s.fail("unsupported function %s", e.Fn)
			return
		}
		b.WriteString(name + "(")
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			s.expr(a)
		}
		b.WriteString(")")
	default:
		s.fail("unsupported expression %T", e)
	}
}

func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
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
