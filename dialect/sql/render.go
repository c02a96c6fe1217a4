package sql

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

// Renderer renders criteria queries as SQL for one relational dialect.
// It is safe for concurrent use.
type Renderer struct {
	flavor *flavor
	naming naming.Strategy
	quote  bool
}

var _ dialect.Renderer = (*Renderer)(nil)

// Option configures a Renderer.
type Option func(*Renderer)

// WithNaming sets the strategy mapping entity and property names to tables
// and columns. The default is naming.Default.
func WithNaming(s naming.Strategy) Option {
	return func(r *Renderer) {
		r.naming = s
	}
}

// WithAlwaysQuote quotes every identifier, not only reserved or
// irregular ones.
func WithAlwaysQuote() Option {
	return func(r *Renderer) {
		r.quote = true
	}
}

// NewRenderer returns a renderer for the given relational dialect.
func NewRenderer(name string, opts ...Option) (*Renderer, error) {
	f, ok := flavors[name]
	if !ok {
		return nil, fmt.Errorf("sql: unsupported dialect %q", name)
	}
	r := &Renderer{flavor: f, naming: naming.Default}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dialect implements dialect.Renderer.
func (r *Renderer) Dialect() string {
	return r.flavor.name
}

// Quote quotes an identifier if needed.
func (r *Renderer) Quote(ident string) string {
	if !r.quote && plain(ident) {
		return ident
	}
	f := r.flavor
	esc := string(f.close)
	return string(f.open) + strings.ReplaceAll(ident, esc, esc+esc) + esc
}

// Render implements dialect.Renderer.
func (r *Renderer) Render(q *criteria.Query) (*dialect.Statement, error) {
	s := &state{
		Renderer: r,
		q:        q,
		b:        dialect.NewBuilder(r.flavor.placeholder),
	}
	if len(q.Joins) > 0 {
		s.aliases()
	}
	switch q.Kind {
	case criteria.KindQuery, criteria.KindCount, criteria.KindExists:
		s.selectStmt()
	case criteria.KindDelete:
		s.deleteStmt()
	case criteria.KindUpdate:
		s.updateStmt()
	case criteria.KindInsert:
		s.insertStmt()
	default:
		s.fail("unsupported operation %s", q.Kind)
	}
	if s.err != nil {
		return nil, s.err
	}
	st := s.b.Statement(r.flavor.name, q.Kind)
	st.Entity = q.Entity
	st.Columns = s.columns
	st.EntityParam = q.EntityParam
	st.Batch = q.Batch
	st.Guarded = q.Identity && q.Entity.Version != nil && q.Kind.Mutation()
	return st, nil
}

// RenderRaw implements dialect.Renderer.
func (r *Renderer) RenderRaw(raw dialect.Raw) (*dialect.Statement, error) {
	b := dialect.NewBuilder(r.flavor.placeholder)
	if err := dialect.WriteRaw(b, raw); err != nil {
		return nil, err
	}
	st := b.Statement(r.flavor.name, raw.Kind)
	st.Entity = raw.Entity
	return st, nil
}

// state is the per-render scratch space.
type state struct {
	*Renderer
	q       *criteria.Query
	b       *dialect.Builder
	root    string            // Alias of the root table, empty without joins.
	alias   map[string]string // Join path to alias.
	columns []string
	err     error
}

func (s *state) fail(format string, args ...any) {
	if s.err == nil {
		s.err = derive.NewCriteriaError(s.q.Entity.Name, fmt.Sprintf(format, args...))
	}
}

// aliases assigns a stable alias to the root table and every join. Aliases
// derive from association names so repeated renders agree.
func (s *state) aliases() {
	s.root = strings.ToLower(s.naming.MappedName(s.q.Entity.Name)) + "_"
	s.alias = make(map[string]string, len(s.q.Joins))
	for _, j := range s.q.Joins {
		names := j.Path.Names()
		for i, n := range names {
			names[i] = strings.ToLower(s.naming.MappedName(n))
		}
		s.alias[j.Path.String()] = s.root + strings.Join(names, "_") + "_"
	}
}

func (s *state) table(e *schema.Entity) string {
	return s.Quote(naming.Table(s.naming, e))
}

// qualify prefixes a quoted column with an alias, if any.
func (s *state) qualify(alias, column string) string {
	if alias == "" {
		return s.Quote(column)
	}
	return alias + "." + s.Quote(column)
}

// column returns the qualified column of a property path.
func (s *state) column(p *schema.Path) string {
	if !criteria.NeedsJoin(p) {
		if !p.Embedded() {
			// Identity of a to-one owning target: the foreign key column.
			return s.qualify(s.root, naming.Column(s.naming, nil, p.Via[0]))
		}
		return s.qualify(s.root, naming.Column(s.naming, p.Via, p.Property))
	}
	k := len(p.Via) - 1
	for k >= 0 && p.Via[k].Assoc.Kind == edge.Embedded {
		k--
	}
	jp := &schema.Path{Root: p.Root, Via: p.Via[:k], Property: p.Via[k]}
	alias, ok := s.alias[jp.String()]
	if !ok {
		s.fail("no join for %s", jp)
	}
	return s.qualify(alias, naming.Column(s.naming, p.Via[k+1:], p.Property))
}

// entityColumns appends the columns of e reached through the embedded
// properties in prefix. Logical names are recorded when record is set.
func (s *state) entityColumns(dst []string, alias string, e *schema.Entity, prefix []*schema.Property, logical string, record bool) []string {
	for _, p := range e.Properties {
		if !p.Persisted() {
			continue
		}
		if p.Assoc != nil && p.Assoc.Kind == edge.Embedded {
			dst = s.entityColumns(dst, alias, p.Assoc.Target, append(prefix[:len(prefix):len(prefix)], p), logical+p.Name+".", record)
			continue
		}
		dst = append(dst, s.qualify(alias, naming.Column(s.naming, prefix, p)))
		if record {
			s.columns = append(s.columns, logical+p.Name)
		}
	}
	return dst
}

func (s *state) selectStmt() {
	q := s.q
	b := s.b
	b.WriteString("SELECT ")
	sel := q.Selection
	switch sel.Kind {
	case criteria.SelectEntity:
		if sel.Distinct {
			b.WriteString("DISTINCT ")
		}
		cols := s.entityColumns(nil, s.root, q.Entity, nil, "", true)
		for _, j := range q.Joins {
			if j.Fetch && j.Path.Property.Assoc.Kind != edge.Embedded {
				cols = s.entityColumns(cols, s.alias[j.Path.String()], j.Path.Property.Assoc.Target, nil, j.Path.String()+".", true)
			}
		}
		b.WriteString(strings.Join(cols, ", "))
	case criteria.SelectProperties:
		if sel.Distinct {
			b.WriteString("DISTINCT ")
		}
		for i, p := range sel.Paths {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.column(p))
			s.columns = append(s.columns, p.String())
		}
	case criteria.SelectCount:
		switch {
		case len(sel.Paths) == 0:
			b.WriteString("COUNT(*)")
		case sel.Distinct:
			b.WriteString("COUNT(DISTINCT " + s.column(sel.Paths[0]) + ")")
		default:
			b.WriteString("COUNT(" + s.column(sel.Paths[0]) + ")")
		}
		s.columns = append(s.columns, "count")
	case criteria.SelectExists:
		b.WriteString("1")
	}
	b.WriteString(" FROM " + s.table(q.Entity))
	if s.root != "" {
		b.WriteString(" " + s.root)
	}
	for _, j := range q.Joins {
		s.join(j)
	}
	s.where()
	ordered := len(q.Order) > 0 && sel.Kind != criteria.SelectCount && sel.Kind != criteria.SelectExists
	if ordered {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			col := s.column(o.Path)
			if o.IgnoreCase {
				col = "LOWER(" + col + ")"
			}
			b.WriteString(col)
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
	switch {
	case sel.Kind == criteria.SelectExists:
		s.flavor.limit(b, criteria.Limit{Max: 1}, false)
	case sel.Kind != criteria.SelectCount:
		s.flavor.limit(b, q.Limit, ordered)
	}
}

// join writes the join clause of an association. To-many owning
// associations go through their join table.
func (s *state) join(j *criteria.Join) {
	p := j.Path.Property
	a := p.Assoc
	if a.Kind == edge.Embedded {
		return
	}
	if a.Target.HasCompositeID() || a.Target.ID == nil {
		s.fail("cannot join %s: target %s has no single identity", j.Path, a.Target.Name)
		return
	}
	parent := s.root
	k := len(j.Path.Via) - 1
	for k >= 0 && j.Path.Via[k].Assoc.Kind == edge.Embedded {
		k--
	}
	if k >= 0 {
		parent = s.alias[(&schema.Path{Root: j.Path.Root, Via: j.Path.Via[:k], Property: j.Path.Via[k]}).String()]
	}
	embedded := j.Path.Via[k+1:]
	alias := s.alias[j.Path.String()]
	kw := " JOIN "
	if j.Kind == criteria.LeftJoin {
		kw = " LEFT JOIN "
	}
	target := s.table(a.Target)
	targetID := s.qualify(alias, naming.Column(s.naming, nil, a.Target.ID))
	owner := p.Owner
	switch a.Kind {
	case edge.ToOneOwning:
		s.b.WriteString(kw + target + " " + alias + " ON " + s.qualify(parent, naming.Column(s.naming, embedded, p)) + " = " + targetID)
	case edge.ToOneInverse, edge.ToManyInverse:
		if owner.ID == nil {
			s.fail("cannot join %s: %s has no single identity", j.Path, owner.Name)
			return
		}
		fk := s.qualify(alias, naming.ForeignKey(s.naming, p))
		s.b.WriteString(kw + target + " " + alias + " ON " + fk + " = " + s.qualify(parent, naming.Column(s.naming, nil, owner.ID)))
	case edge.ToManyOwning:
		if owner.ID == nil {
			s.fail("cannot join %s: %s has no single identity", j.Path, owner.Name)
			return
		}
		table, ownerCol, targetCol := naming.JoinTable(s.naming, p)
		jt := alias + "jt_"
		s.b.WriteString(kw + s.Quote(table) + " " + jt + " ON " + s.qualify(jt, ownerCol) + " = " + s.qualify(parent, naming.Column(s.naming, nil, owner.ID)))
		s.b.WriteString(kw + target + " " + alias + " ON " + targetID + " = " + s.qualify(jt, targetCol))
	}
}

func (s *state) where() {
	if s.q.Where == nil {
		return
	}
	s.b.WriteString(" WHERE ")
	s.pred(s.q.Where)
}

func (s *state) deleteStmt() {
	s.b.WriteString("DELETE FROM " + s.table(s.q.Entity))
	s.where()
}

func (s *state) updateStmt() {
	q := s.q
	if len(q.Set) == 0 {
		s.fail("update has no assignments")
		return
	}
	s.b.WriteString("UPDATE " + s.table(q.Entity) + " SET ")
	for i, a := range q.Set {
		if i > 0 {
			s.b.WriteString(", ")
		}
		s.b.WriteString(s.Quote(naming.Column(s.naming, a.Path.Via, a.Path.Property)) + " = ")
		s.expr(a.Value)
	}
	s.where()
}

func (s *state) insertStmt() {
	q := s.q
	if len(q.Set) == 0 {
		s.fail("insert has no values")
		return
	}
	cols := make([]string, len(q.Set))
	for i, a := range q.Set {
		cols[i] = s.Quote(naming.Column(s.naming, a.Path.Via, a.Path.Property))
	}
	s.b.WriteString("INSERT INTO " + s.table(q.Entity) + " (" + strings.Join(cols, ", ") + ") VALUES (")
	for i, a := range q.Set {
		if i > 0 {
			s.b.WriteString(", ")
		}
		s.expr(a.Value)
	}
	s.b.WriteString(")")
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
		s.expr(p.L)
		if p.Negated {
			b.WriteString(" NOT")
		}
		b.WriteString(" BETWEEN ")
		s.expr(p.Lo)
		b.WriteString(" AND ")
		s.expr(p.Hi)
	case *criteria.NullCheck:
		s.expr(p.L)
		if p.Negated {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case *criteria.EmptyCheck:
		b.WriteString("(")
		s.expr(p.L)
		if p.Negated {
			b.WriteString(" IS NOT NULL AND ")
			s.expr(p.L)
			b.WriteString(" <> '')")
		} else {
			b.WriteString(" IS NULL OR ")
			s.expr(p.L)
			b.WriteString(" = '')")
		}
	default:
		s.fail("unsupported predicate %T", p)
	}
}

// fold writes e, lower-cased when ignoreCase is set.
func (s *state) fold(e criteria.Expr, ignoreCase bool) {
	if !ignoreCase {
		s.expr(e)
		return
	}
	s.b.WriteString("LOWER(")
	s.expr(e)
	s.b.WriteString(")")
}

func (s *state) like(p *criteria.Like) {
	ilike := p.IgnoreCase && s.flavor.ilike
	s.fold(p.L, p.IgnoreCase && !ilike)
	if p.Negated {
		s.b.WriteString(" NOT")
	}
	if ilike {
		s.b.WriteString(" ILIKE ")
	} else {
		s.b.WriteString(" LIKE ")
	}
	pattern := func() { s.fold(p.Pattern, p.IgnoreCase && !ilike) }
	if p.Mode == criteria.LikeRaw {
		pattern()
		return
	}
	// Render the concatenation around a placeholder in two halves.
	var parts []string
	if p.Mode == criteria.LikeContains || p.Mode == criteria.LikeEnds {
		parts = append(parts, "'%'")
	}
	parts = append(parts, "\x00")
	if p.Mode == criteria.LikeContains || p.Mode == criteria.LikeStarts {
		parts = append(parts, "'%'")
	}
	before, after, _ := strings.Cut(s.flavor.concat(parts...), "\x00")
	s.b.WriteString(before)
	pattern()
	s.b.WriteString(after)
}

func (s *state) expr(e criteria.Expr) {
	b := s.b
	switch e := e.(type) {
	case *criteria.Prop:
		b.WriteString(s.column(e.Path))
	case *criteria.Param:
		b.Arg(e)
	case *criteria.Literal:
		b.WriteString(s.literal(e.Value))
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
			b.WriteString("(")
			before, after, _ := strings.Cut(s.flavor.concat("\x00", "\x01"), "\x00")
			mid, end, _ := strings.Cut(after, "\x01")
			b.WriteString(before)
			s.expr(e.L)
			b.WriteString(mid)
			s.expr(e.R)
			b.WriteString(end + ")")
			return
		}
		b.WriteString("(")
		s.expr(e.L)
		b.WriteString(" " + e.Op.String() + " ")
		s.expr(e.R)
		b.WriteString(")")
	case *criteria.Func:
		s.fn(e)
	default:
		s.fail("unsupported expression %T", e)
	}
}

func (s *state) fn(e *criteria.Func) {
	b := s.b
	var name string
	switch e.Fn {
	case criteria.FnAbs:
		name = "ABS"
	case criteria.FnLength:
		name = s.flavor.length
	case criteria.FnLower:
		name = "LOWER"
	case criteria.FnUpper:
		name = "UPPER"
	case criteria.FnLeft, criteria.FnRight:
		if len(e.Args) != 2 {
			s.fail("%s takes 2 arguments", e.Fn)
			return
		}
		if !s.flavor.substr {
			name = strings.ToUpper(e.Fn.String())
			break
		}
		b.WriteString("SUBSTR(")
		s.expr(e.Args[0])
		if e.Fn == criteria.FnLeft {
			b.WriteString(", 1, ")
			s.expr(e.Args[1])
		} else {
			b.WriteString(", -(")
			s.expr(e.Args[1])
			b.WriteString(")")
		}
		b.WriteString(")")
		return
	default:
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
}

func (s *state) literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		switch {
		case s.flavor.boolInt && v:
			return "1"
		case s.flavor.boolInt:
			return "0"
		case v:
			return "TRUE"
		default:
			return "FALSE"
		}
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
