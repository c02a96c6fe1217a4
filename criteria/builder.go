package criteria

import (
	"fmt"

	"github.com/syssam/derive"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
)

// Builder assembles a Query. The zero value is not usable; call New.
type Builder struct {
	q *Query
}

// New returns a builder for an operation of the given kind on e.
func New(kind Kind, e *schema.Entity) *Builder {
	q := &Query{Kind: kind, Entity: e, EntityParam: -1}
	switch kind {
	case KindCount:
		q.Selection.Kind = SelectCount
	case KindExists:
		q.Selection.Kind = SelectExists
	}
	return &Builder{q: q}
}

// Where sets the predicate, conjoined with any predicate set before.
func (b *Builder) Where(p Predicate) *Builder {
	b.q.Where = And(b.q.Where, p)
	return b
}

// Join adds a join over the association path.
func (b *Builder) Join(path *schema.Path, kind JoinKind, fetch bool) *Builder {
	if j := b.q.JoinFor(path.String()); j != nil {
		j.Kind, j.Fetch = kind, j.Fetch || fetch
		return b
	}
	b.q.Joins = append(b.q.Joins, &Join{Path: path, Kind: kind, Fetch: fetch})
	return b
}

// Select projects the given properties.
func (b *Builder) Select(paths ...*schema.Path) *Builder {
	if b.q.Selection.Kind == SelectEntity {
		b.q.Selection.Kind = SelectProperties
	}
	b.q.Selection.Paths = append(b.q.Selection.Paths, paths...)
	return b
}

// Count turns the selection into a count of the given property, or of rows
// when none is given.
func (b *Builder) Count(paths ...*schema.Path) *Builder {
	b.q.Selection.Kind = SelectCount
	b.q.Selection.Paths = append(b.q.Selection.Paths, paths...)
	return b
}

// Distinct removes duplicates from the selection.
func (b *Builder) Distinct() *Builder {
	b.q.Selection.Distinct = true
	return b
}

// OrderBy appends ordering terms.
func (b *Builder) OrderBy(orders ...Order) *Builder {
	b.q.Order = append(b.q.Order, orders...)
	return b
}

// Set appends an assignment.
func (b *Builder) Set(path *schema.Path, v Expr) *Builder {
	b.q.Set = append(b.q.Set, Assignment{Path: path, Value: v})
	return b
}

// Limit sets the maximum number of rows and the offset.
func (b *Builder) Limit(max, offset int) *Builder {
	b.q.Limit = Limit{Max: max, Offset: offset}
	return b
}

// PartitionKey sets the argument holding the partition key.
func (b *Builder) PartitionKey(p *Param) *Builder {
	b.q.PartitionKey = p
	return b
}

// Identity marks the predicate as synthesized from identity values.
func (b *Builder) Identity() *Builder {
	b.q.Identity = true
	return b
}

// WholeDocument marks the operation as writing the entire entity.
func (b *Builder) WholeDocument() *Builder {
	b.q.WholeDocument = true
	return b
}

// EntityParam records the entity-instance argument. batch marks a
// collection of entities.
func (b *Builder) EntityParam(index int, batch bool) *Builder {
	b.q.EntityParam, b.q.Batch = index, batch
	return b
}

// Build validates the query and returns it. The builder must not be used
// afterwards.
func (b *Builder) Build() (*Query, error) {
	q := b.q
	if q.Entity == nil {
		return nil, derive.NewCriteriaError("<nil>", "missing root entity")
	}
	if err := b.paths(); err != nil {
		return nil, err
	}
	b.bindTargets()
	if err := b.invariants(); err != nil {
		return nil, err
	}
	q.Params = collectParams(q)
	return q, nil
}

// paths checks that every path starts at the root and adds the joins needed
// to reach associated entities.
func (b *Builder) paths() error {
	q := b.q
	var err error
	visit := func(p *schema.Path) {
		if err != nil {
			return
		}
		if p.Root != q.Entity {
			err = derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf("path %s starts at %s", p, p.Root.Name))
			return
		}
		if a := p.Property.Assoc; a != nil && a.Kind != edge.ToOneOwning {
			err = derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf("cannot compare %s association %s", a.Kind, p))
			return
		}
		if !NeedsJoin(p) {
			return
		}
		if q.Kind.Mutation() {
			err = derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf("%s cannot traverse association %s", q.Kind, p))
			return
		}
		for i := range p.Via {
			if p.Via[i].Assoc.Kind == edge.Embedded {
				continue
			}
			jp := &schema.Path{Root: p.Root, Via: p.Via[:i], Property: p.Via[i]}
			if q.JoinFor(jp.String()) == nil {
				q.Joins = append(q.Joins, &Join{Path: jp, Kind: InnerJoin})
			}
		}
	}
	visitExpr := func(e Expr) {
		if pe, ok := e.(*Prop); ok {
			visit(pe.Path)
		}
	}
	for _, j := range q.Joins {
		if j.Path.Root != q.Entity || j.Path.Property.Assoc == nil {
			return derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf("join path %s is not an association", j.Path))
		}
	}
	Walk(q.Where, visitExpr)
	for _, p := range q.Selection.Paths {
		visit(p)
	}
	for _, o := range q.Order {
		visit(o.Path)
	}
	for _, a := range q.Set {
		if len(a.Path.Via) > 0 && !a.Path.Embedded() {
			return derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf("cannot assign through association %s", a.Path))
		}
		WalkExpr(a.Value, visitExpr)
	}
	return err
}

// NeedsJoin reports if reaching p requires joining another entity. Embedded
// values never do, and a to-one owning association compared by the target's
// identity uses the foreign key column directly.
func NeedsJoin(p *schema.Path) bool {
	if p.Embedded() {
		return false
	}
	if len(p.Via) == 1 && p.Via[0].Assoc.Kind == edge.ToOneOwning && p.Property.IsID {
		return false
	}
	return true
}

// bindTargets links parameters to the property they are compared with or
// assigned to, inferring their type when it was not declared.
func (b *Builder) bindTargets() {
	link := func(target Expr, values ...Expr) {
		pe, ok := target.(*Prop)
		if !ok {
			return
		}
		for _, v := range values {
			if p, ok := v.(*Param); ok {
				if p.Target == nil {
					p.Target = pe.Path.Property
				}
				if !p.Type.Valid() {
					p.Type = pe.Path.Property.Type
				}
			}
		}
	}
	var visit func(Predicate)
	visit = func(p Predicate) {
		switch p := p.(type) {
		case *Comparison:
			link(p.L, p.R)
			link(p.R, p.L)
		case *Junction:
			for _, c := range p.Preds {
				visit(c)
			}
		case *Negation:
			visit(p.P)
		case *Like:
			link(p.L, p.Pattern)
		case *In:
			link(p.L, p.Items...)
		case *Between:
			link(p.L, p.Lo, p.Hi)
		}
	}
	visit(b.q.Where)
	for _, a := range b.q.Set {
		link(&Prop{Path: a.Path}, a.Value)
	}
}

func (b *Builder) invariants() error {
	q := b.q
	fail := func(format string, args ...any) error {
		return derive.NewCriteriaError(q.Entity.Name, fmt.Sprintf(format, args...))
	}
	switch q.Kind {
	case KindUpdate:
		if len(q.Set) == 0 && !q.WholeDocument {
			return fail("update without assignments")
		}
		for _, a := range q.Set {
			if !a.Path.Property.Updatable() {
				return fail("property %s is not updatable", a.Path)
			}
		}
	case KindInsert:
		if len(q.Set) == 0 {
			return fail("insert without values")
		}
	}
	if len(q.Set) > 0 && q.Kind != KindUpdate && q.Kind != KindInsert {
		return fail("%s with assignments", q.Kind)
	}
	if q.Identity && q.Kind != KindInsert {
		eq := make(map[*schema.Property]bool)
		for _, c := range Conjuncts(q.Where) {
			if cmp, ok := c.(*Comparison); ok && cmp.Op == EQ {
				if pe, ok := cmp.L.(*Prop); ok && len(pe.Path.Via) == 0 {
					eq[pe.Path.Property] = true
				}
			}
		}
		ids := q.Entity.Identity()
		if len(ids) == 0 {
			return fail("entity has no identity")
		}
		for _, id := range ids {
			if !eq[id] {
				return fail("identity predicate does not cover %s", id.Name)
			}
		}
		if v := q.Entity.Version; v != nil && (q.Kind == KindDelete || q.Kind == KindUpdate) && !eq[v] {
			return fail("%s of versioned entity requires a version predicate", q.Kind)
		}
	}
	if q.Limit.Max < 0 || q.Limit.Offset < 0 {
		return fail("negative limit")
	}
	return nil
}

func collectParams(q *Query) []*Param {
	var params []*Param
	add := func(e Expr) {
		if p, ok := e.(*Param); ok {
			params = append(params, p)
		}
	}
	for _, a := range q.Set {
		WalkExpr(a.Value, add)
	}
	Walk(q.Where, add)
	if q.PartitionKey != nil {
		params = append(params, q.PartitionKey)
	}
	return params
}
