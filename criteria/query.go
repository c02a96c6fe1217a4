package criteria

import (
	"sort"
	"strconv"
	"strings"

	"github.com/syssam/derive/schema"
)

// SelectKind is the kind of a selection.
type SelectKind uint8

// Selection kinds.
const (
	SelectEntity SelectKind = iota
	SelectProperties
	SelectCount
	SelectExists
)

// Selection is what a query returns.
type Selection struct {
	Kind     SelectKind
	Paths    []*schema.Path // Projected properties, or the counted property.
	Distinct bool
}

// Order is an ordering term.
type Order struct {
	Path       *schema.Path
	Desc       bool
	IgnoreCase bool
}

// Assignment is an update or insert assignment.
type Assignment struct {
	Path  *schema.Path
	Value Expr
}

// Limit bounds the number of rows. Zero values mean unset.
type Limit struct {
	Max    int
	Offset int
}

// JoinKind is the kind of a join.
type JoinKind uint8

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// Join traverses an association. Path ends at the association property.
type Join struct {
	Path  *schema.Path
	Kind  JoinKind
	Fetch bool   // Also select the columns of the joined entity.
	Alias string // Alias declared in a query string, informational.
}

// Query is the root of a criteria tree.
type Query struct {
	Kind      Kind
	Entity    *schema.Entity
	Joins     []*Join
	Where     Predicate
	Selection Selection
	Order     []Order
	Set       []Assignment
	Limit     Limit
	// PartitionKey references the argument holding the document partition key.
	PartitionKey *Param
	// Identity marks a predicate synthesized from identity and version values
	// rather than written by the caller.
	Identity bool
	// WholeDocument marks an update or insert that writes the entire entity.
	WholeDocument bool
	// EntityParam is the index of the entity-instance argument, or -1.
	EntityParam int
	// Batch marks an entity-instance argument holding a collection. The
	// statement is bound once per element.
	Batch bool
	// Params lists every parameter reference in tree order: assignments,
	// predicate, partition key.
	Params []*Param
}

// Consumed returns the sorted indexes of the declared parameters the query
// references.
func (q *Query) Consumed() []int {
	seen := make(map[int]bool)
	var idx []int
	for _, p := range q.Params {
		if p.Index >= 0 && !seen[p.Index] {
			seen[p.Index] = true
			idx = append(idx, p.Index)
		}
	}
	if q.EntityParam >= 0 && !seen[q.EntityParam] {
		idx = append(idx, q.EntityParam)
	}
	sort.Ints(idx)
	return idx
}

// JoinFor returns the join over the association path with the given dotted
// name, or nil.
func (q *Query) JoinFor(path string) *Join {
	for _, j := range q.Joins {
		if j.Path.String() == path {
			return j
		}
	}
	return nil
}

// String returns a compact, human-readable form of the query.
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(q.Kind.String()))
	switch q.Selection.Kind {
	case SelectProperties:
		sb.WriteString(" ")
		if q.Selection.Distinct {
			sb.WriteString("DISTINCT ")
		}
		sb.WriteString(joinPaths(q.Selection.Paths))
	case SelectCount:
		if q.Kind != KindCount {
			sb.WriteString(" COUNT")
		}
		if q.Selection.Distinct {
			sb.WriteString(" DISTINCT")
		}
		if len(q.Selection.Paths) > 0 {
			sb.WriteString(" " + joinPaths(q.Selection.Paths))
		}
	}
	sb.WriteString(" " + q.Entity.Name)
	for _, j := range q.Joins {
		if j.Kind == LeftJoin {
			sb.WriteString(" LEFT")
		}
		sb.WriteString(" JOIN " + j.Path.String())
		if j.Fetch {
			sb.WriteString(" FETCH")
		}
	}
	if len(q.Set) > 0 {
		sb.WriteString(" SET ")
		for i, a := range q.Set {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.Path.String() + " = " + a.Value.String())
		}
	}
	if q.Where != nil {
		sb.WriteString(" WHERE " + q.Where.String())
	}
	if len(q.Order) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.Path.String())
			if o.Desc {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}
	if q.Limit.Max > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit.Max))
	}
	if q.Limit.Offset > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(q.Limit.Offset))
	}
	return sb.String()
}

func joinPaths(paths []*schema.Path) string {
	s := make([]string, len(paths))
	for i, p := range paths {
		s[i] = p.String()
	}
	return strings.Join(s, ", ")
}
