package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/schema"
)

// Statement is a rendered query. Params holds the parameter bound to each
// placeholder slot, in placeholder order.
type Statement struct {
	Dialect string
	Kind    criteria.Kind
	Entity  *schema.Entity
	Text    string
	Params  []*criteria.Param
	// Names holds the placeholder names of dialects with named parameters,
	// parallel to Params.
	Names []string
	// Columns lists the selected columns or attributes in select order, when
	// the statement returns rows.
	Columns []string
	// Paging is set when limit and offset are applied by the driver rather
	// than the query text.
	Paging *Paging
	// PartitionKey is set for dialects that address documents by partition.
	PartitionKey *PartitionKey
	// Patch lists the document operations of an update or insert, for
	// dialects that do not update in place.
	Patch []PatchOp
	// Replace marks a write of the whole entity-instance argument.
	Replace bool
	// EntityParam is the index of the entity-instance argument, or -1.
	EntityParam int
	// Batch marks a statement executed once per element of EntityParam.
	Batch bool
	// Guarded marks a mutation filtered by identity and version. Matching
	// no row means the entity was modified concurrently.
	Guarded bool

	frags       []string
	placeholder func(int) string
}

// Paging is a driver-level row window.
type Paging struct {
	Limit  int
	Offset int
}

// PartitionKey describes where the partition key of a document comes from.
type PartitionKey struct {
	// Path is the partition key path, for example /category.
	Path string
	// Slot is the index in Params of the parameter holding the key, or -1
	// for cross-partition statements.
	Slot int
}

// PatchOp is a single document patch operation.
type PatchOp struct {
	Op   string // Patch operation, for example set.
	Path string // Document path, for example /address/city.
	Slot int    // Index in Params of the value.
}

// Expand returns the text with every collection parameter expanded into one
// placeholder per element. sizes holds the number of elements per slot and
// is ignored for scalar slots. An empty collection renders as NULL, which
// matches no row. Statements of dialects that bind collections as a single
// value are returned unchanged.
func (s *Statement) Expand(sizes []int) string {
	if s.placeholder == nil || len(s.frags) != len(s.Params)+1 {
		return s.Text
	}
	var (
		sb strings.Builder
		n  = 1
	)
	for i, p := range s.Params {
		sb.WriteString(s.frags[i])
		if !p.Collection {
			sb.WriteString(s.placeholder(n))
			n++
			continue
		}
		size := 0
		if i < len(sizes) {
			size = sizes[i]
		}
		if size == 0 {
			sb.WriteString("NULL")
			continue
		}
		for j := 0; j < size; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(s.placeholder(n))
			n++
		}
	}
	sb.WriteString(s.frags[len(s.Params)])
	return sb.String()
}

// Expandable reports if the statement has collection slots that Expand
// rewrites.
func (s *Statement) Expandable() bool {
	if s.placeholder == nil {
		return false
	}
	for _, p := range s.Params {
		if p.Collection {
			return true
		}
	}
	return false
}

// Placeholder styles.
var (
	// Question renders every placeholder as ?.
	Question = func(int) string { return "?" }
	// Dollar renders $1, $2, ...
	Dollar = func(n int) string { return "$" + strconv.Itoa(n) }
	// AtP renders @p1, @p2, ...
	AtP = func(n int) string { return "@p" + strconv.Itoa(n) }
	// Colon renders :1, :2, ...
	Colon = func(n int) string { return ":" + strconv.Itoa(n) }
)

// Builder accumulates statement text and placeholder slots.
type Builder struct {
	sb          strings.Builder
	frags       []string
	last        int
	params      []*criteria.Param
	names       []string
	placeholder func(int) string
	prefix      string
	byKey       map[string]string
}

// NewBuilder returns a builder for positional placeholders in the given style.
func NewBuilder(placeholder func(int) string) *Builder {
	return &Builder{placeholder: placeholder}
}

// NewNamedBuilder returns a builder for named placeholders starting with
// prefix. References to the same parameter share one name and one slot.
func NewNamedBuilder(prefix string) *Builder {
	return &Builder{prefix: prefix, byKey: make(map[string]string)}
}

// WriteString appends s to the text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends c to the text.
func (b *Builder) WriteByte(c byte) error {
	return b.sb.WriteByte(c)
}

// Writef appends formatted text.
func (b *Builder) Writef(format string, args ...any) *Builder {
	fmt.Fprintf(&b.sb, format, args...)
	return b
}

// Arg appends a placeholder bound to p.
func (b *Builder) Arg(p *criteria.Param) *Builder {
	if b.byKey != nil {
		b.sb.WriteString(b.Name(p))
		return b
	}
	text := b.sb.String()
	b.frags = append(b.frags, text[b.last:])
	b.params = append(b.params, p)
	b.sb.WriteString(b.placeholder(len(b.params)))
	b.last = b.sb.Len()
	return b
}

// Name returns the placeholder name of p in a named builder, allocating a
// slot on first use.
func (b *Builder) Name(p *criteria.Param) string {
	key := p.Key()
	if name, ok := b.byKey[key]; ok {
		return name
	}
	base := sanitize(p.Name)
	if p.Property != "" {
		base += "_" + sanitize(p.Property)
	}
	if base == "" || base == "_" {
		base = "p"
	}
	name := b.prefix + base
	for i := 1; b.taken(name); i++ {
		name = b.prefix + base + strconv.Itoa(i)
	}
	b.byKey[key] = name
	b.params = append(b.params, p)
	b.names = append(b.names, name)
	return name
}

// Slot returns the slot allocated to p, allocating one in named builders.
// Positional builders return the slot of the last reference to p, or -1.
func (b *Builder) Slot(p *criteria.Param) int {
	if b.byKey != nil {
		b.Name(p)
	}
	for i := len(b.params) - 1; i >= 0; i-- {
		if b.params[i] == p {
			return i
		}
	}
	return -1
}

func (b *Builder) taken(name string) bool {
	for _, n := range b.names {
		if n == name {
			return true
		}
	}
	return false
}

// Len returns the length of the text.
func (b *Builder) Len() int {
	return b.sb.Len()
}

// String returns the text.
func (b *Builder) String() string {
	return b.sb.String()
}

// Statement returns the accumulated statement.
func (b *Builder) Statement(dialect string, kind criteria.Kind) *Statement {
	st := &Statement{
		Dialect:     dialect,
		Kind:        kind,
		Text:        b.sb.String(),
		Params:      b.params,
		Names:       b.names,
		EntityParam: -1,
	}
	if b.byKey == nil {
		st.frags = append(b.frags, st.Text[b.last:])
		st.placeholder = b.placeholder
	}
	return st
}

func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9'):
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
