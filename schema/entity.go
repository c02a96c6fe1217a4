package schema

import (
	"strings"

	"github.com/syssam/derive/schema/edge"
	"github.com/syssam/derive/schema/field"
)

// Entity describes a persistent entity. Entities are created by NewRegistry
// and must not be modified afterwards.
type Entity struct {
	Name         string
	Table        string      // Physical name override, empty when derived by naming.
	Properties   []*Property // In declaration order, mixed-in properties first.
	ID           *Property   // Single identity, nil for composite or no identity.
	CompositeID  []*Property // Identity components, nil for single identity.
	Version      *Property
	PartitionKey *Property
	props        map[string]*Property
}

// Property returns the property with the given name, or nil.
func (e *Entity) Property(name string) *Property {
	return e.props[name]
}

// PropertyFold returns the property whose name matches name case-insensitively.
// Exact matches win.
func (e *Entity) PropertyFold(name string) *Property {
	if p, ok := e.props[name]; ok {
		return p
	}
	for _, p := range e.Properties {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// Identity returns the identity components of the entity.
func (e *Entity) Identity() []*Property {
	if e.ID != nil {
		return []*Property{e.ID}
	}
	return e.CompositeID
}

// HasCompositeID reports if the identity has more than one component.
func (e *Entity) HasCompositeID() bool {
	return len(e.CompositeID) > 0
}

// Property describes an entity property. Associations are properties with a
// non-nil Assoc.
type Property struct {
	Name           string
	Type           field.Type
	Nullable       bool
	Immutable      bool
	Generated      bool
	AutoPopulated  bool
	UpdateDefault  bool
	IsID           bool
	IsVersion      bool
	IsPartitionKey bool
	StorageKey     string
	Enums          []string
	Assoc          *Association
	Owner          *Entity
}

// IsAssociation reports if the property references another entity.
func (p *Property) IsAssociation() bool {
	return p.Assoc != nil
}

// Persisted reports if the property has storage on the owner side: plain
// properties, embedded values and to-one owning foreign keys.
func (p *Property) Persisted() bool {
	if p.Assoc == nil {
		return true
	}
	return p.Assoc.Kind == edge.ToOneOwning || p.Assoc.Kind == edge.Embedded
}

// Updatable reports if the property can appear on the left of an update assignment.
func (p *Property) Updatable() bool {
	return p.Persisted() && !p.IsID && !p.Generated && !p.Immutable
}

// Association describes the target of an association property.
type Association struct {
	Kind       edge.Kind
	Target     *Entity
	ForeignKey string
	JoinTable  string
	MappedBy   string
	Optional   bool
}

// Path is a resolved property path. Via holds the association properties
// traversed from Root, in order; Property is the leaf.
type Path struct {
	Root     *Entity
	Via      []*Property
	Property *Property
}

// Names returns the path segments.
func (p *Path) Names() []string {
	names := make([]string, 0, len(p.Via)+1)
	for _, a := range p.Via {
		names = append(names, a.Name)
	}
	return append(names, p.Property.Name)
}

// String returns the dotted path.
func (p *Path) String() string {
	return strings.Join(p.Names(), ".")
}

// Type returns the type of the leaf property.
func (p *Path) Type() field.Type {
	return p.Property.Type
}

// Embedded reports if every traversed association is an embedded value,
// meaning the path stays within the root's own storage.
func (p *Path) Embedded() bool {
	for _, a := range p.Via {
		if a.Assoc.Kind != edge.Embedded {
			return false
		}
	}
	return true
}

// Equal reports if both paths resolve to the same property along the same route.
func (p *Path) Equal(o *Path) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Root != o.Root || p.Property != o.Property || len(p.Via) != len(o.Via) {
		return false
	}
	for i := range p.Via {
		if p.Via[i] != o.Via[i] {
			return false
		}
	}
	return true
}
