package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/derive"
	"github.com/syssam/derive/schema/edge"
	"github.com/syssam/derive/schema/field"
)

// Registry holds the linked entity graph. It is immutable after NewRegistry
// returns.
type Registry struct {
	entities map[string]*Entity
	order    []*Entity
}

// NewRegistry builds and links the entities declared by schemas.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(schemas))}
	targets := make(map[*Property]string)
	for _, s := range schemas {
		e, err := newEntity(s, targets)
		if err != nil {
			return nil, err
		}
		if _, ok := r.entities[e.Name]; ok {
			return nil, fmt.Errorf("schema: duplicate entity %q", e.Name)
		}
		r.entities[e.Name] = e
		r.order = append(r.order, e)
	}
	for _, e := range r.order {
		for _, p := range e.Properties {
			if p.Assoc == nil {
				continue
			}
			t, ok := r.entities[targets[p]]
			if !ok {
				return nil, fmt.Errorf("schema: association %s.%s: %w", e.Name, p.Name, derive.NewUnknownEntityError(targets[p]))
			}
			p.Assoc.Target = t
		}
	}
	for _, e := range r.order {
		if err := validateInverse(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func newEntity(s Schema, targets map[*Property]string) (*Entity, error) {
	name := nameOf(s)
	if name == "" {
		return nil, fmt.Errorf("schema: missing entity name for %T", s)
	}
	e := &Entity{Name: name, Table: s.Config().Table, props: make(map[string]*Property)}
	var (
		fields []field.Field
		edges  []edge.Edge
	)
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		edges = append(edges, m.Edges()...)
	}
	fields = append(fields, s.Fields()...)
	edges = append(edges, s.Edges()...)
	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("schema: entity %q: %w", name, d.Err)
		}
		p := &Property{
			Name:           d.Name,
			Type:           d.Type,
			Nullable:       d.Nillable,
			Immutable:      d.Immutable,
			Generated:      d.Generated,
			AutoPopulated:  d.AutoPopulated,
			UpdateDefault:  d.UpdateDefault,
			IsID:           d.ID,
			IsVersion:      d.Version,
			IsPartitionKey: d.PartitionKey,
			StorageKey:     d.StorageKey,
			Enums:          d.Enums,
			Owner:          e,
		}
		if err := e.add(p); err != nil {
			return nil, err
		}
	}
	for _, ed := range edges {
		d := ed.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("schema: entity %q: %w", name, d.Err)
		}
		p := &Property{
			Name:     d.Name,
			Type:     field.TypeEntity,
			Nullable: d.Optional,
			Owner:    e,
			Assoc: &Association{
				Kind:       d.Kind,
				ForeignKey: d.ForeignKey,
				JoinTable:  d.JoinTable,
				MappedBy:   d.MappedBy,
				Optional:   d.Optional,
			},
		}
		if err := e.add(p); err != nil {
			return nil, err
		}
		targets[p] = d.Target
	}
	var ids []*Property
	for _, p := range e.Properties {
		switch {
		case p.IsID:
			ids = append(ids, p)
		case p.IsVersion:
			if e.Version != nil {
				return nil, fmt.Errorf("schema: entity %q: multiple version properties", name)
			}
			if !p.Type.Numeric() && !p.Type.Temporal() {
				return nil, fmt.Errorf("schema: entity %q: version property %q must be numeric or temporal", name, p.Name)
			}
			e.Version = p
		}
		if p.IsPartitionKey {
			if e.PartitionKey != nil {
				return nil, fmt.Errorf("schema: entity %q: multiple partition keys", name)
			}
			e.PartitionKey = p
		}
	}
	switch len(ids) {
	case 0:
	case 1:
		e.ID = ids[0]
	default:
		e.CompositeID = ids
	}
	return e, nil
}

func (e *Entity) add(p *Property) error {
	if _, ok := e.props[p.Name]; ok {
		return fmt.Errorf("schema: entity %q: duplicate property %q", e.Name, p.Name)
	}
	e.props[p.Name] = p
	e.Properties = append(e.Properties, p)
	return nil
}

// validateInverse checks that every inverse association is mapped by an
// owning association of its target pointing back at the entity.
func validateInverse(e *Entity) error {
	for _, p := range e.Properties {
		if p.Assoc == nil || !p.Assoc.Kind.Inverse() {
			continue
		}
		owner := p.Assoc.Target.Property(p.Assoc.MappedBy)
		if owner == nil || owner.Assoc == nil || owner.Assoc.Kind.Inverse() || owner.Assoc.Target != e {
			return fmt.Errorf("schema: association %s.%s: %q is not an owning association of %s referencing %s",
				e.Name, p.Name, p.Assoc.MappedBy, p.Assoc.Target.Name, e.Name)
		}
	}
	return nil
}

// Entity returns the entity with the given name.
func (r *Registry) Entity(name string) (*Entity, error) {
	if e, ok := r.entities[name]; ok {
		return e, nil
	}
	return nil, derive.NewUnknownEntityError(name)
}

// Entities returns all entities in registration order.
func (r *Registry) Entities() []*Entity {
	return append([]*Entity(nil), r.order...)
}

// Resolve resolves a dotted property path against the named entity.
func (r *Registry) Resolve(entity, path string) (*Path, error) {
	e, err := r.Entity(entity)
	if err != nil {
		return nil, err
	}
	return e.Resolve(path)
}

// Resolve resolves a dotted property path. Every segment but the last must
// name an association.
func (e *Entity) Resolve(path string) (*Path, error) {
	if path == "" {
		return nil, derive.NewUnknownPropertyError(e.Name, path)
	}
	return e.ResolveParts(strings.Split(path, ".")...)
}

// ResolveParts resolves a property path given as segments.
func (e *Entity) ResolveParts(parts ...string) (*Path, error) {
	if len(parts) == 0 {
		return nil, derive.NewUnknownPropertyError(e.Name, "")
	}
	var (
		cur = e
		via []*Property
	)
	for i, name := range parts {
		p := cur.Property(name)
		if p == nil {
			return nil, derive.NewUnknownPropertyError(e.Name, strings.Join(parts, "."))
		}
		if i == len(parts)-1 {
			return &Path{Root: e, Via: via, Property: p}, nil
		}
		if p.Assoc == nil {
			return nil, derive.NewUnknownPropertyError(e.Name, strings.Join(parts, "."))
		}
		via = append(via, p)
		cur = p.Assoc.Target
	}
	panic("unreachable")
}
