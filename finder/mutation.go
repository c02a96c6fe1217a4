package finder

import (
	"fmt"

	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/edge"
)

func (s *state) path(p *schema.Property) *schema.Path {
	return &schema.Path{Root: s.entity, Property: p}
}

// field references property p of the entity-instance parameter i.
func (s *state) field(i int, p *schema.Property, name string) *criteria.Param {
	return &criteria.Param{Index: i, Name: s.sig.Params[i].Name, Type: p.Type, Property: name}
}

// generated references a value produced at bind time.
func generated(p *schema.Property, auto criteria.Auto) *criteria.Param {
	return &criteria.Param{Index: -1, Name: p.Name, Type: p.Type, Auto: auto}
}

// identity matches the identity and version of the entity-instance
// parameter i.
func (s *state) identity(i int) error {
	d := s.sig.Params[i]
	ids := s.entity.Identity()
	if len(ids) == 0 {
		return s.fail(d.Name, fmt.Sprintf("%s has no identity", s.entity.Name))
	}
	s.used[i] = true
	for _, id := range ids {
		s.b.Where(criteria.Eq(criteria.P(s.path(id)), s.field(i, id, id.Name)))
	}
	if v := s.entity.Version; v != nil {
		s.b.Where(criteria.Eq(criteria.P(s.path(v)), s.field(i, v, v.Name)))
	}
	s.b.Identity().EntityParam(i, d.Role == criteria.RoleEntities)
	return nil
}

// updateEntity writes every updatable property of the entity-instance
// parameter i, increments the version and refreshes update timestamps.
func (s *state) updateEntity(i int) error {
	if err := s.identity(i); err != nil {
		return err
	}
	for _, p := range s.entity.Properties {
		switch {
		case p.IsVersion:
			param := s.field(i, p, p.Name)
			param.Auto = criteria.AutoIncrement
			s.b.Set(s.path(p), param)
		case p.UpdateDefault:
			param := s.field(i, p, p.Name)
			param.Auto = criteria.AutoNow
			s.b.Set(s.path(p), param)
		case p.Assoc != nil && p.Assoc.Kind == edge.Embedded:
			s.embedded(i, p, func(ep *schema.Property) bool { return ep.Updatable() })
		case p.Updatable():
			s.b.Set(s.path(p), s.field(i, p, p.Name))
		}
	}
	s.b.WholeDocument()
	return nil
}

// embedded assigns the properties of the embedded value p.
func (s *state) embedded(i int, p *schema.Property, include func(*schema.Property) bool) {
	for _, ep := range p.Assoc.Target.Properties {
		if ep.Assoc != nil || !include(ep) {
			continue
		}
		path := &schema.Path{Root: s.entity, Via: []*schema.Property{p}, Property: ep}
		s.b.Set(path, s.field(i, ep, p.Name+"."+ep.Name))
	}
}

// updateByID matches the identity (and version) parameters and assigns the
// remaining parameters by name.
func (s *state) updateByID() error {
	id := s.entity.ID
	if id == nil {
		return s.fail("", fmt.Sprintf("%s has a composite identity", s.entity.Name))
	}
	for i, d := range s.sig.Params {
		switch d.Role {
		case criteria.RoleID:
			if !id.Type.ComparableWith(d.Type) {
				return s.fail(d.Name, fmt.Sprintf("identity parameter of type %s does not match identity type %s", d.Type, id.Type))
			}
			s.used[i] = true
			s.b.Where(criteria.Eq(criteria.P(s.path(id)), s.param(i, d)))
		case criteria.RoleVersion:
			v := s.entity.Version
			if v == nil {
				return s.fail(d.Name, fmt.Sprintf("%s is not versioned", s.entity.Name))
			}
			s.used[i] = true
			s.b.Where(criteria.Eq(criteria.P(s.path(v)), s.param(i, d)))
			next := s.param(i, d)
			next.Auto = criteria.AutoIncrement
			s.b.Set(s.path(v), next)
		}
	}
	return s.assignRemaining()
}

// assignRemaining assigns every unconsumed parameter to the property of the
// same name and refreshes update timestamps.
func (s *state) assignRemaining() error {
	assigned := make(map[*schema.Property]bool)
	for i, d := range s.sig.Params {
		if s.used[i] {
			continue
		}
		if d.Role != criteria.RoleNone {
			return s.fail(d.Name, fmt.Sprintf("parameter %q with role %s cannot be assigned", d.Name, d.Role))
		}
		p := s.entity.Property(d.Name)
		switch {
		case p == nil:
			return s.fail(d.Name, fmt.Sprintf("cannot update non-existent property %s", d.Name))
		case p.IsID || p.Generated:
			return s.fail(d.Name, fmt.Sprintf("cannot update generated property %s", d.Name))
		case !p.Updatable():
			return s.fail(d.Name, fmt.Sprintf("cannot update property %s", d.Name))
		case !p.Type.ComparableWith(d.Type):
			return s.fail(d.Name, fmt.Sprintf("parameter of type %s cannot be assigned to %s of type %s", d.Type, d.Name, p.Type))
		}
		s.used[i] = true
		assigned[p] = true
		s.b.Set(s.path(p), s.param(i, d))
	}
	if len(assigned) == 0 {
		return s.fail("", "no property to update")
	}
	for _, p := range s.entity.Properties {
		if p.UpdateDefault && !assigned[p] {
			s.b.Set(s.path(p), generated(p, criteria.AutoNow))
		}
	}
	return nil
}

// insert writes the entity-instance parameter, or the parameters by name,
// filling generated identities, initial versions and timestamps.
func (s *state) insert() error {
	if i, ok := s.entityParam(); ok {
		d := s.sig.Params[i]
		s.used[i] = true
		for _, p := range s.entity.Properties {
			if !p.Persisted() {
				continue
			}
			param := s.field(i, p, p.Name)
			switch {
			case p.IsID && p.Generated:
				if !p.Type.Textual() {
					continue
				}
				param.Auto = criteria.AutoID
			case p.IsVersion:
				param.Auto = criteria.AutoInitial
			case p.AutoPopulated:
				param.Auto = criteria.AutoNow
			case p.Assoc != nil && p.Assoc.Kind == edge.Embedded:
				s.embedded(i, p, func(ep *schema.Property) bool { return ep.Persisted() })
				continue
			}
			s.b.Set(s.path(p), param)
		}
		s.b.WholeDocument().EntityParam(i, d.Role == criteria.RoleEntities)
		return nil
	}
	assigned := make(map[*schema.Property]bool)
	for i, d := range s.sig.Params {
		if s.used[i] {
			continue
		}
		if d.Role != criteria.RoleNone && d.Role != criteria.RoleID {
			return s.fail(d.Name, fmt.Sprintf("parameter %q with role %s cannot be inserted", d.Name, d.Role))
		}
		p := s.entity.Property(d.Name)
		switch {
		case p == nil:
			return s.fail(d.Name, fmt.Sprintf("cannot insert non-existent property %s", d.Name))
		case p.IsID && p.Generated:
			return s.fail(d.Name, fmt.Sprintf("cannot insert generated property %s", d.Name))
		case !p.Persisted():
			return s.fail(d.Name, fmt.Sprintf("cannot insert property %s", d.Name))
		}
		s.used[i] = true
		assigned[p] = true
		s.b.Set(s.path(p), s.param(i, d))
	}
	for _, p := range s.entity.Properties {
		if assigned[p] {
			continue
		}
		switch {
		case p.IsID && p.Generated && p.Type.Textual():
			s.b.Set(s.path(p), generated(p, criteria.AutoID))
		case p.IsVersion:
			s.b.Set(s.path(p), generated(p, criteria.AutoInitial))
		case p.AutoPopulated:
			s.b.Set(s.path(p), generated(p, criteria.AutoNow))
		}
	}
	return nil
}
