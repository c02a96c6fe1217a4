// Package finder derives criteria from method signatures such as
// findByNameAndAgeGreaterThan or deleteByProductNumLike.
//
// A method name is a verb, an optional subject, an optional predicate
// introduced by "By" and an optional ordering introduced by "OrderBy":
//
//	find Distinct Title By Author Name Like And Pages GreaterThan OrderBy Title Desc
//
// Clauses are joined left to right with And and Or. Every declared parameter
// must be consumed by a clause, an assignment or a role.
package finder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/derive"
	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/schema"
)

// Signature describes a method to derive criteria from.
type Signature struct {
	Method string
	Entity string
	Params []criteria.ParamDecl
}

// Matcher matches method signatures against a registry of entities. It is
// safe for concurrent use.
type Matcher struct {
	reg *schema.Registry
}

// New returns a matcher over the registry.
func New(reg *schema.Registry) *Matcher {
	return &Matcher{reg: reg}
}

// Match derives the criteria for the signature.
func (m *Matcher) Match(sig Signature) (*criteria.Query, error) {
	e, err := m.reg.Entity(sig.Entity)
	if err != nil {
		return nil, err
	}
	kind, rest, ok := verb(sig.Method)
	if !ok {
		return nil, derive.NewMethodMatchError(sig.Method, sig.Entity, sig.Method, "unknown verb")
	}
	s := &state{
		sig:    sig,
		entity: e,
		kind:   kind,
		used:   make([]bool, len(sig.Params)),
		b:      criteria.New(kind, e),
	}
	if err := s.match(splitWords(rest)); err != nil {
		return nil, err
	}
	for i, d := range sig.Params {
		if !s.used[i] {
			return nil, s.fail(d.Name, fmt.Sprintf("parameter %q is not used", d.Name))
		}
	}
	q, err := s.b.Build()
	if err != nil {
		return nil, s.fail("", err.Error())
	}
	return q, nil
}

// state carries a single match.
type state struct {
	sig    Signature
	entity *schema.Entity
	kind   criteria.Kind
	used   []bool
	b      *criteria.Builder
}

func (s *state) fail(token, reason string) error {
	return derive.NewMethodMatchError(s.sig.Method, s.sig.Entity, token, reason)
}

func (s *state) match(words []string) error {
	subject, pred, order := sections(words)
	for i, d := range s.sig.Params {
		if d.Role == criteria.RolePartitionKey {
			s.used[i] = true
			s.b.PartitionKey(s.param(i, d))
		}
	}
	if err := s.subject(subject); err != nil {
		return err
	}
	switch s.kind {
	case criteria.KindInsert:
		if len(pred) > 0 {
			return s.fail(strings.Join(pred, ""), "insert cannot have a predicate")
		}
		if len(order) > 0 {
			return s.fail("OrderBy", "insert cannot be ordered")
		}
		return s.insert()
	case criteria.KindDelete:
		if len(pred) == 0 {
			if i, ok := s.entityParam(); ok {
				return s.identity(i)
			}
		}
	case criteria.KindUpdate:
		if len(pred) == 0 {
			if i, ok := s.entityParam(); ok {
				return s.updateEntity(i)
			}
			if s.hasRole(criteria.RoleID) {
				return s.updateByID()
			}
			return s.fail("", "update requires a predicate, an identity or an entity parameter")
		}
	}
	if len(pred) > 0 {
		where, err := s.predicate(pred)
		if err != nil {
			return err
		}
		s.b.Where(where)
	}
	if err := s.order(order); err != nil {
		return err
	}
	if s.kind == criteria.KindUpdate {
		return s.assignRemaining()
	}
	return nil
}

// sections splits the words following the verb into subject, predicate and
// ordering.
func sections(words []string) (subject, pred, order []string) {
	by := -1
	for i, w := range words {
		if w == "By" {
			by = i
			break
		}
	}
	if by < 0 {
		return words, nil, nil
	}
	if by > 0 && words[by-1] == "Order" {
		return words[:by-1], nil, words[by+1:]
	}
	subject, rest := words[:by], words[by+1:]
	for j := 0; j+1 < len(rest); j++ {
		if rest[j] == "Order" && rest[j+1] == "By" {
			return subject, rest[:j], rest[j+2:]
		}
	}
	return subject, rest, nil
}

// subject applies the words between the verb and "By": All, Distinct,
// First, TopN and an optional projected property.
func (s *state) subject(words []string) error {
	i := 0
	for ; i < len(words); i++ {
		switch w := words[i]; {
		case w == "All" || w == "One":
		case w == "Distinct":
			if s.kind != criteria.KindQuery && s.kind != criteria.KindCount {
				return s.fail(w, fmt.Sprintf("%s cannot be distinct", s.kind))
			}
			s.b.Distinct()
		case w == "First":
			if s.kind != criteria.KindQuery {
				return s.fail(w, fmt.Sprintf("%s cannot be limited", s.kind))
			}
			s.b.Limit(1, 0)
		case strings.HasPrefix(w, "Top") && len(w) > 3:
			n, err := strconv.Atoi(w[3:])
			if err != nil || n <= 0 || s.kind != criteria.KindQuery {
				return s.fail(w, "invalid limit")
			}
			s.b.Limit(n, 0)
		default:
			return s.project(words[i:])
		}
	}
	return nil
}

func (s *state) project(words []string) error {
	token := strings.Join(words, "")
	if s.kind != criteria.KindQuery && s.kind != criteria.KindCount {
		return s.fail(token, fmt.Sprintf("%s cannot project a property", s.kind))
	}
	path := resolve(s.entity, words, nil)
	if path == nil {
		return s.fail(token, fmt.Sprintf("unknown property %s", decapitalize(token)))
	}
	if s.kind == criteria.KindCount {
		s.b.Count(path)
	} else {
		s.b.Select(path)
	}
	return nil
}

// order applies the words following "OrderBy".
func (s *state) order(words []string) error {
	for i := 0; i < len(words); {
		k := len(words)
		var path *schema.Path
		for ; k > i; k-- {
			if path = resolve(s.entity, words[i:k], nil); path != nil {
				break
			}
		}
		if path == nil {
			return s.fail(strings.Join(words[i:], ""), "unknown order property")
		}
		o := criteria.Order{Path: path}
		if k < len(words) && (words[k] == "Asc" || words[k] == "Desc") {
			o.Desc = words[k] == "Desc"
			k++
		}
		if k < len(words) && words[k] == "And" {
			k++
		}
		s.b.OrderBy(o)
		i = k
	}
	return nil
}

// resolve returns the path named by the concatenated words. Associations
// may be traversed by prefixing the leaf with association names, as in
// AuthorName or Address_City.
func resolve(e *schema.Entity, words []string, via []*schema.Property) *schema.Path {
	if len(words) == 0 {
		return nil
	}
	if p := lookup(e, words); p != nil {
		return &schema.Path{Root: root(e, via), Via: via, Property: p}
	}
	for k := len(words) - 1; k > 0; k-- {
		a := lookup(e, words[:k])
		if a == nil || a.Assoc == nil {
			continue
		}
		if path := resolve(a.Assoc.Target, words[k:], append(via[:len(via):len(via)], a)); path != nil {
			return path
		}
	}
	return nil
}

func root(e *schema.Entity, via []*schema.Property) *schema.Entity {
	if len(via) > 0 {
		return via[0].Owner
	}
	return e
}

func lookup(e *schema.Entity, words []string) *schema.Property {
	name := decapitalize(strings.Join(words, ""))
	if p := e.Property(name); p != nil {
		return p
	}
	return e.PropertyFold(name)
}

// entityParam returns the index of the single entity-instance parameter.
func (s *state) entityParam() (int, bool) {
	idx := -1
	for i, d := range s.sig.Params {
		if d.EntityInstance() {
			if idx >= 0 {
				return -1, false
			}
			idx = i
		}
	}
	return idx, idx >= 0
}

func (s *state) hasRole(r criteria.Role) bool {
	for _, d := range s.sig.Params {
		if d.Role == r {
			return true
		}
	}
	return false
}

// param returns a reference to the declared parameter at index i.
func (s *state) param(i int, d criteria.ParamDecl) *criteria.Param {
	return &criteria.Param{Index: i, Name: d.Name, Type: d.Type, Collection: d.Collection}
}
