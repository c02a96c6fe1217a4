package finder

import (
	"fmt"
	"strings"

	"github.com/syssam/derive/criteria"
	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/field"
)

var ignoreCase = []string{"Ignore", "Case"}

// clause is a parsed predicate clause.
type clause struct {
	path *schema.Path
	op   op
	fold bool
	end  int // Index of the word following the clause.
}

// predicate parses the clauses following "By" and chains them left to right.
func (s *state) predicate(words []string) (criteria.Predicate, error) {
	var (
		where criteria.Predicate
		or    bool
	)
	for i := 0; ; {
		c, ok := s.parseClause(words, i)
		if !ok {
			return nil, s.fail(clauseToken(words, i), "cannot resolve clause")
		}
		p, err := s.build(c, strings.Join(words[i:c.end], ""))
		if err != nil {
			return nil, err
		}
		switch {
		case where == nil:
			where = p
		case or:
			where = criteria.Or(where, p)
		default:
			where = criteria.And(where, p)
		}
		if c.end == len(words) {
			return where, nil
		}
		or = words[c.end] == "Or"
		if i = c.end + 1; i == len(words) {
			return nil, s.fail(words[c.end], "missing clause after "+words[c.end])
		}
	}
}

// parseClause finds the longest property path starting at i followed by the
// longest operator suffix, an optional IgnoreCase and a clause boundary.
func (s *state) parseClause(words []string, i int) (clause, bool) {
	for k := len(words); k > i; k-- {
		path := resolve(s.entity, words[i:k], nil)
		if path == nil {
			continue
		}
		for _, sf := range suffixTable {
			if !wordsAt(words, k, sf.words) {
				continue
			}
			if end, fold, ok := boundary(words, k+len(sf.words)); ok {
				return clause{path: path, op: sf.op, fold: fold, end: end}, true
			}
		}
		if end, fold, ok := boundary(words, k); ok {
			return clause{path: path, op: opEq, fold: fold, end: end}, true
		}
	}
	return clause{}, false
}

func boundary(words []string, j int) (int, bool, bool) {
	fold := wordsAt(words, j, ignoreCase)
	if fold {
		j += len(ignoreCase)
	}
	if j == len(words) || words[j] == "And" || words[j] == "Or" {
		return j, fold, true
	}
	return 0, false, false
}

// clauseToken returns the words of the clause starting at i, up to the next
// conjunction.
func clauseToken(words []string, i int) string {
	j := i
	for j < len(words) && (j == i || (words[j] != "And" && words[j] != "Or")) {
		j++
	}
	return strings.Join(words[i:j], "")
}

func (s *state) build(c clause, token string) (criteria.Predicate, error) {
	t := c.path.Type()
	if (c.op.textual() || c.fold) && !t.Textual() {
		return nil, s.fail(token, fmt.Sprintf("%s of type %s is not a string", c.path, t))
	}
	if (c.op == opTrue || c.op == opFalse) && t != field.TypeBool {
		return nil, s.fail(token, fmt.Sprintf("%s of type %s is not a bool", c.path, t))
	}
	args := make([]*criteria.Param, c.op.arity())
	for n := range args {
		p, err := s.bind(c.path, c.op, token)
		if err != nil {
			return nil, err
		}
		args[n] = p
	}
	lhs := criteria.P(c.path)
	var pred criteria.Predicate
	switch c.op {
	case opEq:
		pred = &criteria.Comparison{Op: criteria.EQ, L: lhs, R: args[0], IgnoreCase: c.fold}
	case opNeq:
		pred = &criteria.Comparison{Op: criteria.NEQ, L: lhs, R: args[0], IgnoreCase: c.fold}
	case opGt:
		pred = criteria.Gt(lhs, args[0])
	case opGte:
		pred = criteria.Gte(lhs, args[0])
	case opLt:
		pred = criteria.Lt(lhs, args[0])
	case opLte:
		pred = criteria.Lte(lhs, args[0])
	case opLike, opNotLike, opIlike, opContains, opStarts, opEnds:
		like := criteria.Matches(lhs, args[0])
		like.Negated = c.op == opNotLike
		like.IgnoreCase = c.fold || c.op == opIlike
		switch c.op {
		case opContains:
			like.Mode = criteria.LikeContains
		case opStarts:
			like.Mode = criteria.LikeStarts
		case opEnds:
			like.Mode = criteria.LikeEnds
		}
		pred = like
	case opIn:
		pred = criteria.InList(lhs, args[0])
	case opNotIn:
		pred = criteria.NotInList(lhs, args[0])
	case opBetween:
		pred = criteria.Range(lhs, args[0], args[1])
	case opNotBetween:
		between := criteria.Range(lhs, args[0], args[1])
		between.Negated = true
		pred = between
	case opNull:
		pred = criteria.IsNull(lhs)
	case opNotNull:
		pred = criteria.NotNull(lhs)
	case opEmpty:
		pred = &criteria.EmptyCheck{L: lhs}
	case opNotEmpty:
		pred = &criteria.EmptyCheck{L: lhs, Negated: true}
	case opTrue:
		pred = criteria.Eq(lhs, criteria.Lit(true))
	case opFalse:
		pred = criteria.Eq(lhs, criteria.Lit(false))
	}
	if cmp, ok := pred.(*criteria.Comparison); ok && c.fold {
		cmp.IgnoreCase = true
	}
	return pred, nil
}

// bind consumes the parameter compared with path.
func (s *state) bind(path *schema.Path, o op, token string) (*criteria.Param, error) {
	i := s.pick(path.Property.Name)
	if i < 0 {
		return nil, s.fail(token, fmt.Sprintf("no parameter left for %s", path))
	}
	d := s.sig.Params[i]
	s.used[i] = true
	p := s.param(i, d)
	if o == opIn || o == opNotIn {
		p.Collection = true
		if d.Type == field.TypeStrings {
			p.Type = field.TypeString
		}
	} else if d.Collection {
		return nil, s.fail(token, fmt.Sprintf("parameter %q is a collection", d.Name))
	}
	if !path.Type().ComparableWith(p.Type) {
		return nil, s.fail(token, fmt.Sprintf("parameter %q of type %s cannot be compared with %s of type %s", d.Name, p.Type, path, path.Type()))
	}
	if a := path.Property.Assoc; a != nil && p.Type == field.TypeEntity {
		if a.Target.ID == nil {
			return nil, s.fail(token, fmt.Sprintf("%s has a composite identity", a.Target.Name))
		}
		p.Property = a.Target.ID.Name
	}
	return p, nil
}

// pick returns the index of the parameter to bind to the named property:
// an explicitly named parameter first, a parameter of the same name for
// updates, and otherwise the next unconsumed positional parameter.
func (s *state) pick(name string) int {
	params := s.sig.Params
	for i, d := range params {
		if !s.used[i] && bindable(d) && d.Named && d.Name == name {
			return i
		}
	}
	if s.kind == criteria.KindUpdate {
		for i, d := range params {
			if !s.used[i] && bindable(d) && d.Name == name {
				return i
			}
		}
	}
	for i, d := range params {
		if !s.used[i] && bindable(d) && !d.Named {
			return i
		}
	}
	for i, d := range params {
		if !s.used[i] && bindable(d) {
			return i
		}
	}
	return -1
}

func bindable(d criteria.ParamDecl) bool {
	switch d.Role {
	case criteria.RoleNone, criteria.RoleID, criteria.RoleVersion:
		return true
	default:
		return false
	}
}
