package criteria

import (
	"fmt"
	"strings"
)

// Predicate is a node of the predicate tree.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// Op is a comparison operator.
type Op uint8

// Comparison operators.
const (
	EQ Op = iota + 1
	NEQ
	GT
	GTE
	LT
	LTE
)

var opSymbols = [...]string{
	EQ:  "==",
	NEQ: "!=",
	GT:  ">",
	GTE: ">=",
	LT:  "<",
	LTE: "<=",
}

// String returns the operator symbol.
func (o Op) String() string {
	if o > 0 && int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// Comparison compares two expressions.
type Comparison struct {
	Op         Op
	L, R       Expr
	IgnoreCase bool
}

// Junction is a conjunction or a disjunction of predicates.
type Junction struct {
	Or    bool
	Preds []Predicate
}

// Negation negates a predicate.
type Negation struct {
	P Predicate
}

// LikeMode selects how a like pattern is interpreted.
type LikeMode uint8

// Like modes.
const (
	LikeRaw      LikeMode = iota // Pattern used as written.
	LikeContains                 // %value%
	LikeStarts                   // value%
	LikeEnds                     // %value
)

// Like matches a string expression against a pattern.
type Like struct {
	L, Pattern Expr
	Mode       LikeMode
	Negated    bool
	IgnoreCase bool
}

// In tests membership in a list. A single collection parameter may stand for
// the whole list.
type In struct {
	L       Expr
	Items   []Expr
	Negated bool
}

// Between tests an inclusive range.
type Between struct {
	L, Lo, Hi Expr
	Negated   bool
}

// NullCheck tests for null.
type NullCheck struct {
	L       Expr
	Negated bool
}

// EmptyCheck tests for null or an empty string.
type EmptyCheck struct {
	L       Expr
	Negated bool
}

func (*Comparison) predicate() {}
func (*Junction) predicate()   {}
func (*Negation) predicate()   {}
func (*Like) predicate()       {}
func (*In) predicate()         {}
func (*Between) predicate()    {}
func (*NullCheck) predicate()  {}
func (*EmptyCheck) predicate() {}

// Eq returns an equality comparison.
func Eq(l, r Expr) *Comparison { return &Comparison{Op: EQ, L: l, R: r} }

// Neq returns an inequality comparison.
func Neq(l, r Expr) *Comparison { return &Comparison{Op: NEQ, L: l, R: r} }

// Gt returns a greater-than comparison.
func Gt(l, r Expr) *Comparison { return &Comparison{Op: GT, L: l, R: r} }

// Gte returns a greater-than-or-equal comparison.
func Gte(l, r Expr) *Comparison { return &Comparison{Op: GTE, L: l, R: r} }

// Lt returns a less-than comparison.
func Lt(l, r Expr) *Comparison { return &Comparison{Op: LT, L: l, R: r} }

// Lte returns a less-than-or-equal comparison.
func Lte(l, r Expr) *Comparison { return &Comparison{Op: LTE, L: l, R: r} }

// And returns the conjunction of preds. Nil predicates are dropped, nested
// conjunctions are flattened and a single predicate is returned as is.
func And(preds ...Predicate) Predicate { return junction(false, preds) }

// Or returns the disjunction of preds, with the same simplifications as And.
func Or(preds ...Predicate) Predicate { return junction(true, preds) }

func junction(or bool, preds []Predicate) Predicate {
	var flat []Predicate
	for _, p := range preds {
		switch p := p.(type) {
		case nil:
		case *Junction:
			if p.Or == or {
				flat = append(flat, p.Preds...)
			} else {
				flat = append(flat, p)
			}
		default:
			flat = append(flat, p)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &Junction{Or: or, Preds: flat}
	}
}

// Not returns the negation of p.
func Not(p Predicate) Predicate { return &Negation{P: p} }

// Matches returns a like predicate using pattern as written.
func Matches(l, pattern Expr) *Like { return &Like{L: l, Pattern: pattern} }

// Contains returns a like predicate matching value anywhere in l.
func Contains(l, value Expr) *Like { return &Like{L: l, Pattern: value, Mode: LikeContains} }

// StartsWith returns a like predicate matching a prefix.
func StartsWith(l, value Expr) *Like { return &Like{L: l, Pattern: value, Mode: LikeStarts} }

// EndsWith returns a like predicate matching a suffix.
func EndsWith(l, value Expr) *Like { return &Like{L: l, Pattern: value, Mode: LikeEnds} }

// InList returns a membership predicate.
func InList(l Expr, items ...Expr) *In { return &In{L: l, Items: items} }

// NotInList returns a negated membership predicate.
func NotInList(l Expr, items ...Expr) *In { return &In{L: l, Items: items, Negated: true} }

// Range returns an inclusive range predicate.
func Range(l, lo, hi Expr) *Between { return &Between{L: l, Lo: lo, Hi: hi} }

// IsNull returns a null check.
func IsNull(l Expr) *NullCheck { return &NullCheck{L: l} }

// NotNull returns a negated null check.
func NotNull(l Expr) *NullCheck { return &NullCheck{L: l, Negated: true} }

// String implements fmt.Stringer.
func (p *Comparison) String() string {
	l, r := p.L.String(), p.R.String()
	if p.IgnoreCase {
		l, r = "lower("+l+")", "lower("+r+")"
	}
	return l + " " + p.Op.String() + " " + r
}

// String implements fmt.Stringer.
func (p *Junction) String() string {
	sep := " && "
	if p.Or {
		sep = " || "
	}
	parts := make([]string, len(p.Preds))
	for i, c := range p.Preds {
		if _, ok := c.(*Junction); ok {
			parts[i] = "(" + c.String() + ")"
		} else {
			parts[i] = c.String()
		}
	}
	return strings.Join(parts, sep)
}

// String implements fmt.Stringer.
func (p *Negation) String() string { return "!(" + p.P.String() + ")" }

// String implements fmt.Stringer.
func (p *Like) String() string {
	var name string
	switch p.Mode {
	case LikeContains:
		name = "contains"
	case LikeStarts:
		name = "has_prefix"
	case LikeEnds:
		name = "has_suffix"
	default:
		name = "like"
	}
	if p.IgnoreCase {
		name += "_fold"
	}
	s := name + "(" + p.L.String() + ", " + p.Pattern.String() + ")"
	if p.Negated {
		return "!" + s
	}
	return s
}

// String implements fmt.Stringer.
func (p *In) String() string {
	items := make([]string, len(p.Items))
	for i, it := range p.Items {
		items[i] = it.String()
	}
	op := " in "
	if p.Negated {
		op = " not in "
	}
	return p.L.String() + op + "[" + strings.Join(items, ",") + "]"
}

// String implements fmt.Stringer.
func (p *Between) String() string {
	s := "between(" + p.L.String() + ", " + p.Lo.String() + ", " + p.Hi.String() + ")"
	if p.Negated {
		return "!" + s
	}
	return s
}

// String implements fmt.Stringer.
func (p *NullCheck) String() string {
	if p.Negated {
		return p.L.String() + " != null"
	}
	return p.L.String() + " == null"
}

// String implements fmt.Stringer.
func (p *EmptyCheck) String() string {
	if p.Negated {
		return "!empty(" + p.L.String() + ")"
	}
	return "empty(" + p.L.String() + ")"
}
