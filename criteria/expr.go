package criteria

import (
	"fmt"
	"strconv"

	"github.com/syssam/derive/schema"
	"github.com/syssam/derive/schema/field"
)

// Expr is a scalar expression: a property path, a literal, a parameter
// reference, an arithmetic expression or a function call.
type Expr interface {
	fmt.Stringer
	expr()
}

// Prop references a property path.
type Prop struct {
	Path *schema.Path
}

// Literal is a constant inlined into the rendered query.
type Literal struct {
	Value any
}

// Auto is the auto-population rule attached to a parameter.
type Auto uint8

// Auto-population rules.
const (
	AutoNone      Auto = iota
	AutoID             // Generate an identifier when the argument has none.
	AutoNow            // Current time.
	AutoIncrement      // Previous version plus one, or the current time for temporal versions.
	AutoInitial        // Initial version: zero, or the current time for temporal versions.
)

// Param references a call-site value.
type Param struct {
	// Index is the position of the declared parameter, or -1 for parameters
	// resolved by Name only.
	Index int
	Name  string
	Type  field.Type
	// Collection marks a value expanded into one placeholder per element.
	Collection bool
	// Property selects a property of an entity-instance argument.
	Property string
	Auto     Auto
	// Target is the property the value is compared with or assigned to.
	Target *schema.Property
}

// ArithOp is a binary scalar operator.
type ArithOp uint8

// Scalar operators.
const (
	Add ArithOp = iota + 1
	Sub
	Mul
	Div
	Concat
)

// String returns the operator symbol.
func (o ArithOp) String() string {
	switch o {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Concat:
		return "||"
	default:
		return fmt.Sprintf("op(%d)", o)
	}
}

// Arith is a binary scalar expression.
type Arith struct {
	Op   ArithOp
	L, R Expr
}

// Neg is a unary minus.
type Neg struct {
	X Expr
}

// Fn is a function recognized by the renderers.
type Fn uint8

// Functions.
const (
	FnAbs Fn = iota + 1
	FnLength
	FnLower
	FnUpper
	FnLeft
	FnRight
)

var fnNames = map[Fn]string{
	FnAbs:    "abs",
	FnLength: "length",
	FnLower:  "lower",
	FnUpper:  "upper",
	FnLeft:   "left",
	FnRight:  "right",
}

// String returns the function name.
func (f Fn) String() string {
	if n, ok := fnNames[f]; ok {
		return n
	}
	return fmt.Sprintf("fn(%d)", f)
}

// Arity returns the number of arguments of the function.
func (f Fn) Arity() int {
	if f == FnLeft || f == FnRight {
		return 2
	}
	return 1
}

// LookupFn returns the function with the given lower-case name.
func LookupFn(name string) (Fn, bool) {
	for f, n := range fnNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// Func is a function call.
type Func struct {
	Fn   Fn
	Args []Expr
}

func (*Prop) expr()    {}
func (*Literal) expr() {}
func (*Param) expr()   {}
func (*Arith) expr()   {}
func (*Neg) expr()     {}
func (*Func) expr()    {}

// P returns a property expression.
func P(path *schema.Path) *Prop { return &Prop{Path: path} }

// Lit returns a literal expression.
func Lit(v any) *Literal { return &Literal{Value: v} }

// Arg returns a positional parameter reference.
func Arg(index int, name string, t field.Type) *Param {
	return &Param{Index: index, Name: name, Type: t}
}

// Named returns a parameter reference resolved by name only.
func Named(name string, t field.Type) *Param {
	return &Param{Index: -1, Name: name, Type: t}
}

// String implements fmt.Stringer.
func (e *Prop) String() string { return e.Path.String() }

// String implements fmt.Stringer.
func (e *Literal) String() string {
	switch v := e.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}

// Key identifies the value a parameter binds to. References with equal keys
// bind the same value.
func (e *Param) Key() string {
	return fmt.Sprintf("%d:%s:%s:%d", e.Index, e.Name, e.Property, e.Auto)
}

// String implements fmt.Stringer.
func (e *Param) String() string {
	var s string
	if e.Index >= 0 {
		s = "?" + strconv.Itoa(e.Index)
	} else {
		s = ":" + e.Name
	}
	if e.Property != "" {
		s += "." + e.Property
	}
	switch e.Auto {
	case AutoID:
		return "id(" + s + ")"
	case AutoNow:
		return "now()"
	case AutoIncrement:
		return "next(" + s + ")"
	case AutoInitial:
		return "initial(" + s + ")"
	}
	return s
}

// String implements fmt.Stringer.
func (e *Arith) String() string {
	return "(" + e.L.String() + " " + e.Op.String() + " " + e.R.String() + ")"
}

// String implements fmt.Stringer.
func (e *Neg) String() string { return "-" + e.X.String() }

// String implements fmt.Stringer.
func (e *Func) String() string {
	s := e.Fn.String() + "("
	for i, a := range e.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}
