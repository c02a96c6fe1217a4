package jdql

// StatementKind is the kind of a parsed statement.
type StatementKind uint8

// Statement kinds.
const (
	SelectStmt StatementKind = iota
	UpdateStmt
	DeleteStmt
)

// Statement is the concrete syntax tree of a query string.
type Statement struct {
	Kind   StatementKind
	Select *SelectClause // Nil when no SELECT clause was written.
	From   *FromClause   // Nil when the entity is implied.
	Set    []*SetItem
	Where  Node
	Order  []*OrderItem
}

// SelectClause is the select list.
type SelectClause struct {
	P        Pos
	Distinct bool
	Count    bool
	// Items holds the selected paths. For COUNT it holds the counted path,
	// or nothing for COUNT(THIS) and COUNT(*).
	Items []*Path
}

// FromClause names the root entity.
type FromClause struct {
	P      Pos
	Entity string
	Alias  string
}

// SetItem is an update assignment.
type SetItem struct {
	Path  *Path
	Value Node
}

// OrderItem is an ordering term.
type OrderItem struct {
	Path *Path
	Desc bool
}

// Node is a scalar expression or a condition.
type Node interface {
	Pos() Pos
}

type (
	// Path is a dotted property path.
	Path struct {
		P     Pos
		Parts []string
	}

	// Literal is a string, number, boolean or null constant.
	Literal struct {
		P     Pos
		Kind  TokenKind // String, Int, Float or Ident for TRUE, FALSE and NULL.
		Value string
	}

	// Param is a positional or named parameter.
	Param struct {
		P     Pos
		Index int // 1-based, zero for named parameters.
		Name  string
	}

	// Binary is an arithmetic or concatenation expression.
	Binary struct {
		P    Pos
		Op   TokenKind
		L, R Node
	}

	// Unary is a negated expression.
	Unary struct {
		P Pos
		X Node
	}

	// Call is a function call.
	Call struct {
		P    Pos
		Name string
		Args []Node
	}

	// Logical is an AND or OR of two conditions.
	Logical struct {
		P    Pos
		Or   bool
		L, R Node
	}

	// Not negates a condition.
	Not struct {
		P Pos
		X Node
	}

	// Compare is a comparison.
	Compare struct {
		P    Pos
		Op   TokenKind
		L, R Node
	}

	// Like is a LIKE predicate.
	Like struct {
		P       Pos
		X       Node
		Pattern Node
		Negated bool
	}

	// In is an IN predicate.
	In struct {
		P       Pos
		X       Node
		Items   []Node
		Negated bool
	}

	// Between is a BETWEEN predicate.
	Between struct {
		P       Pos
		X       Node
		Lo, Hi  Node
		Negated bool
	}

	// IsNull is an IS NULL predicate.
	IsNull struct {
		P       Pos
		X       Node
		Negated bool
	}
)

// Pos returns the position of the first token of the node.
func (n *Path) Pos() Pos    { return n.P }
func (n *Literal) Pos() Pos { return n.P }
func (n *Param) Pos() Pos   { return n.P }
func (n *Binary) Pos() Pos  { return n.P }
func (n *Unary) Pos() Pos   { return n.P }
func (n *Call) Pos() Pos    { return n.P }
func (n *Logical) Pos() Pos { return n.P }
func (n *Not) Pos() Pos     { return n.P }
func (n *Compare) Pos() Pos { return n.P }
func (n *Like) Pos() Pos    { return n.P }
func (n *In) Pos() Pos      { return n.P }
func (n *Between) Pos() Pos { return n.P }
func (n *IsNull) Pos() Pos  { return n.P }
