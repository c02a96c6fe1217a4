package jdql

import (
	"fmt"
	"strconv"

	"github.com/syssam/derive"
)

// parser is a recursive-descent parser over a token slice. Failed
// alternatives rewind pos; the error reported is the one that got furthest.
type parser struct {
	src  string
	toks []Token
	pos  int
	err  *derive.QueryParseError
	at   int // Token index of err.
}

// Parse parses a query string into its concrete syntax tree.
//
//	statement := select | update | delete
//	select    := [SELECT [DISTINCT] items] [FROM entity [[AS] alias]] [WHERE cond] [ORDER BY order {, order}]
//	update    := UPDATE entity [[AS] alias] SET path = scalar {, path = scalar} [WHERE cond]
//	delete    := DELETE [FROM] entity [[AS] alias] [WHERE cond]
func Parse(src string) (*Statement, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	st, err := p.statement()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind != EOF {
		return nil, p.fail(t, "extraneous input")
	}
	return st, nil
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

// fail records an error at t and returns the furthest error seen.
func (p *parser) fail(t Token, format string, args ...any) error {
	idx := p.index(t)
	if p.err == nil || idx >= p.at {
		msg := fmt.Sprintf(format, args...)
		if t.Kind == EOF {
			msg += " at end of input"
		}
		p.err = derive.NewQueryParseError(p.src, t.Pos.Line, t.Pos.Column, t.display(), msg)
		p.at = idx
	}
	return p.err
}

func (p *parser) index(t Token) int {
	for i := range p.toks {
		if p.toks[i].Pos == t.Pos {
			return i
		}
	}
	return p.pos
}

func (p *parser) keyword(kw string) bool {
	if p.peek().Is(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.keyword(kw) {
		return p.fail(p.peek(), "expected %s", kw)
	}
	return nil
}

func (p *parser) accept(k TokenKind) bool {
	if p.peek().Kind == k {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(k TokenKind) (Token, error) {
	t := p.peek()
	if t.Kind != k {
		return t, p.fail(t, "expected '%s'", k)
	}
	return p.next(), nil
}

func (p *parser) statement() (*Statement, error) {
	switch t := p.peek(); {
	case t.Is("UPDATE"):
		return p.update()
	case t.Is("DELETE"):
		return p.delete()
	default:
		return p.query()
	}
}

func (p *parser) query() (*Statement, error) {
	st := &Statement{Kind: SelectStmt}
	var err error
	if t := p.peek(); t.Is("SELECT") {
		p.next()
		if st.Select, err = p.selectList(t.Pos); err != nil {
			return nil, err
		}
	}
	if p.keyword("FROM") {
		if st.From, err = p.from(); err != nil {
			return nil, err
		}
	}
	if st.Where, err = p.where(); err != nil {
		return nil, err
	}
	if p.keyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			path, err := p.path()
			if err != nil {
				return nil, err
			}
			item := &OrderItem{Path: path}
			if p.keyword("DESC") {
				item.Desc = true
			} else {
				p.keyword("ASC")
			}
			st.Order = append(st.Order, item)
			if !p.accept(Comma) {
				break
			}
		}
	}
	return st, nil
}

func (p *parser) selectList(pos Pos) (*SelectClause, error) {
	sel := &SelectClause{P: pos}
	sel.Distinct = p.keyword("DISTINCT")
	if p.keyword("COUNT") {
		sel.Count = true
		if _, err := p.expect(LParen); err != nil {
			return nil, err
		}
		if p.keyword("DISTINCT") {
			sel.Distinct = true
		}
		switch t := p.peek(); {
		case t.Kind == Star:
			p.next()
		case t.Is("THIS"):
			p.next()
		default:
			path, err := p.path()
			if err != nil {
				return nil, err
			}
			sel.Items = append(sel.Items, path)
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return sel, nil
	}
	for {
		path, err := p.path()
		if err != nil {
			return nil, err
		}
		sel.Items = append(sel.Items, path)
		if !p.accept(Comma) {
			return sel, nil
		}
	}
}

func (p *parser) from() (*FromClause, error) {
	t := p.peek()
	if t.Kind != Ident || isKeyword(t.Text) {
		return nil, p.fail(t, "expected entity name")
	}
	p.next()
	f := &FromClause{P: t.Pos, Entity: t.Text}
	explicit := p.keyword("AS")
	if a := p.peek(); a.Kind == Ident && !isKeyword(a.Text) {
		p.next()
		f.Alias = a.Text
	} else if explicit {
		return nil, p.fail(a, "expected alias")
	}
	return f, nil
}

func (p *parser) where() (Node, error) {
	if !p.keyword("WHERE") {
		return nil, nil
	}
	return p.cond()
}

func (p *parser) update() (*Statement, error) {
	p.next()
	st := &Statement{Kind: UpdateStmt}
	var err error
	if st.From, err = p.from(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	for {
		path, err := p.path()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(EQ); err != nil {
			return nil, err
		}
		v, err := p.scalar()
		if err != nil {
			return nil, err
		}
		st.Set = append(st.Set, &SetItem{Path: path, Value: v})
		if !p.accept(Comma) {
			break
		}
	}
	if st.Where, err = p.where(); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *parser) delete() (*Statement, error) {
	p.next()
	st := &Statement{Kind: DeleteStmt}
	var err error
	if p.keyword("FROM") || (p.peek().Kind == Ident && !isKeyword(p.peek().Text)) {
		if st.From, err = p.from(); err != nil {
			return nil, err
		}
	}
	if st.Where, err = p.where(); err != nil {
		return nil, err
	}
	return st, nil
}

// cond := and {OR and}
func (p *parser) cond() (Node, error) {
	l, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().Is("OR") {
		t := p.next()
		r, err := p.and()
		if err != nil {
			return nil, err
		}
		l = &Logical{P: t.Pos, Or: true, L: l, R: r}
	}
	return l, nil
}

// and := not {AND not}
func (p *parser) and() (Node, error) {
	l, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.peek().Is("AND") {
		t := p.next()
		r, err := p.not()
		if err != nil {
			return nil, err
		}
		l = &Logical{P: t.Pos, L: l, R: r}
	}
	return l, nil
}

// not := NOT not | '(' cond ')' | predicate
func (p *parser) not() (Node, error) {
	t := p.peek()
	if t.Is("NOT") {
		p.next()
		x, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Not{P: t.Pos, X: x}, nil
	}
	if t.Kind == LParen {
		mark := p.pos
		p.next()
		if c, err := p.cond(); err == nil {
			if _, err := p.expect(RParen); err == nil {
				return c, nil
			}
		}
		// Not a parenthesized condition: retry as a scalar in parentheses.
		p.pos = mark
		n, err := p.predicate()
		if err != nil {
			return nil, err
		}
		p.err = nil
		return n, nil
	}
	return p.predicate()
}

// predicate := scalar (cmp scalar | [NOT] LIKE scalar | [NOT] IN list |
// [NOT] BETWEEN scalar AND scalar | IS [NOT] NULL)
func (p *parser) predicate() (Node, error) {
	x, err := p.scalar()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	switch t.Kind {
	case EQ, NEQ, GT, GTE, LT, LTE:
		p.next()
		r, err := p.scalar()
		if err != nil {
			return nil, err
		}
		return &Compare{P: x.Pos(), Op: t.Kind, L: x, R: r}, nil
	}
	if t.Is("IS") {
		p.next()
		n := &IsNull{P: x.Pos(), X: x, Negated: p.keyword("NOT")}
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return n, nil
	}
	negated := p.keyword("NOT")
	switch t := p.peek(); {
	case t.Is("LIKE"):
		p.next()
		pattern, err := p.scalar()
		if err != nil {
			return nil, err
		}
		return &Like{P: x.Pos(), X: x, Pattern: pattern, Negated: negated}, nil
	case t.Is("IN"):
		p.next()
		items, err := p.list()
		if err != nil {
			return nil, err
		}
		return &In{P: x.Pos(), X: x, Items: items, Negated: negated}, nil
	case t.Is("BETWEEN"):
		p.next()
		lo, err := p.scalar()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		hi, err := p.scalar()
		if err != nil {
			return nil, err
		}
		return &Between{P: x.Pos(), X: x, Lo: lo, Hi: hi, Negated: negated}, nil
	default:
		if negated {
			return nil, p.fail(t, "expected LIKE, IN or BETWEEN")
		}
		return nil, p.fail(t, "expected comparison operator")
	}
}

// list := '(' scalar {, scalar} ')' | param
func (p *parser) list() ([]Node, error) {
	if t := p.peek(); t.Kind == PosParam || t.Kind == NamedParam {
		n, err := p.primary()
		if err != nil {
			return nil, err
		}
		return []Node{n}, nil
	}
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	var items []Node
	for {
		n, err := p.scalar()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		if !p.accept(Comma) {
			break
		}
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	return items, nil
}

// scalar := term {(+ | - | ||) term}
func (p *parser) scalar() (Node, error) {
	l, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != Plus && t.Kind != Minus && t.Kind != Concat {
			return l, nil
		}
		p.next()
		r, err := p.term()
		if err != nil {
			return nil, err
		}
		l = &Binary{P: l.Pos(), Op: t.Kind, L: l, R: r}
	}
}

// term := factor {(* | /) factor}
func (p *parser) term() (Node, error) {
	l, err := p.factor()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.Kind != Star && t.Kind != Slash {
			return l, nil
		}
		p.next()
		r, err := p.factor()
		if err != nil {
			return nil, err
		}
		l = &Binary{P: l.Pos(), Op: t.Kind, L: l, R: r}
	}
}

// factor := - factor | primary
func (p *parser) factor() (Node, error) {
	if t := p.peek(); t.Kind == Minus {
		p.next()
		x, err := p.factor()
		if err != nil {
			return nil, err
		}
		return &Unary{P: t.Pos, X: x}, nil
	}
	return p.primary()
}

// primary := literal | param | function '(' args ')' | path | '(' scalar ')'
func (p *parser) primary() (Node, error) {
	t := p.peek()
	switch t.Kind {
	case String, Int, Float:
		p.next()
		return &Literal{P: t.Pos, Kind: t.Kind, Value: t.Text}, nil
	case PosParam:
		p.next()
		n, err := strconv.Atoi(t.Text)
		if err != nil || n < 1 {
			return nil, p.fail(t, "positional parameters start at ?1")
		}
		return &Param{P: t.Pos, Index: n}, nil
	case NamedParam:
		p.next()
		return &Param{P: t.Pos, Name: t.Text}, nil
	case LParen:
		p.next()
		x, err := p.scalar()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return x, nil
	case Ident:
		switch {
		case t.Is("TRUE"), t.Is("FALSE"), t.Is("NULL"):
			p.next()
			return &Literal{P: t.Pos, Kind: Ident, Value: t.Text}, nil
		case isKeyword(t.Text):
			return nil, p.fail(t, "expected expression")
		case p.toks[p.pos+1].Kind == LParen:
			return p.call()
		}
		return p.path()
	}
	return nil, p.fail(t, "expected expression")
}

func (p *parser) call() (Node, error) {
	t := p.next()
	p.next()
	c := &Call{P: t.Pos, Name: t.Text}
	if p.accept(RParen) {
		return c, nil
	}
	for {
		a, err := p.scalar()
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, a)
		if !p.accept(Comma) {
			break
		}
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	return c, nil
}

// path := ident {. ident}
func (p *parser) path() (*Path, error) {
	t := p.peek()
	if t.Kind != Ident || isKeyword(t.Text) {
		return nil, p.fail(t, "expected property path")
	}
	p.next()
	path := &Path{P: t.Pos, Parts: []string{t.Text}}
	for p.peek().Kind == Dot {
		p.next()
		s := p.peek()
		if s.Kind != Ident {
			return nil, p.fail(s, "expected property name")
		}
		p.next()
		path.Parts = append(path.Parts, s.Text)
	}
	return path, nil
}
