package criteria

// WalkExpr calls fn for e and every sub-expression of e, depth first.
func WalkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch e := e.(type) {
	case *Arith:
		WalkExpr(e.L, fn)
		WalkExpr(e.R, fn)
	case *Neg:
		WalkExpr(e.X, fn)
	case *Func:
		for _, a := range e.Args {
			WalkExpr(a, fn)
		}
	}
}

// Walk calls fn for every expression of the predicate tree, in textual order.
func Walk(p Predicate, fn func(Expr)) {
	switch p := p.(type) {
	case nil:
	case *Comparison:
		WalkExpr(p.L, fn)
		WalkExpr(p.R, fn)
	case *Junction:
		for _, c := range p.Preds {
			Walk(c, fn)
		}
	case *Negation:
		Walk(p.P, fn)
	case *Like:
		WalkExpr(p.L, fn)
		WalkExpr(p.Pattern, fn)
	case *In:
		WalkExpr(p.L, fn)
		for _, it := range p.Items {
			WalkExpr(it, fn)
		}
	case *Between:
		WalkExpr(p.L, fn)
		WalkExpr(p.Lo, fn)
		WalkExpr(p.Hi, fn)
	case *NullCheck:
		WalkExpr(p.L, fn)
	case *EmptyCheck:
		WalkExpr(p.L, fn)
	}
}

// Conjuncts returns the top-level conjuncts of p.
func Conjuncts(p Predicate) []Predicate {
	switch p := p.(type) {
	case nil:
		return nil
	case *Junction:
		if !p.Or {
			return p.Preds
		}
	}
	return []Predicate{p}
}
