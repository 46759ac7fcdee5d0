package ast

// RenameVars rewrites every variable in q, including those of nested groups,
// expressions, and sub-selects, to fn(v). Non-variable terms are untouched.
func RenameVars(q *SelectQuery, fn func(Var) Var) {
	r := renamer(fn)
	for i, v := range q.Variables {
		q.Variables[i] = r.projection(v)
	}
	q.Where = r.group(q.Where)
	for i, k := range q.GroupBy {
		q.GroupBy[i] = r.term(k)
	}
	for i, h := range q.Having {
		q.Having[i] = r.expr(h)
	}
	for i, o := range q.OrderBy {
		q.OrderBy[i].Expr = r.term(o.Expr)
	}
}

type renamer func(Var) Var

func (r renamer) projection(v any) any {
	if p, ok := v.(Projection); ok {
		return Projection{Expr: r.expr(p.Expr), As: r(p.As)}
	}
	return r.term(v)
}

func (r renamer) term(v any) any {
	switch t := v.(type) {
	case Var:
		return r(t)
	case Expr:
		return r.expr(t)
	default:
		return v
	}
}

func (r renamer) terms(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = r.term(v)
	}
	return out
}

func (r renamer) group(g Group) Group {
	out := Group{Patterns: make([]Pattern, len(g.Patterns))}
	for i, p := range g.Patterns {
		out.Patterns[i] = r.pattern(p)
	}
	return out
}

func (r renamer) pattern(p Pattern) Pattern {
	switch n := p.(type) {
	case Triple:
		return Triple{Subject: r.term(n.Subject), Predicate: r.term(n.Predicate), Object: r.term(n.Object)}
	case Group:
		return r.group(n)
	case Optional:
		return Optional{Group: r.group(n.Group)}
	case Union:
		alts := make([]Group, len(n.Alternatives))
		for i, a := range n.Alternatives {
			alts[i] = r.group(a)
		}
		return Union{Alternatives: alts}
	case Filter:
		return Filter{Expr: r.expr(n.Expr)}
	case SubSelect:
		if n.Query == nil {
			return n
		}
		inner := *n.Query
		inner.Variables = append([]any(nil), n.Query.Variables...)
		inner.GroupBy = append([]any(nil), n.Query.GroupBy...)
		inner.Having = append([]Expr(nil), n.Query.Having...)
		inner.OrderBy = append([]OrderCondition(nil), n.Query.OrderBy...)
		RenameVars(&inner, r)
		return SubSelect{Query: &inner}
	default:
		return p
	}
}

func (r renamer) expr(e Expr) Expr {
	switch n := e.(type) {
	case Compare:
		return Compare{Left: r.term(n.Left), Operator: n.Operator, Right: r.term(n.Right)}
	case Logical:
		ops := make([]Expr, len(n.Operands))
		for i, o := range n.Operands {
			ops[i] = r.expr(o)
		}
		return Logical{Operator: n.Operator, Operands: ops}
	case Not:
		return Not{Expr: r.expr(n.Expr)}
	case Bound:
		return Bound{Var: r(n.Var)}
	case Exists:
		return Exists{Group: r.group(n.Group), Negated: n.Negated}
	case FunctionCall:
		return FunctionCall{Function: n.Function, Args: r.terms(n.Args)}
	case Aggregate:
		return Aggregate{Function: n.Function, Distinct: n.Distinct, Arg: r.term(n.Arg)}
	default:
		return e
	}
}
