// Package ast defines the Abstract Syntax Tree (AST) for SPARQL SELECT queries.
//
// It decouples query construction from string formatting, providing a
// structured way to build graph-pattern queries programmatically. Nodes know
// nothing about entity schemas; the rdfmodel package builds trees out of them.
package ast

import "github.com/cayleygraph/quad"

// QueryNode is the marker interface for all AST nodes.
type QueryNode interface {
	queryNode()
}

// --- Terms ---

// Var is a named query variable. It renders as ?name.
type Var string

func (Var) queryNode() {}

// Name returns the variable name without the leading question mark.
func (v Var) Name() string { return string(v) }

// Term positions (triple slots, expression operands, projections) accept any of:
//   - Var
//   - quad.Value (IRI, BNode, String, TypedString, LangString, Int, Float, Bool, Time)
//   - Expr (only in expression positions)
//   - string, rendered verbatim (prefixed names, "a", pre-formatted terms)
//   - other Go scalars, converted with ValueFromGo

// --- Patterns ---

// Pattern is the marker interface for elements of a group graph pattern.
type Pattern interface {
	QueryNode
	pattern()
}

// Triple is a single subject-predicate-object pattern.
type Triple struct {
	Subject   any
	Predicate any
	Object    any
}

func (Triple) queryNode() {}
func (Triple) pattern()   {}

// Group is a brace-delimited group graph pattern. Every child must match.
type Group struct {
	Patterns []Pattern
}

func (Group) queryNode() {}
func (Group) pattern()   {}

// Add appends a required child pattern.
func (g *Group) Add(p Pattern) {
	g.Patterns = append(g.Patterns, p)
}

// AddOptional appends p wrapped in an OPTIONAL group.
func (g *Group) AddOptional(p Pattern) {
	if grp, ok := p.(Group); ok {
		g.Patterns = append(g.Patterns, Optional{Group: grp})
		return
	}
	g.Patterns = append(g.Patterns, Optional{Group: Group{Patterns: []Pattern{p}}})
}

// Len returns the number of direct children.
func (g Group) Len() int { return len(g.Patterns) }

// Optional is an OPTIONAL { ... } group.
type Optional struct {
	Group Group
}

func (Optional) queryNode() {}
func (Optional) pattern()   {}

// Union is an alternation of groups: { a } UNION { b } UNION ...
type Union struct {
	Alternatives []Group
}

func (Union) queryNode() {}
func (Union) pattern()   {}

// Filter restricts solutions with a boolean expression.
type Filter struct {
	Expr Expr
}

func (Filter) queryNode() {}
func (Filter) pattern()   {}

// RawPattern is emitted verbatim as one line of the enclosing group.
type RawPattern struct {
	Text string
}

func (RawPattern) queryNode() {}
func (RawPattern) pattern()   {}

// SubSelect nests a SELECT inside a group: { SELECT ... }. Only its
// projected variables are visible to the enclosing pattern.
type SubSelect struct {
	Query *SelectQuery
}

func (SubSelect) queryNode() {}
func (SubSelect) pattern()   {}

// --- Expressions ---

// Expr is the marker interface for FILTER, ORDER BY and projection expressions.
type Expr interface {
	QueryNode
	expr()
}

// Compare is a binary comparison such as ?x > 3 or ?a = ?b.
type Compare struct {
	Left     any
	Operator string
	Right    any
}

func (Compare) queryNode() {}
func (Compare) expr()      {}

// Logical joins operands with && or ||.
type Logical struct {
	Operator string
	Operands []Expr
}

func (Logical) queryNode() {}
func (Logical) expr()      {}

// Not negates an expression.
type Not struct {
	Expr Expr
}

func (Not) queryNode() {}
func (Not) expr()      {}

// Bound tests whether a variable has a value in the current solution.
type Bound struct {
	Var Var
}

func (Bound) queryNode() {}
func (Bound) expr()      {}

// Exists tests whether a group matches: EXISTS { ... } or NOT EXISTS { ... }.
type Exists struct {
	Group   Group
	Negated bool
}

func (Exists) queryNode() {}
func (Exists) expr()      {}

// FunctionCall is a builtin or IRI-named function call, e.g. REGEX(?x, "a", "i").
type FunctionCall struct {
	// Function is the function name (STR, LANG, REGEX, CONTAINS, ...).
	Function string
	// Args are term-position operands.
	Args []any
}

func (FunctionCall) queryNode() {}
func (FunctionCall) expr()      {}

// Aggregate is COUNT/SUM/MIN/MAX/AVG/SAMPLE over an operand. A nil Arg renders as *.
type Aggregate struct {
	Function string
	Distinct bool
	Arg      any
}

func (Aggregate) queryNode() {}
func (Aggregate) expr()      {}

// --- Query ---

// Projection is a projected expression: (expr AS ?var).
type Projection struct {
	Expr Expr
	As   Var
}

func (Projection) queryNode() {}

// OrderCondition is one ORDER BY key.
type OrderCondition struct {
	Expr any
	Desc bool
}

func (OrderCondition) queryNode() {}

// Prefix declares a PREFIX name: <iri> line.
type Prefix struct {
	Name string
	IRI  quad.IRI
}

func (Prefix) queryNode() {}

// SelectQuery is a complete SELECT query with exactly one root group.
type SelectQuery struct {
	Prefixes []Prefix
	Distinct bool
	Reduced  bool
	// Variables holds Var or Projection entries. Empty renders SELECT *.
	Variables []any
	Where     Group
	GroupBy   []any
	Having    []Expr
	OrderBy   []OrderCondition
	// Limit and Offset are omitted when zero.
	Limit  int
	Offset int
}

func (SelectQuery) queryNode() {}

// Append adds a triple or subgroup to the root group, wrapped in OPTIONAL
// when optional is true.
func (q *SelectQuery) Append(p Pattern, optional bool) *SelectQuery {
	if optional {
		q.Where.AddOptional(p)
	} else {
		q.Where.Add(p)
	}
	return q
}

// Project appends result variables or projections.
func (q *SelectQuery) Project(vars ...any) *SelectQuery {
	q.Variables = append(q.Variables, vars...)
	return q
}

// ProjectedVars returns the variable names the query yields, in order.
func (q *SelectQuery) ProjectedVars() []string {
	names := make([]string, 0, len(q.Variables))
	for _, v := range q.Variables {
		switch p := v.(type) {
		case Var:
			names = append(names, string(p))
		case Projection:
			names = append(names, string(p.As))
		case string:
			names = append(names, trimVar(p))
		}
	}
	return names
}

func trimVar(s string) string {
	if len(s) > 0 && (s[0] == '?' || s[0] == '$') {
		return s[1:]
	}
	return s
}
