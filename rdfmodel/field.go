// Package rdfmodel maps typed entities onto a remote RDF triple store.
//
// Entity types are declared once on a Schema as sets of property fields.
// A QuerySet describes which entities to fetch and which related fields to
// prefetch; realizing it plans one SPARQL query per multi-valued target,
// runs them, and rebuilds nested entities from the flat binding rows.
package rdfmodel

import (
	"fmt"
	"sync/atomic"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

// Cardinality says whether a field yields at most one value or any number.
type Cardinality int

const (
	// Single fields yield zero or one value per source.
	Single Cardinality = iota
	// Multiple fields yield any number of values per source.
	Multiple
)

func (c Cardinality) String() string {
	if c == Multiple {
		return "multiple"
	}
	return "single"
}

// Field describes how to reach a value or set of values from an entity.
// Fields are immutable after construction and safe to share.
type Field interface {
	// Compile adds the field's graph pattern between source and target to g.
	Compile(g *ast.Group, source, target ast.Var)
	// Wrap converts a matched value into the declared result type, or
	// returns it unchanged if the field has none.
	Wrap(v quad.Value) any
	// Cardinality reports whether the field is single- or multi-valued.
	Cardinality() Cardinality
	// ResultType is the entity type built for each match, or nil.
	ResultType() *EntityType
	// ReverseName is the name under which the inverse field is installed on
	// the result type, or "".
	ReverseName() string
}

// linkCounter mints unique intermediate variable names for chains. The
// planner renumbers them per query.
var linkCounter atomic.Int64

func freshLinkVar() ast.Var {
	return ast.Var(fmt.Sprintf("link_%d", linkCounter.Add(1)))
}

// Option configures a field at construction time.
type Option func(*fieldSpec)

// Many marks a field as multi-valued.
func Many() Option {
	return func(s *fieldSpec) { s.card = Multiple }
}

// Of sets the entity type constructed for each matched value.
func Of(t *EntityType) Option {
	return func(s *fieldSpec) { s.result = t }
}

// ReverseAs installs the inverse of the field on its result type under name.
func ReverseAs(name string) Option {
	return func(s *fieldSpec) { s.reverse = name }
}

type fieldSpec struct {
	card    Cardinality
	result  *EntityType
	reverse string
}

func newSpec(opts []Option) fieldSpec {
	var s fieldSpec
	for _, o := range opts {
		o(&s)
	}
	return s
}

func (s fieldSpec) Cardinality() Cardinality { return s.card }
func (s fieldSpec) ResultType() *EntityType  { return s.result }
func (s fieldSpec) ReverseName() string      { return s.reverse }

func (s fieldSpec) Wrap(v quad.Value) any {
	if v == nil {
		return nil
	}
	if s.result != nil {
		return s.result.New(v)
	}
	return v
}

// --- Direct ---

// DirectField is one edge: source predicate target.
type DirectField struct {
	fieldSpec
	Predicate quad.IRI
}

// Direct creates a field following predicate from subject to object.
func Direct(predicate quad.IRI, opts ...Option) *DirectField {
	return &DirectField{fieldSpec: newSpec(opts), Predicate: predicate}
}

// Compile emits (source, predicate, target).
func (f *DirectField) Compile(g *ast.Group, source, target ast.Var) {
	g.Add(ast.Edge(source, f.Predicate, target))
}

// --- Reversed ---

// ReversedField traverses an edge from object to subject.
type ReversedField struct {
	fieldSpec
	// Inner is the reversed field, or nil when Predicate is used directly.
	Inner     Field
	Predicate quad.IRI
}

// Reverse creates a field traversing x backwards. x is either a Field or a
// bare predicate (quad.IRI or IRI string).
func Reverse(x any, opts ...Option) *ReversedField {
	f := &ReversedField{fieldSpec: newSpec(opts)}
	switch v := x.(type) {
	case Field:
		f.Inner = v
	case quad.IRI:
		f.Predicate = v
	case string:
		f.Predicate = quad.IRI(v)
	default:
		panic(fmt.Sprintf("rdfmodel: cannot reverse %T", x))
	}
	return f
}

// Compile delegates to the inner field with source and target swapped, or
// emits (target, predicate, source).
func (f *ReversedField) Compile(g *ast.Group, source, target ast.Var) {
	if f.Inner != nil {
		f.Inner.Compile(g, target, source)
		return
	}
	g.Add(ast.Edge(target, f.Predicate, source))
}

// --- Chained ---

// ChainField follows a sequence of links, each link's target being the next
// link's source.
type ChainField struct {
	fieldSpec
	Links []Field
}

// Chain creates a field following links in order. The chain is multi-valued
// if any link is, and takes its result type from the final link unless Of
// overrides it. An empty chain is rejected when the field is attached.
func Chain(links []Field, opts ...Option) *ChainField {
	var s fieldSpec
	for _, l := range links {
		if l.Cardinality() == Multiple {
			s.card = Multiple
		}
	}
	if len(links) > 0 {
		s.result = links[len(links)-1].ResultType()
	}
	for _, o := range opts {
		o(&s)
	}
	return &ChainField{fieldSpec: s, Links: links}
}

// Compile threads a freshly named variable between consecutive links.
// Names are never reused, so a chain inside several union branches does not
// join the branches together.
func (f *ChainField) Compile(g *ast.Group, source, target ast.Var) {
	cur := source
	for i, link := range f.Links {
		next := target
		if i < len(f.Links)-1 {
			next = freshLinkVar()
		}
		link.Compile(g, cur, next)
		cur = next
	}
}

// --- Union ---

// UnionField matches any of several alternative fields. It is always
// multi-valued.
type UnionField struct {
	fieldSpec
	Alternatives []Field
}

// Union creates a field matching any alternative. Its result type is the one
// given with Of, otherwise the result type shared by every alternative.
func Union(alternatives []Field, opts ...Option) *UnionField {
	s := fieldSpec{result: commonResultType(alternatives)}
	for _, o := range opts {
		o(&s)
	}
	s.card = Multiple
	return &UnionField{fieldSpec: s, Alternatives: alternatives}
}

func commonResultType(fields []Field) *EntityType {
	if len(fields) == 0 {
		return nil
	}
	rt := fields[0].ResultType()
	for _, f := range fields[1:] {
		if f.ResultType() != rt {
			return nil
		}
	}
	return rt
}

// Compile emits one UNION branch per alternative, each in its own group.
func (f *UnionField) Compile(g *ast.Group, source, target ast.Var) {
	u := ast.Union{Alternatives: make([]ast.Group, 0, len(f.Alternatives))}
	for _, alt := range f.Alternatives {
		var branch ast.Group
		alt.Compile(&branch, source, target)
		u.Alternatives = append(u.Alternatives, branch)
	}
	g.Add(u)
}
