package rdfmodel

import (
	"fmt"
	"sync/atomic"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

// Filter restricts the primary results of a QuerySet.
// Filters compose via And, Or, and Not to build complex patterns.
type Filter interface {
	// Apply adds the filter's patterns to g, constraining subject, an
	// instance of owner.
	Apply(g *ast.Group, owner *EntityType, subject ast.Var) error
}

// filterScopeCounter generates unique names for variables local to a filter
// so that sibling filters and union branches never share them. The planner
// renumbers them per query.
var filterScopeCounter atomic.Int64

func filterVar(name string) ast.Var {
	return ast.Var(fmt.Sprintf("f%d_%s", filterScopeCounter.Add(1), name))
}

func resolveFilterField(owner *EntityType, name string) (Field, error) {
	if owner == nil {
		return nil, &FieldError{Path: name, Message: "filters need an entity-typed result"}
	}
	f, ok := owner.Field(name)
	if !ok {
		return nil, &FieldError{TypeName: owner.name, Path: name, Message: "no such field"}
	}
	return f, nil
}

// --- Comparison filters ---

// ComparisonFilter compares a field value to a constant.
// Go strings compare against the lexical form so language tags are ignored.
type ComparisonFilter struct {
	Field string
	Op    string
	Value any
}

// Apply binds the field value and adds FILTER(value op constant).
func (f *ComparisonFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	field, err := resolveFilterField(owner, f.Field)
	if err != nil {
		return err
	}
	v := filterVar(f.Field)
	field.Compile(g, subject, v)
	g.Add(ast.Where(ast.Cmp(operand(v, f.Value), f.Op, filterTerm(f.Value))))
	return nil
}

// Eq creates an equality filter: field = value.
func Eq(field string, value any) Filter {
	return &ComparisonFilter{Field: field, Op: "=", Value: value}
}

// Neq creates a not-equal filter: field != value.
func Neq(field string, value any) Filter {
	return &ComparisonFilter{Field: field, Op: "!=", Value: value}
}

// Gt creates a greater-than filter: field > value.
func Gt(field string, value any) Filter {
	return &ComparisonFilter{Field: field, Op: ">", Value: value}
}

// Gte creates a greater-or-equal filter: field >= value.
func Gte(field string, value any) Filter {
	return &ComparisonFilter{Field: field, Op: ">=", Value: value}
}

// Lt creates a less-than filter: field < value.
func Lt(field string, value any) Filter {
	return &ComparisonFilter{Field: field, Op: "<", Value: value}
}

// Lte creates a less-or-equal filter: field <= value.
func Lte(field string, value any) Filter {
	return &ComparisonFilter{Field: field, Op: "<=", Value: value}
}

// --- Set membership filter ---

// InFilter checks whether a field value is one of a set of values.
type InFilter struct {
	Field  string
	Values []any
}

// Apply binds the field value and adds FILTER(v = a || v = b ...).
func (f *InFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	field, err := resolveFilterField(owner, f.Field)
	if err != nil {
		return err
	}
	if len(f.Values) == 0 {
		return fmt.Errorf("in filter on %q: no values", f.Field)
	}
	v := filterVar(f.Field)
	field.Compile(g, subject, v)
	alts := make([]ast.Expr, 0, len(f.Values))
	for _, val := range f.Values {
		alts = append(alts, ast.Cmp(operand(v, val), "=", filterTerm(val)))
	}
	g.Add(ast.Where(ast.AnyOf(alts...)))
	return nil
}

// In creates a filter that checks if a field value is in a set.
func In(field string, values ...any) Filter {
	return &InFilter{Field: field, Values: values}
}

// --- Range filter ---

// RangeFilter checks whether a field value falls between min and max (inclusive).
type RangeFilter struct {
	Field string
	Min   any
	Max   any
}

// Apply binds the field value and adds FILTER(v >= min && v <= max).
func (f *RangeFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	field, err := resolveFilterField(owner, f.Field)
	if err != nil {
		return err
	}
	v := filterVar(f.Field)
	field.Compile(g, subject, v)
	g.Add(ast.Where(ast.AllOf(
		ast.Cmp(operand(v, f.Min), ">=", filterTerm(f.Min)),
		ast.Cmp(operand(v, f.Max), "<=", filterTerm(f.Max)),
	)))
	return nil
}

// Range creates a filter that checks if a field value is between min and max (inclusive).
func Range(field string, min, max any) Filter {
	return &RangeFilter{Field: field, Min: min, Max: max}
}

// --- String filters ---

// StringFilter applies a string function to the lexical form of a field value.
type StringFilter struct {
	Field   string
	Func    string // CONTAINS, STRSTARTS, or REGEX
	Pattern string
	Flags   string
}

// Apply binds the field value and adds FILTER(FUNC(STR(v), pattern)).
func (f *StringFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	field, err := resolveFilterField(owner, f.Field)
	if err != nil {
		return err
	}
	v := filterVar(f.Field)
	field.Compile(g, subject, v)
	args := []any{ast.FuncCall("STR", v), quad.String(f.Pattern)}
	if f.Flags != "" {
		args = append(args, quad.String(f.Flags))
	}
	g.Add(ast.Where(ast.FuncCall(f.Func, args...)))
	return nil
}

// Contains creates a substring filter.
func Contains(field, substr string) Filter {
	return &StringFilter{Field: field, Func: "CONTAINS", Pattern: substr}
}

// Startswith creates a prefix filter.
func Startswith(field, prefix string) Filter {
	return &StringFilter{Field: field, Func: "STRSTARTS", Pattern: prefix}
}

// Regex creates a filter matching a field value against a regular expression.
// flags follows SPARQL REGEX, e.g. "i" for case-insensitive.
func Regex(field, pattern, flags string) Filter {
	return &StringFilter{Field: field, Func: "REGEX", Pattern: pattern, Flags: flags}
}

// --- Existence filter ---

// ExistsFilter checks whether a field has a value or not.
type ExistsFilter struct {
	Field   string
	Negated bool
}

// Apply adds the field pattern as required, or as OPTIONAL followed by
// FILTER(!BOUND(v)) when negated.
func (f *ExistsFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	field, err := resolveFilterField(owner, f.Field)
	if err != nil {
		return err
	}
	v := filterVar(f.Field)
	if !f.Negated {
		field.Compile(g, subject, v)
		return nil
	}
	var opt ast.Group
	field.Compile(&opt, subject, v)
	g.AddOptional(opt)
	g.Add(ast.Where(ast.Negate(ast.IsBound(v))))
	return nil
}

// HasField creates a field existence filter.
func HasField(field string) Filter {
	return &ExistsFilter{Field: field}
}

// MissingField creates a negated field existence filter.
func MissingField(field string) Filter {
	return &ExistsFilter{Field: field, Negated: true}
}

// --- Related-entity filter ---

// ThroughFilter applies inner to the entities reached over a field.
type ThroughFilter struct {
	Field string
	Inner Filter
}

// Apply binds the related entity and applies inner to it.
func (f *ThroughFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	field, err := resolveFilterField(owner, f.Field)
	if err != nil {
		return err
	}
	rt := field.ResultType()
	if rt == nil {
		return &FieldError{TypeName: owner.name, Path: f.Field, Message: "field has no result type"}
	}
	v := filterVar(f.Field)
	field.Compile(g, subject, v)
	return f.Inner.Apply(g, rt, v)
}

// Through creates a filter that matches entities with at least one related
// entity over field satisfying inner.
func Through(field string, inner Filter) Filter {
	return &ThroughFilter{Field: field, Inner: inner}
}

// --- Boolean combinators ---

// AndFilter combines multiple filters with AND (conjunction).
type AndFilter struct {
	Filters []Filter
}

// Apply applies every child filter to the same group.
func (f *AndFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	for _, child := range f.Filters {
		if err := child.Apply(g, owner, subject); err != nil {
			return err
		}
	}
	return nil
}

// And combines filters with logical AND.
func And(filters ...Filter) Filter {
	return &AndFilter{Filters: filters}
}

// OrFilter combines alternatives with OR (disjunction).
type OrFilter struct {
	Filters []Filter
}

// Apply emits one UNION branch per alternative.
func (f *OrFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	if len(f.Filters) == 0 {
		return fmt.Errorf("or filter with no alternatives")
	}
	u := ast.Union{}
	for _, child := range f.Filters {
		var branch ast.Group
		if err := child.Apply(&branch, owner, subject); err != nil {
			return err
		}
		u.Alternatives = append(u.Alternatives, branch)
	}
	g.Add(u)
	return nil
}

// Or combines filters with logical OR.
func Or(filters ...Filter) Filter {
	return &OrFilter{Filters: filters}
}

// NotFilter negates a filter expression.
type NotFilter struct {
	Inner Filter
}

// Apply wraps the inner patterns in FILTER NOT EXISTS { ... }.
func (f *NotFilter) Apply(g *ast.Group, owner *EntityType, subject ast.Var) error {
	var inner ast.Group
	if err := f.Inner.Apply(&inner, owner, subject); err != nil {
		return err
	}
	g.Add(ast.Where(ast.NotExists(inner.Patterns...)))
	return nil
}

// Not negates a filter.
func Not(filter Filter) Filter {
	return &NotFilter{Inner: filter}
}

// --- Helpers ---

// operand returns STR(v) for Go string constants, v otherwise.
func operand(v ast.Var, constant any) any {
	if _, ok := constant.(string); ok {
		return ast.FuncCall("STR", v)
	}
	return v
}

// filterTerm converts a constant to an RDF term. Entities compare by identity.
func filterTerm(v any) any {
	switch x := v.(type) {
	case *Entity:
		return x.ref
	case quad.Value:
		return x
	default:
		return Literal(x)
	}
}
