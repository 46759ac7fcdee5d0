package ast

import (
	"fmt"
	"time"

	"github.com/cayleygraph/quad"
)

// Select creates a SelectQuery projecting the given variables.
// Entries may be Var, Projection, or variable-name strings.
func Select(variables ...any) *SelectQuery {
	return &SelectQuery{Variables: variables}
}

// SelectDistinct creates a SELECT DISTINCT query.
func SelectDistinct(variables ...any) *SelectQuery {
	return &SelectQuery{Distinct: true, Variables: variables}
}

// Edge creates a Triple pattern.
func Edge(subject, predicate, object any) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

// All creates a Group requiring every pattern.
func All(patterns ...Pattern) Group {
	return Group{Patterns: patterns}
}

// Opt creates an OPTIONAL group.
func Opt(patterns ...Pattern) Optional {
	return Optional{Group: Group{Patterns: patterns}}
}

// Or creates a Union from multiple group alternatives.
// Each alternative is a group whose patterns must all match.
func Or(alternatives ...Group) Union {
	return Union{Alternatives: alternatives}
}

// Where creates a FILTER pattern.
func Where(expr Expr) Filter {
	return Filter{Expr: expr}
}

// Raw creates a verbatim pattern line.
func Raw(text string) RawPattern {
	return RawPattern{Text: text}
}

// Cmp creates a comparison expression.
func Cmp(left any, operator string, right any) Compare {
	return Compare{Left: left, Operator: operator, Right: right}
}

// AllOf joins expressions with &&.
func AllOf(exprs ...Expr) Logical {
	return Logical{Operator: "&&", Operands: exprs}
}

// AnyOf joins expressions with ||.
func AnyOf(exprs ...Expr) Logical {
	return Logical{Operator: "||", Operands: exprs}
}

// Negate wraps an expression in !( ).
func Negate(e Expr) Not {
	return Not{Expr: e}
}

// IsBound creates a BOUND(?v) test.
func IsBound(v Var) Bound {
	return Bound{Var: v}
}

// NotExists creates a NOT EXISTS { ... } test.
func NotExists(patterns ...Pattern) Exists {
	return Exists{Group: Group{Patterns: patterns}, Negated: true}
}

// FuncCall creates a FunctionCall expression.
func FuncCall(funcName string, args ...any) FunctionCall {
	return FunctionCall{Function: funcName, Args: args}
}

// Count creates a COUNT aggregate. A nil arg counts solutions.
func Count(arg any, distinct bool) Aggregate {
	return Aggregate{Function: "COUNT", Distinct: distinct, Arg: arg}
}

// Alias creates a projection (expr AS ?v).
func Alias(expr Expr, v Var) Projection {
	return Projection{Expr: expr, As: v}
}

// Asc creates an ascending ORDER BY key.
func Asc(key any) OrderCondition {
	return OrderCondition{Expr: key}
}

// Desc creates a descending ORDER BY key.
func Desc(key any) OrderCondition {
	return OrderCondition{Expr: key, Desc: true}
}

// ValueFromGo converts a Go value to an RDF term.
// Handles common types: string, integers, floats, bool, time.Time, and quad.Value.
// Falls back to a plain string literal for unknown types.
func ValueFromGo(val any) quad.Value {
	switch v := val.(type) {
	case nil:
		return quad.String("")
	case quad.Value:
		return v
	case string:
		return quad.String(v)
	case int:
		return quad.Int(v)
	case int8:
		return quad.Int(v)
	case int16:
		return quad.Int(v)
	case int32:
		return quad.Int(v)
	case int64:
		return quad.Int(v)
	case uint:
		return quad.Int(v)
	case uint8:
		return quad.Int(v)
	case uint16:
		return quad.Int(v)
	case uint32:
		return quad.Int(v)
	case uint64:
		return quad.TypedString{Value: quad.String(fmt.Sprintf("%d", v)), Type: XSDInteger}
	case float32:
		return quad.Float(v)
	case float64:
		return quad.Float(v)
	case bool:
		return quad.Bool(v)
	case time.Time:
		return quad.Time(v)
	default:
		return quad.String(fmt.Sprintf("%v", val))
	}
}
