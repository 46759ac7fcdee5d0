package rdfmodel

import (
	"strconv"
	"time"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

// Lexical returns the lexical form of a term: the IRI string, the blank node
// label, or the literal text without annotations.
func Lexical(v quad.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case quad.IRI:
		return string(x)
	case quad.BNode:
		return string(x)
	case quad.String:
		return string(x)
	case quad.TypedString:
		return string(x.Value)
	case quad.LangString:
		return string(x.Value)
	case quad.Int:
		return strconv.FormatInt(int64(x), 10)
	case quad.Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case quad.Bool:
		return strconv.FormatBool(bool(x))
	case quad.Time:
		return time.Time(x).Format(time.RFC3339Nano)
	default:
		return v.String()
	}
}

// NativeValue converts a term to a Go value. Typed literals with XSD numeric,
// boolean, and date types are parsed; unparseable ones fall back to their
// lexical form. IRIs and blank nodes are returned as themselves.
func NativeValue(v quad.Value) any {
	switch x := v.(type) {
	case nil:
		return nil
	case quad.IRI, quad.BNode:
		return x
	case quad.String:
		return string(x)
	case quad.LangString:
		return string(x.Value)
	case quad.TypedString:
		return nativeTyped(string(x.Value), x.Type)
	default:
		return v.Native()
	}
}

func nativeTyped(lex string, dt quad.IRI) any {
	const xsd = "http://www.w3.org/2001/XMLSchema#"
	switch dt {
	case xsd + "integer", xsd + "int", xsd + "long", xsd + "short", xsd + "byte",
		xsd + "nonNegativeInteger", xsd + "positiveInteger", xsd + "unsignedInt",
		xsd + "unsignedLong", xsd + "negativeInteger", xsd + "nonPositiveInteger":
		if n, err := strconv.ParseInt(lex, 10, 64); err == nil {
			return n
		}
	case xsd + "double", xsd + "float", xsd + "decimal":
		if f, err := strconv.ParseFloat(lex, 64); err == nil {
			return f
		}
	case xsd + "boolean":
		if b, err := strconv.ParseBool(lex); err == nil {
			return b
		}
	case xsd + "dateTime":
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, lex); err == nil {
				return t
			}
		}
	case xsd + "date":
		if t, err := time.Parse("2006-01-02", lex); err == nil {
			return t
		}
	}
	return lex
}

// Literal converts a Go value into an RDF term suitable for bindings and filters.
func Literal(v any) quad.Value {
	return ast.ValueFromGo(v)
}
