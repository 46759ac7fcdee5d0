package rdfgen

import (
	"strings"

	"github.com/cayleygraph/quad"
)

// ParsedSchema is the result of parsing a schema file, with every prefixed
// name expanded to a full IRI.
type ParsedSchema struct {
	Namespace string
	Prefixes  map[string]string
	Entities  []EntitySpec
}

// Entity returns the named entity spec.
func (s *ParsedSchema) Entity(name string) (*EntitySpec, bool) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// EntitySpec describes one entity block.
type EntitySpec struct {
	Name string
	// Class is the rdf:type IRI, or "".
	Class quad.IRI
	// IDPrefix overrides the canonical URI segment; nil keeps the default.
	IDPrefix   *string
	Properties []PropertySpec
}

// PropertySpec is one property line inside an entity block.
type PropertySpec struct {
	Name    string
	Path    *Path
	Many    bool
	Target  string
	Reverse string
	Kind    ValueKind
}

// Multiple reports whether the built field is multi-valued: declared many,
// or a path that is an alternative or chains through one.
func (p PropertySpec) Multiple() bool {
	return p.Many || p.Path.multiple()
}

// ValueKind is the Go representation of a raw (non-entity) property value.
type ValueKind string

// Value kinds accepted after "as".
const (
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindBool   ValueKind = "bool"
	KindTime   ValueKind = "time"
	KindValue  ValueKind = "value"
)

func validKind(k ValueKind) bool {
	switch k {
	case KindString, KindInt, KindFloat, KindBool, KindTime, KindValue:
		return true
	}
	return false
}

// PathKind distinguishes the nodes of a property path.
type PathKind int

const (
	// PathPredicate is a single predicate IRI.
	PathPredicate PathKind = iota
	// PathInverse traverses its only part backwards.
	PathInverse
	// PathSequence follows its parts in order.
	PathSequence
	// PathAlternative matches any of its parts.
	PathAlternative
)

// Path is a property path expression.
type Path struct {
	Kind  PathKind
	IRI   quad.IRI
	Parts []*Path
}

// String renders the path in SPARQL property-path syntax with full IRIs.
func (p *Path) String() string {
	switch p.Kind {
	case PathPredicate:
		return "<" + string(p.IRI) + ">"
	case PathInverse:
		return "^" + p.Parts[0].operand()
	case PathSequence:
		return joinPaths(p.Parts, "/")
	case PathAlternative:
		return joinPaths(p.Parts, "|")
	}
	return "?"
}

func (p *Path) multiple() bool {
	switch p.Kind {
	case PathAlternative:
		return true
	case PathSequence:
		for _, part := range p.Parts {
			if part.multiple() {
				return true
			}
		}
	}
	return false
}

func (p *Path) operand() string {
	if p.Kind == PathSequence || p.Kind == PathAlternative {
		return "(" + p.String() + ")"
	}
	return p.String()
}

func joinPaths(parts []*Path, sep string) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = p.operand()
	}
	return strings.Join(s, sep)
}
