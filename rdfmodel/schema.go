package rdfmodel

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cayleygraph/quad"
)

// RDFType is the rdf:type predicate.
const RDFType = quad.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")

// Reserved declaration keys.
const (
	// KeyRDFType configures the class IRI used to find all instances of a type.
	KeyRDFType = "rdf_type"
	// KeyIDPrefix overrides the path segment between the namespace and the
	// numeric id of canonical instance URIs.
	KeyIDPrefix = "id_prefix"
)

// PathSeparator joins segments of an extra-field path.
const PathSeparator = "__"

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z]([A-Za-z0-9_]*[A-Za-z0-9])?$`)

// Decl is a bare declaration: field name to Field, predicate IRI, or one of
// the reserved keys.
type Decl map[string]any

// Schema holds a set of entity types sharing one URI namespace.
type Schema struct {
	mu        sync.RWMutex
	namespace string
	types     map[string]*EntityType
}

// NewSchema creates an empty schema whose canonical instance URIs start with namespace.
func NewSchema(namespace string) *Schema {
	return &Schema{namespace: namespace, types: make(map[string]*EntityType)}
}

// Namespace returns the schema's URI namespace.
func (s *Schema) Namespace() string { return s.namespace }

// Define returns the named type, creating an empty one if needed. Use it to
// reference a type before declaring its fields.
func (s *Schema) Define(name string) *EntityType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.types[name]; ok {
		return t
	}
	t := &EntityType{
		schema:   s,
		name:     name,
		idPrefix: strings.ToLower(name) + "/",
		fields:   make(map[string]Field),
	}
	s.types[name] = t
	return t
}

// Declare runs the one-time declaration pass for a type: bare predicates
// become single-valued Direct fields, Field values are attached as given,
// and reserved keys configure the type itself.
func (s *Schema) Declare(name string, decl Decl) (*EntityType, error) {
	t := s.Define(name)

	keys := make([]string, 0, len(decl))
	for k := range decl {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := decl[k]
		switch k {
		case KeyRDFType:
			iri, err := toIRI(v)
			if err != nil {
				return nil, &DeclarationError{TypeName: name, Field: k, Message: err.Error()}
			}
			t.mu.Lock()
			t.class = iri
			t.mu.Unlock()
		case KeyIDPrefix:
			p, ok := v.(string)
			if !ok {
				return nil, &DeclarationError{TypeName: name, Field: k, Message: fmt.Sprintf("expected string, got %T", v)}
			}
			t.mu.Lock()
			t.idPrefix = p
			t.mu.Unlock()
		default:
			if err := t.Attach(k, v); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// MustDeclare is like Declare but panics on error.
// It is intended for package-level schema setup.
func (s *Schema) MustDeclare(name string, decl Decl) *EntityType {
	t, err := s.Declare(name, decl)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns a declared type by name.
func (s *Schema) Lookup(name string) (*EntityType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

// Types returns every type in the schema sorted by name.
func (s *Schema) Types() []*EntityType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EntityType, 0, len(s.types))
	for _, t := range s.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func toIRI(v any) (quad.IRI, error) {
	switch x := v.(type) {
	case quad.IRI:
		return x, nil
	case string:
		if !strings.Contains(x, ":") {
			return "", fmt.Errorf("%q is not an IRI", x)
		}
		return quad.IRI(x), nil
	default:
		return "", fmt.Errorf("expected IRI, got %T", v)
	}
}

// EntityType is a declared kind of entity: a class IRI, an id scheme, and a
// set of named fields.
type EntityType struct {
	schema   *Schema
	name     string
	mu       sync.RWMutex
	class    quad.IRI
	idPrefix string
	fields   map[string]Field
}

// Name returns the type name.
func (t *EntityType) Name() string { return t.name }

// Class returns the rdf:type IRI, or "" if none was declared.
func (t *EntityType) Class() quad.IRI {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.class
}

// Attach adds a field to the type. v is a Field or a bare predicate IRI.
// If the field has both a result type and a reverse name, the inverse field
// is installed on the result type unless that name is already taken there.
func (t *EntityType) Attach(name string, v any) error {
	if err := validateFieldName(name); err != nil {
		return &DeclarationError{TypeName: t.name, Field: name, Message: err.Error()}
	}

	var f Field
	switch x := v.(type) {
	case Field:
		f = x
	default:
		iri, err := toIRI(v)
		if err != nil {
			return &DeclarationError{TypeName: t.name, Field: name, Message: err.Error()}
		}
		f = Direct(iri)
	}
	if err := validateField(f); err != nil {
		return &DeclarationError{TypeName: t.name, Field: name, Message: err.Error()}
	}

	rt, rev := f.ResultType(), f.ReverseName()
	if rt != nil && rev != "" {
		if err := validateFieldName(rev); err != nil {
			return &DeclarationError{TypeName: rt.name, Field: rev, Message: err.Error()}
		}
	}

	t.mu.Lock()
	if _, exists := t.fields[name]; exists {
		t.mu.Unlock()
		return &DeclarationError{TypeName: t.name, Field: name, Message: "already declared"}
	}
	t.fields[name] = f
	t.mu.Unlock()

	if rt != nil && rev != "" {
		rt.installReverse(rev, Reverse(f, Many(), Of(t)))
	}
	return nil
}

// installReverse adds f under name unless the name is already present.
func (t *EntityType) installReverse(name string, f Field) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.fields[name]; exists {
		return
	}
	t.fields[name] = f
}

// Field returns the named field.
func (t *EntityType) Field(name string) (Field, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.fields[name]
	return f, ok
}

// FieldNames returns the declared field names in sorted order.
func (t *EntityType) FieldNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.fields))
	for n := range t.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// URIFor returns the canonical URI of the instance with the given id.
func (t *EntityType) URIFor(id int64) quad.IRI {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return quad.IRI(t.schema.namespace + t.idPrefix + strconv.FormatInt(id, 10))
}

// IDFromURI extracts the numeric id from a canonical URI.
func (t *EntityType) IDFromURI(uri string) (int64, bool) {
	t.mu.RLock()
	prefix := t.schema.namespace + t.idPrefix
	t.mu.RUnlock()
	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// New creates an instance identified by ref. The numeric id is derived when
// ref is a canonical URI.
func (t *EntityType) New(ref quad.Value) *Entity {
	e := &Entity{typ: t, ref: ref}
	if iri, ok := ref.(quad.IRI); ok {
		e.id, e.hasID = t.IDFromURI(string(iri))
	}
	return e
}

// FromID creates an instance from a numeric id.
func (t *EntityType) FromID(id int64) *Entity {
	return &Entity{typ: t, ref: t.URIFor(id), id: id, hasID: true}
}

// FromURI creates an instance from a full URI.
func (t *EntityType) FromURI(uri string) *Entity {
	return t.New(quad.IRI(uri))
}

func (t *EntityType) String() string { return t.name }

func validateFieldName(name string) error {
	if !fieldNamePattern.MatchString(name) {
		return fmt.Errorf("invalid field name %q", name)
	}
	if strings.Contains(name, PathSeparator) {
		return fmt.Errorf("field name %q contains %q", name, PathSeparator)
	}
	if name == KeyRDFType || name == KeyIDPrefix {
		return fmt.Errorf("field name %q is reserved", name)
	}
	return nil
}

func validateField(f Field) error {
	switch x := f.(type) {
	case *ChainField:
		if len(x.Links) == 0 {
			return fmt.Errorf("chain has no links")
		}
		for _, l := range x.Links {
			if err := validateField(l); err != nil {
				return err
			}
		}
	case *UnionField:
		if len(x.Alternatives) == 0 {
			return fmt.Errorf("union has no alternatives")
		}
		for _, a := range x.Alternatives {
			if err := validateField(a); err != nil {
				return err
			}
		}
	case *ReversedField:
		if x.Inner == nil && x.Predicate == "" {
			return fmt.Errorf("reversed field has no predicate")
		}
		if x.Inner != nil {
			return validateField(x.Inner)
		}
	case *DirectField:
		if x.Predicate == "" {
			return fmt.Errorf("direct field has no predicate")
		}
	}
	return nil
}
