package rdfmodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"
)

// Entity is an instance of an EntityType. Its identity is an RDF term; two
// entities with equal identities are interchangeable.
type Entity struct {
	typ    *EntityType
	ref    quad.Value
	id     int64
	hasID  bool
	values map[string]any
	db     *Database
}

// Type returns the entity's type.
func (e *Entity) Type() *EntityType { return e.typ }

// Ref returns the identity term (usually a quad.IRI).
func (e *Entity) Ref() quad.Value { return e.ref }

// URI returns the identity as a string without angle brackets.
func (e *Entity) URI() string {
	switch r := e.ref.(type) {
	case quad.IRI:
		return string(r)
	case quad.BNode:
		return "_:" + string(r)
	case nil:
		return ""
	default:
		return fmt.Sprint(r.Native())
	}
}

// ID returns the numeric id derived from the canonical URI, if any.
func (e *Entity) ID() (int64, bool) { return e.id, e.hasID }

// Equal reports whether two entities have the same identity.
func (e *Entity) Equal(other *Entity) bool {
	if e == nil || other == nil {
		return e == other
	}
	return identityKey(e.ref) == identityKey(other.ref)
}

// Get returns a fetched field value. Single-valued fields hold nil, a raw
// quad.Value, or an *Entity. Multi-valued fields hold a []any of those.
// ok is false if the field was not fetched.
func (e *Entity) Get(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Entity returns a fetched single-valued entity field, or nil.
func (e *Entity) Entity(name string) *Entity {
	v, _ := e.values[name].(*Entity)
	return v
}

// Entities returns the entities of a fetched multi-valued field.
func (e *Entity) Entities(name string) []*Entity {
	list, _ := e.values[name].([]any)
	out := make([]*Entity, 0, len(list))
	for _, v := range list {
		if ent, ok := v.(*Entity); ok {
			out = append(out, ent)
		}
	}
	return out
}

// Values returns a fetched field as a slice whatever its cardinality.
func (e *Entity) Values(name string) []any {
	switch v := e.values[name].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

// Text returns the lexical form of a fetched single-valued raw field, or "".
func (e *Entity) Text(name string) string {
	switch v := e.values[name].(type) {
	case quad.Value:
		return Lexical(v)
	case *Entity:
		return v.URI()
	default:
		return ""
	}
}

// Native returns a fetched single-valued raw field converted to a Go value.
func (e *Entity) Native(name string) any {
	if v, ok := e.values[name].(quad.Value); ok {
		return NativeValue(v)
	}
	return nil
}

// Fetched returns the names of the fields populated on this instance.
func (e *Entity) Fetched() []string {
	names := make([]string, 0, len(e.values))
	for n := range e.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Related returns a QuerySet navigating from this entity along the named
// fields. The entity must come from a Database.
func (e *Entity) Related(names ...string) (*QuerySet, error) {
	if e.db == nil {
		return nil, ErrDetached
	}
	return e.db.From(e).Navigate(names...)
}

func (e *Entity) set(name string, v any) {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	e.values[name] = v
}

func (e *Entity) String() string {
	var b strings.Builder
	b.WriteString(e.typ.name)
	if e.hasID {
		fmt.Fprintf(&b, "#%d", e.id)
	} else {
		b.WriteString("<" + e.URI() + ">")
	}
	return b.String()
}
