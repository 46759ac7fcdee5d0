package rdfgen

import (
	"fmt"

	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
)

// BuildField converts a path into a field. opts apply to the outermost node
// only; inner nodes are single-valued and untyped, except that alternatives
// are always multi-valued.
func BuildField(p *Path, opts ...rdfmodel.Option) rdfmodel.Field {
	switch p.Kind {
	case PathInverse:
		inner := p.Parts[0]
		if inner.Kind == PathPredicate {
			return rdfmodel.Reverse(inner.IRI, opts...)
		}
		return rdfmodel.Reverse(BuildField(inner), opts...)
	case PathSequence:
		return rdfmodel.Chain(buildFields(p.Parts), opts...)
	case PathAlternative:
		return rdfmodel.Union(buildFields(p.Parts), opts...)
	default:
		return rdfmodel.Direct(p.IRI, opts...)
	}
}

func buildFields(parts []*Path) []rdfmodel.Field {
	out := make([]rdfmodel.Field, len(parts))
	for i, p := range parts {
		out[i] = BuildField(p)
	}
	return out
}

// Load declares every entity of ps in a fresh schema.
//
// Types are defined before any field is attached, so properties may refer
// to entities declared later in the file. Properties that install a reverse
// field are attached last, after every explicit property, so an explicit
// declaration always takes the name.
func Load(ps *ParsedSchema) (*rdfmodel.Schema, error) {
	if ps.Namespace == "" {
		return nil, fmt.Errorf("schema has no namespace")
	}
	schema := rdfmodel.NewSchema(ps.Namespace)
	for _, e := range ps.Entities {
		schema.Define(e.Name)
	}

	type deferred struct {
		typ  *rdfmodel.EntityType
		prop PropertySpec
	}
	var reverses []deferred

	for _, e := range ps.Entities {
		decl := rdfmodel.Decl{}
		if e.Class != "" {
			decl[rdfmodel.KeyRDFType] = e.Class
		}
		if e.IDPrefix != nil {
			decl[rdfmodel.KeyIDPrefix] = *e.IDPrefix
		}
		for _, p := range e.Properties {
			if p.Reverse != "" {
				continue
			}
			decl[p.Name] = BuildField(p.Path, fieldOptions(schema, p)...)
		}
		t, err := schema.Declare(e.Name, decl)
		if err != nil {
			return nil, err
		}
		for _, p := range e.Properties {
			if p.Reverse != "" {
				reverses = append(reverses, deferred{typ: t, prop: p})
			}
		}
	}

	for _, r := range reverses {
		if err := r.typ.Attach(r.prop.Name, BuildField(r.prop.Path, fieldOptions(schema, r.prop)...)); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// LoadFile parses and loads a schema file.
func LoadFile(path string) (*rdfmodel.Schema, error) {
	ps, err := ParseSchemaFile(path)
	if err != nil {
		return nil, err
	}
	return Load(ps)
}

func fieldOptions(schema *rdfmodel.Schema, p PropertySpec) []rdfmodel.Option {
	var opts []rdfmodel.Option
	if p.Many {
		opts = append(opts, rdfmodel.Many())
	}
	if p.Target != "" {
		// Target existence is checked while parsing.
		opts = append(opts, rdfmodel.Of(schema.Define(p.Target)))
	}
	if p.Reverse != "" {
		opts = append(opts, rdfmodel.ReverseAs(p.Reverse))
	}
	return opts
}
