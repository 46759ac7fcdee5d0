package rdfgen

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
)

// --- Participle grammar structs ---
// A schema file is a flat list of prefix, namespace and entity statements:
//
//	prefix lyn: <http://example.org/lynching#>
//	namespace <http://example.org/records/>
//	entity Event a lyn:Event id "event/" {
//	  victims lyn:victim many -> Victim reverse events
//	}

// SchemaFile is the top-level grammar.
type SchemaFile struct {
	Statements []*Statement `parser:"@@*"`
}

// Statement is one top-level statement.
type Statement struct {
	Prefix    *PrefixDef    `parser:"  @@"`
	Namespace *NamespaceDef `parser:"| @@"`
	Entity    *EntityDef    `parser:"| @@"`
}

// PrefixDef parses: prefix name: <iri>
type PrefixDef struct {
	Pos  lexer.Position
	Name string `parser:"'prefix' @PName"`
	IRI  string `parser:"@IRI"`
}

// NamespaceDef parses: namespace <iri>
type NamespaceDef struct {
	Pos lexer.Position
	IRI string `parser:"'namespace' @IRI"`
}

// EntityDef parses: entity Name [a class] [id "prefix/"] { property* }
type EntityDef struct {
	Pos        lexer.Position
	Name       string         `parser:"'entity' @Ident"`
	Class      *IRITerm       `parser:"( 'a' @@ )?"`
	IDPrefix   *string        `parser:"( 'id' @String )?"`
	Properties []*PropertyDef `parser:"'{' @@* '}'"`
}

// IRITerm is a full or prefixed IRI.
type IRITerm struct {
	IRI   string `parser:"  @IRI"`
	PName string `parser:"| @PName"`
}

// PropertyDef parses: name path [many] [-> Type] [reverse name] [as kind]
type PropertyDef struct {
	Pos     lexer.Position
	Name    string    `parser:"@Ident"`
	Path    *PathExpr `parser:"@@"`
	Many    bool      `parser:"@'many'?"`
	Target  string    `parser:"( '->' @Ident )?"`
	Reverse string    `parser:"( 'reverse' @Ident )?"`
	Kind    string    `parser:"( 'as' @Ident )?"`
}

// PathExpr parses alternatives: seq ( '|' seq )*
type PathExpr struct {
	Pos          lexer.Position
	Alternatives []*PathSeq `parser:"@@ ( '|' @@ )*"`
}

// PathSeq parses a sequence: step ( '/' step )*
type PathSeq struct {
	Steps []*PathStep `parser:"@@ ( '/' @@ )*"`
}

// PathStep parses an optionally inverted primary: ['^'] primary
type PathStep struct {
	Inverse bool         `parser:"@'^'?"`
	Primary *PathPrimary `parser:"@@"`
}

// PathPrimary is a predicate, the keyword a (rdf:type), or a parenthesized path.
type PathPrimary struct {
	Pos   lexer.Position
	IRI   string    `parser:"  @IRI"`
	PName string    `parser:"| @PName"`
	A     bool      `parser:"| @'a'"`
	Group *PathExpr `parser:"| '(' @@ ')'"`
}

var schemaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "IRI", Pattern: `<[^<>"{}|^\x60\\\s]*>`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "PName", Pattern: `[A-Za-z_][A-Za-z0-9_-]*:[A-Za-z0-9_.-]*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[{}()|/^]`},
})

var (
	schemaParser = participle.MustBuild[SchemaFile](
		participle.Lexer(schemaLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	pathParser = participle.MustBuild[PathExpr](
		participle.Lexer(schemaLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
)

// DefaultPrefixes are available in every schema file and path expression
// unless redefined.
var DefaultPrefixes = map[string]string{
	"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
	"owl":  "http://www.w3.org/2002/07/owl#",
	"foaf": "http://xmlns.com/foaf/0.1/",
}

// --- Entry points ---

// ParseSchema parses schema text into a ParsedSchema, expanding prefixed
// names and checking that every referenced entity type exists.
func ParseSchema(input string) (*ParsedSchema, error) {
	return parseSchema("schema.rdfs", input)
}

// ParseSchemaFile reads a schema from the specified file path and parses it.
func ParseSchemaFile(path string) (*ParsedSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return parseSchema(path, string(data))
}

func parseSchema(filename, input string) (*ParsedSchema, error) {
	file, err := schemaParser.ParseString(filename, input)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return convertAST(file)
}

// ParsePathExpr parses a standalone property path such as
// "lyn:occurredIn/lyn:county" or "^(lyn:a|lyn:b)". prefixes supplements
// DefaultPrefixes.
func ParsePathExpr(expr string, prefixes map[string]string) (*Path, error) {
	ast, err := pathParser.ParseString("path", expr)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", expr, err)
	}
	return convertPath(ast, mergePrefixes(prefixes))
}

// ParsePath parses a property path and builds the equivalent field with the
// given options applied to its outermost node.
func ParsePath(expr string, prefixes map[string]string, opts ...rdfmodel.Option) (rdfmodel.Field, error) {
	p, err := ParsePathExpr(expr, prefixes)
	if err != nil {
		return nil, err
	}
	return BuildField(p, opts...), nil
}

func mergePrefixes(extra map[string]string) map[string]string {
	out := make(map[string]string, len(DefaultPrefixes)+len(extra))
	for k, v := range DefaultPrefixes {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// --- AST conversion ---

// convertAST converts the participle AST to our domain model.
func convertAST(file *SchemaFile) (*ParsedSchema, error) {
	declared := map[string]string{}
	schema := &ParsedSchema{}

	// Prefixes and the namespace may appear anywhere in the file.
	for _, st := range file.Statements {
		switch {
		case st.Prefix != nil:
			name := strings.TrimSuffix(st.Prefix.Name, ":")
			if strings.Contains(name, ":") || name == st.Prefix.Name {
				return nil, fmt.Errorf("%s: prefix name must end with ':', got %q", st.Prefix.Pos, st.Prefix.Name)
			}
			if _, dup := declared[name]; dup {
				return nil, fmt.Errorf("%s: prefix %q declared twice", st.Prefix.Pos, name)
			}
			declared[name] = unwrapIRI(st.Prefix.IRI)
		case st.Namespace != nil:
			if schema.Namespace != "" {
				return nil, fmt.Errorf("%s: namespace declared twice", st.Namespace.Pos)
			}
			schema.Namespace = unwrapIRI(st.Namespace.IRI)
		}
	}
	schema.Prefixes = mergePrefixes(declared)

	names := map[string]bool{}
	for _, st := range file.Statements {
		if st.Entity == nil {
			continue
		}
		if names[st.Entity.Name] {
			return nil, fmt.Errorf("%s: entity %s declared twice", st.Entity.Pos, st.Entity.Name)
		}
		names[st.Entity.Name] = true
	}

	for _, st := range file.Statements {
		if st.Entity == nil {
			continue
		}
		spec, err := convertEntity(st.Entity, schema.Prefixes, names)
		if err != nil {
			return nil, err
		}
		schema.Entities = append(schema.Entities, spec)
	}
	return schema, nil
}

func convertEntity(e *EntityDef, prefixes map[string]string, entities map[string]bool) (EntitySpec, error) {
	spec := EntitySpec{Name: e.Name, IDPrefix: e.IDPrefix}
	if e.Class != nil {
		iri, err := expandTerm(e.Class.IRI, e.Class.PName, prefixes)
		if err != nil {
			return spec, fmt.Errorf("%s: entity %s: %w", e.Pos, e.Name, err)
		}
		spec.Class = iri
	}

	seen := map[string]bool{}
	for _, p := range e.Properties {
		if seen[p.Name] {
			return spec, fmt.Errorf("%s: %s.%s declared twice", p.Pos, e.Name, p.Name)
		}
		seen[p.Name] = true

		prop, err := convertProperty(p, prefixes, entities)
		if err != nil {
			return spec, fmt.Errorf("%s: %s.%s: %w", p.Pos, e.Name, p.Name, err)
		}
		spec.Properties = append(spec.Properties, prop)
	}
	return spec, nil
}

func convertProperty(p *PropertyDef, prefixes map[string]string, entities map[string]bool) (PropertySpec, error) {
	path, err := convertPath(p.Path, prefixes)
	if err != nil {
		return PropertySpec{}, err
	}
	prop := PropertySpec{
		Name:    p.Name,
		Path:    path,
		Many:    p.Many,
		Target:  p.Target,
		Reverse: p.Reverse,
		Kind:    ValueKind(p.Kind),
	}
	if prop.Target != "" && !entities[prop.Target] {
		return prop, fmt.Errorf("unknown entity type %s", prop.Target)
	}
	if prop.Reverse != "" && prop.Target == "" {
		return prop, fmt.Errorf("reverse %s needs a target type", prop.Reverse)
	}
	switch {
	case prop.Kind == "":
		if prop.Target == "" {
			prop.Kind = KindString
		}
	case prop.Target != "":
		return prop, fmt.Errorf("entity-valued property cannot declare a value kind")
	case !validKind(prop.Kind):
		return prop, fmt.Errorf("unknown value kind %q", prop.Kind)
	}
	return prop, nil
}

func convertPath(e *PathExpr, prefixes map[string]string) (*Path, error) {
	alts := make([]*Path, 0, len(e.Alternatives))
	for _, seq := range e.Alternatives {
		steps := make([]*Path, 0, len(seq.Steps))
		for _, st := range seq.Steps {
			p, err := convertPrimary(st.Primary, prefixes)
			if err != nil {
				return nil, err
			}
			if st.Inverse {
				p = &Path{Kind: PathInverse, Parts: []*Path{p}}
			}
			steps = append(steps, p)
		}
		if len(steps) == 1 {
			alts = append(alts, steps[0])
		} else {
			alts = append(alts, &Path{Kind: PathSequence, Parts: steps})
		}
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &Path{Kind: PathAlternative, Parts: alts}, nil
}

func convertPrimary(p *PathPrimary, prefixes map[string]string) (*Path, error) {
	switch {
	case p.Group != nil:
		return convertPath(p.Group, prefixes)
	case p.A:
		return &Path{Kind: PathPredicate, IRI: rdfmodel.RDFType}, nil
	default:
		iri, err := expandTerm(p.IRI, p.PName, prefixes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Pos, err)
		}
		return &Path{Kind: PathPredicate, IRI: iri}, nil
	}
}

func expandTerm(iri, pname string, prefixes map[string]string) (quad.IRI, error) {
	if iri != "" {
		return quad.IRI(unwrapIRI(iri)), nil
	}
	prefix, local, _ := strings.Cut(pname, ":")
	ns, ok := prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("unknown prefix %q", prefix)
	}
	return quad.IRI(ns + local), nil
}

// unwrapIRI removes the angle brackets of an IRI token.
func unwrapIRI(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}
