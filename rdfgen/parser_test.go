package rdfgen

import (
	"strings"
	"testing"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
)

const testSchema = `# Records of the lynching database.
prefix lyn: <http://example.org/lynching#>
namespace <http://example.org/records/>

entity Event a lyn:Event id "event/" {
  label    rdfs:label
  date     lyn:date as time
  victims  lyn:victim many -> Victim reverse events
  triplets ^lyn:partOf many -> Triplet
  place    lyn:occurredIn -> Place
  county   lyn:occurredIn/lyn:county
  names    lyn:name|rdfs:label
}

entity Victim a lyn:Victim {
  name foaf:name
  age  foaf:age as int
}

entity Place a lyn:Place {
  county lyn:county
  state  lyn:state
}

entity Triplet a lyn:Triplet {
  text lyn:text
}
`

const lyn = "http://example.org/lynching#"

func TestParseSchema_Entities(t *testing.T) {
	schema, err := ParseSchema(testSchema)
	if err != nil {
		t.Fatalf("ParseSchema failed: %v", err)
	}

	if schema.Namespace != "http://example.org/records/" {
		t.Errorf("Namespace = %q", schema.Namespace)
	}
	if got := schema.Prefixes["lyn"]; got != lyn {
		t.Errorf("lyn prefix = %q", got)
	}
	if got := schema.Prefixes["rdfs"]; got != DefaultPrefixes["rdfs"] {
		t.Errorf("default rdfs prefix missing, got %q", got)
	}
	if len(schema.Entities) != 4 {
		t.Fatalf("expected 4 entities, got %d", len(schema.Entities))
	}

	event, ok := schema.Entity("Event")
	if !ok {
		t.Fatal("Event not found")
	}
	if event.Class != lyn+"Event" {
		t.Errorf("Event class = %q", event.Class)
	}
	if event.IDPrefix == nil || *event.IDPrefix != "event/" {
		t.Errorf("Event id prefix = %v", event.IDPrefix)
	}
	if len(event.Properties) != 7 {
		t.Fatalf("expected 7 Event properties, got %d", len(event.Properties))
	}

	victim, _ := schema.Entity("Victim")
	if victim.IDPrefix != nil {
		t.Errorf("Victim should keep the default id prefix, got %q", *victim.IDPrefix)
	}
	if _, ok := schema.Entity("Nope"); ok {
		t.Error("unexpected entity Nope")
	}
}

func TestParseSchema_Properties(t *testing.T) {
	schema, err := ParseSchema(testSchema)
	if err != nil {
		t.Fatalf("ParseSchema failed: %v", err)
	}
	event, _ := schema.Entity("Event")
	props := map[string]PropertySpec{}
	for _, p := range event.Properties {
		props[p.Name] = p
	}

	label := props["label"]
	if label.Kind != KindString || label.Multiple() || label.Path.IRI != quad.IRI(DefaultPrefixes["rdfs"]+"label") {
		t.Errorf("label = %+v", label)
	}

	if props["date"].Kind != KindTime {
		t.Errorf("date kind = %q", props["date"].Kind)
	}

	victims := props["victims"]
	if !victims.Many || victims.Target != "Victim" || victims.Reverse != "events" || victims.Kind != "" {
		t.Errorf("victims = %+v", victims)
	}

	triplets := props["triplets"]
	if triplets.Path.Kind != PathInverse || triplets.Path.Parts[0].IRI != lyn+"partOf" {
		t.Errorf("triplets path = %s", triplets.Path)
	}

	county := props["county"]
	if county.Path.Kind != PathSequence || len(county.Path.Parts) != 2 {
		t.Errorf("county path = %s", county.Path)
	}
	if county.Multiple() {
		t.Error("a chain of single predicates is single-valued")
	}

	names := props["names"]
	if names.Path.Kind != PathAlternative || !names.Multiple() || names.Many {
		t.Errorf("names = %+v", names)
	}

	if props["place"].Target != "Place" || props["place"].Multiple() {
		t.Errorf("place = %+v", props["place"])
	}
}

func TestParseSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errSub string
	}{
		{"syntax", "namespace <urn:x:> entity {", "parse schema"},
		{"unknown prefix", "namespace <urn:x:>\nentity A { p nope:p }", `unknown prefix "nope"`},
		{"unknown class prefix", "namespace <urn:x:>\nentity A a nope:A {}", `unknown prefix "nope"`},
		{"unknown target", "namespace <urn:x:>\nentity A { p rdfs:seeAlso -> B }", "unknown entity type B"},
		{"duplicate entity", "namespace <urn:x:>\nentity A {}\nentity A {}", "entity A declared twice"},
		{"duplicate property", "namespace <urn:x:>\nentity A { p rdfs:label\n p rdfs:comment }", "A.p declared twice"},
		{"reverse without target", "namespace <urn:x:>\nentity A { p rdfs:seeAlso reverse q }", "needs a target type"},
		{"kind on entity", "namespace <urn:x:>\nentity A { p rdfs:seeAlso -> A as int }", "cannot declare a value kind"},
		{"bad kind", "namespace <urn:x:>\nentity A { p rdfs:label as decimal }", `unknown value kind "decimal"`},
		{"prefix twice", "prefix a: <urn:a#>\nprefix a: <urn:b#>", `prefix "a" declared twice`},
		{"namespace twice", "namespace <urn:a:>\nnamespace <urn:b:>", "namespace declared twice"},
		{"prefix with local", "prefix a:b <urn:a#>", "must end with ':'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not contain %q", err, tt.errSub)
			}
		})
	}
}

func TestParsePathExpr(t *testing.T) {
	prefixes := map[string]string{"lyn": lyn}
	rdfType := "<" + string(rdfmodel.RDFType) + ">"
	tests := []struct {
		expr string
		want string
	}{
		{"lyn:name", "<" + lyn + "name>"},
		{"<http://example.org/p>", "<http://example.org/p>"},
		{"a", rdfType},
		{"lyn:a/lyn:b", "<" + lyn + "a>/<" + lyn + "b>"},
		{"lyn:a | lyn:b", "<" + lyn + "a>|<" + lyn + "b>"},
		{"^lyn:partOf", "^<" + lyn + "partOf>"},
		{"^(lyn:a|lyn:b)", "^(<" + lyn + "a>|<" + lyn + "b>)"},
		{"rdfs:label|(lyn:a/lyn:b)", "<" + DefaultPrefixes["rdfs"] + "label>|(<" + lyn + "a>/<" + lyn + "b>)"},
		{"(lyn:a)", "<" + lyn + "a>"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := ParsePathExpr(tt.expr, prefixes)
			if err != nil {
				t.Fatalf("ParsePathExpr: %v", err)
			}
			if got := p.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "lyn:a/", "x:y", "(lyn:a"} {
		if _, err := ParsePathExpr(bad, prefixes); err == nil {
			t.Errorf("ParsePathExpr(%q): expected error", bad)
		}
	}
}

func TestParsePath_Fields(t *testing.T) {
	prefixes := map[string]string{"lyn": lyn}

	f, err := ParsePath("lyn:occurredIn/lyn:county", prefixes)
	if err != nil {
		t.Fatal(err)
	}
	chain, ok := f.(*rdfmodel.ChainField)
	if !ok {
		t.Fatalf("expected *ChainField, got %T", f)
	}
	if len(chain.Links) != 2 || chain.Cardinality() != rdfmodel.Single {
		t.Errorf("chain = %+v", chain)
	}

	f, err = ParsePath("lyn:victim", prefixes, rdfmodel.Many())
	if err != nil {
		t.Fatal(err)
	}
	if d, ok := f.(*rdfmodel.DirectField); !ok || d.Predicate != lyn+"victim" || d.Cardinality() != rdfmodel.Multiple {
		t.Errorf("direct = %#v", f)
	}

	f, err = ParsePath("^lyn:partOf", prefixes)
	if err != nil {
		t.Fatal(err)
	}
	if r, ok := f.(*rdfmodel.ReversedField); !ok || r.Predicate != lyn+"partOf" || r.Inner != nil {
		t.Errorf("reverse = %#v", f)
	}

	f, err = ParsePath("^(lyn:a/lyn:b)", prefixes)
	if err != nil {
		t.Fatal(err)
	}
	if r, ok := f.(*rdfmodel.ReversedField); !ok {
		t.Errorf("expected *ReversedField, got %T", f)
	} else if _, ok := r.Inner.(*rdfmodel.ChainField); !ok {
		t.Errorf("expected reversed chain, got %T", r.Inner)
	}

	f, err = ParsePath("lyn:a|lyn:b|lyn:c", prefixes)
	if err != nil {
		t.Fatal(err)
	}
	if u, ok := f.(*rdfmodel.UnionField); !ok || len(u.Alternatives) != 3 || u.Cardinality() != rdfmodel.Multiple {
		t.Errorf("union = %#v", f)
	}

	if _, err := ParsePath("nope:x", prefixes); err == nil {
		t.Error("expected unknown prefix error")
	}
}
