package rdfmodel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cayleygraph/quad"
)

const (
	testNS    = "http://example.org/records/"
	lyn       = "http://example.org/lynching#"
	rdfsLabel = quad.IRI("http://www.w3.org/2000/01/rdf-schema#label")
	foafName  = quad.IRI("http://xmlns.com/foaf/0.1/name")
)

// --- Mock querier ---

type mockQuerier struct {
	mu       sync.Mutex
	queries  []string
	bindings []map[string]quad.Value
	respond  func(query string) ([]Row, error)
}

func (m *mockQuerier) Query(ctx context.Context, query string, bindings map[string]quad.Value) ([]map[string]quad.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.bindings = append(m.bindings, bindings)
	respond := m.respond
	m.mu.Unlock()
	if respond == nil {
		return nil, nil
	}
	return respond(query)
}

func (m *mockQuerier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// queryContaining returns the first recorded query containing substr.
func (m *mockQuerier) queryContaining(t *testing.T, substr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if strings.Contains(q, substr) {
			return q
		}
	}
	t.Fatalf("no query contains %q; queries:\n%s", substr, strings.Join(m.queries, "\n"))
	return ""
}

// --- Test schema ---

type testSchema struct {
	schema  *Schema
	event   *EntityType
	victim  *EntityType
	place   *EntityType
	triplet *EntityType
}

func newTestSchema(t *testing.T) *testSchema {
	t.Helper()
	s := NewSchema(testNS)
	victim := s.Define("Victim")
	place := s.Define("Place")
	triplet := s.Define("Triplet")

	event, err := s.Declare("Event", Decl{
		KeyRDFType: quad.IRI(lyn + "Event"),
		"label":    rdfsLabel,
		"date":     lyn + "date",
		"victims":  Direct(lyn+"victim", Many(), Of(victim), ReverseAs("events")),
		"triplets": Reverse(quad.IRI(lyn+"partOf"), Many(), Of(triplet)),
		"place":    Direct(lyn+"occurredIn", Of(place)),
	})
	if err != nil {
		t.Fatalf("declare Event: %v", err)
	}
	if _, err := s.Declare("Victim", Decl{
		KeyRDFType: quad.IRI(lyn + "Victim"),
		"name":     foafName,
		"age":      lyn + "age",
	}); err != nil {
		t.Fatalf("declare Victim: %v", err)
	}
	if _, err := s.Declare("Place", Decl{
		KeyRDFType:  quad.IRI(lyn + "Place"),
		"county":    lyn + "county",
		"state":     lyn + "state",
		"residents": Reverse(quad.IRI(lyn+"livedIn"), Many(), Of(victim)),
	}); err != nil {
		t.Fatalf("declare Place: %v", err)
	}
	if _, err := s.Declare("Triplet", Decl{
		KeyRDFType: quad.IRI(lyn + "Triplet"),
		"text":     lyn + "text",
	}); err != nil {
		t.Fatalf("declare Triplet: %v", err)
	}
	return &testSchema{schema: s, event: event, victim: victim, place: place, triplet: triplet}
}

func eventURI(id int) quad.IRI  { return quad.IRI(fmt.Sprintf("%sevent/%d", testNS, id)) }
func victimURI(id int) quad.IRI { return quad.IRI(fmt.Sprintf("%svictim/%d", testNS, id)) }

func mustFields(t *testing.T, qs *QuerySet, paths ...string) *QuerySet {
	t.Helper()
	out, err := qs.Fields(paths...)
	if err != nil {
		t.Fatalf("Fields(%v): %v", paths, err)
	}
	return out
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected query to contain %q\ngot:\n%s", substr, s)
	}
}

func assertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("expected query not to contain %q\ngot:\n%s", substr, s)
	}
}
