package rdfmodel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cayleygraph/quad"
)

type victimRecord struct {
	URI  string `rdf:"@uri"`
	ID   int64  `rdf:"@id"`
	Name string `rdf:"name"`
	Age  *int   `rdf:"age"`
}

type placeRecord struct {
	County string `rdf:"county"`
}

type eventRecord struct {
	ID      int            `rdf:"@id"`
	Label   string         `rdf:"label"`
	Date    time.Time      `rdf:"date"`
	Place   *placeRecord   `rdf:"place"`
	Victims []victimRecord `rdf:"victims"`
	Ref     quad.Value     `rdf:"label"`
	Skipped string
}

func fetchDecodable(t *testing.T) *Entity {
	t.Helper()
	ts := newTestSchema(t)
	m := &mockQuerier{respond: func(q string) ([]Row, error) {
		if strings.Contains(q, "?v0__victims") {
			return []Row{
				{"v0": eventURI(1), "v0__victims": victimURI(10), "v0__victims__name": quad.String("A"),
					"v0__victims__age": quad.TypedString{Value: "31", Type: "http://www.w3.org/2001/XMLSchema#integer"}},
				{"v0": eventURI(1), "v0__victims": victimURI(11), "v0__victims__name": quad.String("B")},
			}, nil
		}
		return []Row{{
			"v0":                eventURI(1),
			"v0__label":         quad.LangString{Value: "Event one", Lang: "en"},
			"v0__date":          quad.TypedString{Value: "1901-05-04", Type: "http://www.w3.org/2001/XMLSchema#date"},
			"v0__place":         quad.IRI(testNS + "place/5"),
			"v0__place__county": quad.String("Caddo"),
		}}, nil
	}}
	qs := mustFields(t, NewDatabase(m).Objects(ts.event), "label", "date", "place__county", "victims__name", "victims__age")
	events, err := qs.Entities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	return events[0]
}

func TestDecode(t *testing.T) {
	e := fetchDecodable(t)

	rec, err := Decode[eventRecord](e)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID != 1 {
		t.Errorf("ID: got %d", rec.ID)
	}
	if rec.Label != "Event one" {
		t.Errorf("Label: got %q", rec.Label)
	}
	if want := time.Date(1901, 5, 4, 0, 0, 0, 0, time.UTC); !rec.Date.Equal(want) {
		t.Errorf("Date: got %v", rec.Date)
	}
	if rec.Place == nil || rec.Place.County != "Caddo" {
		t.Errorf("Place: got %+v", rec.Place)
	}
	if _, ok := rec.Ref.(quad.LangString); !ok {
		t.Errorf("Ref should keep the raw term, got %T", rec.Ref)
	}
	if rec.Skipped != "" {
		t.Errorf("untagged field should be left alone")
	}

	if len(rec.Victims) != 2 {
		t.Fatalf("expected 2 victims, got %d", len(rec.Victims))
	}
	a, b := rec.Victims[0], rec.Victims[1]
	if a.Name != "A" || a.ID != 10 || a.URI != string(victimURI(10)) {
		t.Errorf("first victim: %+v", a)
	}
	if a.Age == nil || *a.Age != 31 {
		t.Errorf("first victim age: %v", a.Age)
	}
	if b.Age != nil {
		t.Errorf("second victim age should stay nil, got %d", *b.Age)
	}
}

func TestDecodeErrors(t *testing.T) {
	e := fetchDecodable(t)

	if err := DecodeInto(eventRecord{}, e); err == nil {
		t.Error("expected error for non-pointer target")
	}
	var n int
	if err := DecodeInto(&n, e); err == nil {
		t.Error("expected error for non-struct target")
	}

	type badLabel struct {
		Label int `rdf:"label"`
	}
	err := DecodeInto(&badLabel{}, e)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Field != "Label" || de.TypeName != "Event" {
		t.Errorf("unexpected error fields: %+v", de)
	}

	type badURI struct {
		URI int `rdf:"@uri"`
	}
	if err := DecodeInto(&badURI{}, e); err == nil {
		t.Error("expected error for non-string @uri")
	}
}

func TestDecodeOverflow(t *testing.T) {
	ts := newTestSchema(t)
	e := ts.victim.FromID(1)
	e.set("age", quad.Int(300))

	type small struct {
		Age int8 `rdf:"age"`
	}
	if err := DecodeInto(&small{}, e); err == nil {
		t.Error("expected overflow error")
	}
	type unsigned struct {
		Age uint16 `rdf:"age"`
	}
	var u unsigned
	if err := DecodeInto(&u, e); err != nil || u.Age != 300 {
		t.Errorf("uint16: %v %d", err, u.Age)
	}
}

func TestNativeValue(t *testing.T) {
	cases := []struct {
		name string
		in   quad.Value
		want any
	}{
		{"plain string", quad.String("x"), "x"},
		{"lang string", quad.LangString{Value: "x", Lang: "en"}, "x"},
		{"integer", quad.TypedString{Value: "7", Type: "http://www.w3.org/2001/XMLSchema#integer"}, int64(7)},
		{"double", quad.TypedString{Value: "1.5", Type: "http://www.w3.org/2001/XMLSchema#double"}, 1.5},
		{"boolean", quad.TypedString{Value: "true", Type: "http://www.w3.org/2001/XMLSchema#boolean"}, true},
		{"unknown datatype", quad.TypedString{Value: "POINT(1 2)", Type: "http://www.opengis.net/ont/geosparql#wktLiteral"}, "POINT(1 2)"},
		{"bad integer", quad.TypedString{Value: "seven", Type: "http://www.w3.org/2001/XMLSchema#integer"}, "seven"},
		{"iri", quad.IRI("urn:x"), quad.IRI("urn:x")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NativeValue(tc.in); got != tc.want {
				t.Errorf("NativeValue(%v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}
