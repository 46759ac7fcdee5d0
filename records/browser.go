// Package records declares the lynching-case record types and the queries
// the record browser pages run against the triple store.
package records

//go:generate go run ../rdfgen/cmd/rdfgen -schema records.rdfs -out models_gen.go -pkg records

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
)

// ErrNotFound is returned when a record id matches no typed instance.
var ErrNotFound = errors.New("records: not found")

var (
	schemaOnce   sync.Once
	sharedSchema *rdfmodel.Schema
)

// Schema returns the record schema, declared on first use.
func Schema() *rdfmodel.Schema {
	schemaOnce.Do(func() { sharedSchema = NewSchema() })
	return sharedSchema
}

// Page selects a window of an ordered listing. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Browser answers the record browser's page queries.
type Browser struct {
	db      *rdfmodel.Database
	event   *rdfmodel.EntityType
	victim  *rdfmodel.EntityType
	place   *rdfmodel.EntityType
	triplet *rdfmodel.EntityType
}

// NewBrowser creates a Browser over db using the shared record schema.
func NewBrowser(db *rdfmodel.Database) *Browser {
	s := Schema()
	lookup := func(name string) *rdfmodel.EntityType {
		t, _ := s.Lookup(name)
		return t
	}
	return &Browser{
		db:      db,
		event:   lookup("Event"),
		victim:  lookup("Victim"),
		place:   lookup("Place"),
		triplet: lookup("Triplet"),
	}
}

// Fields prefetched for each listing row and detail page.
var (
	eventListFields = []string{
		"label", "date", "place__county", "place__state", "victims__name",
	}
	eventDetailFields = []string{
		"label", "date", "sources",
		"place__label", "place__county", "place__state",
		"victims__name", "victims__age", "victims__gender", "victims__race",
		"triplets__text",
	}
)

// Events lists events ordered by date.
func (b *Browser) Events(ctx context.Context, page Page) ([]*Event, error) {
	qs, err := b.db.Objects(b.event).OrderAsc("date")
	if err != nil {
		return nil, err
	}
	qs, err = qs.Fields(eventListFields...)
	if err != nil {
		return nil, err
	}
	return decodeAll[Event](ctx, qs.Limit(page.Limit).Offset(page.Offset))
}

// Event fetches one event with its place, victims, and text triplets.
func (b *Browser) Event(ctx context.Context, id int64) (*Event, error) {
	qs, err := b.db.From(b.event.FromID(id)).Fields(eventDetailFields...)
	if err != nil {
		return nil, err
	}
	events, err := decodeAll[Event](ctx, qs)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return events[0], nil
}

// VictimsOf lists the victims of one event.
func (b *Browser) VictimsOf(ctx context.Context, eventID int64) ([]*Victim, error) {
	qs, err := b.db.From(b.event.FromID(eventID)).Navigate("victims")
	if err != nil {
		return nil, err
	}
	qs, err = qs.Fields("name", "age", "gender", "race")
	if err != nil {
		return nil, err
	}
	return decodeAll[Victim](ctx, qs)
}

// SearchVictims finds victims whose name contains term, with the events
// they appear in.
func (b *Browser) SearchVictims(ctx context.Context, term string, page Page) ([]*Victim, error) {
	qs, err := b.db.Objects(b.victim).Filter(rdfmodel.Contains("name", term))
	if err != nil {
		return nil, err
	}
	if qs, err = qs.OrderAsc("name"); err != nil {
		return nil, err
	}
	if qs, err = qs.Fields("name", "age", "events__label", "events__date"); err != nil {
		return nil, err
	}
	return decodeAll[Victim](ctx, qs.Limit(page.Limit).Offset(page.Offset))
}

// EventsInState lists events whose place is in state.
func (b *Browser) EventsInState(ctx context.Context, state string) ([]*Event, error) {
	qs, err := b.db.Objects(b.event).Filter(
		rdfmodel.Through("place", rdfmodel.Eq("state", state)))
	if err != nil {
		return nil, err
	}
	if qs, err = qs.OrderAsc("date"); err != nil {
		return nil, err
	}
	if qs, err = qs.Fields("label", "date", "place__county", "place__state"); err != nil {
		return nil, err
	}
	return decodeAll[Event](ctx, qs)
}

// CountEvents returns the number of distinct events.
func (b *Browser) CountEvents(ctx context.Context) (int64, error) {
	return b.db.Objects(b.event).Count(ctx)
}

// Places lists every place with a declared type.
func (b *Browser) Places(ctx context.Context) ([]*rdfmodel.Entity, error) {
	return b.db.AllInstances(ctx, b.place)
}

func decodeAll[T any](ctx context.Context, qs *rdfmodel.QuerySet) ([]*T, error) {
	entities, err := qs.Entities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(entities))
	for _, e := range entities {
		v, err := rdfmodel.Decode[T](e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
