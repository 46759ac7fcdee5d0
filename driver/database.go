package driver

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository describes one repository listed by the server.
type Repository struct {
	ID       string
	Title    string
	URI      string
	Readable bool
	Writable bool
}

// Repositories lists the repositories available on the server. The listing
// is itself a SPARQL results document with id, title, uri, readable, and
// writable columns.
func (s *Store) Repositories(ctx context.Context) ([]Repository, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	endpoint := s.cfg.Endpoint + "/repositories"

	ctx, span := tracer.Start(ctx, "sparql.repositories",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sparql.endpoint", s.cfg.Endpoint)),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: "GET", URL: endpoint, Err: err}
	}
	rows, err := s.roundTrip(req, span)
	if err != nil {
		return nil, err
	}

	repos := make([]Repository, 0, len(rows))
	for _, row := range rows {
		r := Repository{
			ID:    lexical(row["id"]),
			Title: lexical(row["title"]),
			URI:   lexical(row["uri"]),
		}
		r.Readable = lexical(row["readable"]) == "true"
		r.Writable = lexical(row["writable"]) == "true"
		if r.ID == "" {
			continue
		}
		repos = append(repos, r)
	}
	return repos, nil
}

// Contains reports whether the server lists a repository with the given id.
func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	repos, err := s.Repositories(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range repos {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}
