package rdfmodel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

// Row is one solution: variable name to bound term. Unbound variables are absent.
type Row = map[string]quad.Value

// Querier runs a SPARQL SELECT with initial variable bindings.
// driver.Store and rowcache.Cache implement it.
type Querier interface {
	Query(ctx context.Context, query string, bindings map[string]quad.Value) ([]map[string]quad.Value, error)
}

// Database is a high-level handle that plans and runs entity queries over a Querier.
type Database struct {
	querier  Querier
	compiler ast.Compiler
	logger   *slog.Logger
	parallel int
}

// DatabaseOption configures a Database.
type DatabaseOption func(*Database)

// WithLogger sets the logger used for query tracing. Defaults to slog.Default().
func WithLogger(l *slog.Logger) DatabaseOption {
	return func(db *Database) { db.logger = l }
}

// WithParallelQueries runs up to n per-target queries of one realization
// concurrently. n <= 1 keeps them sequential.
func WithParallelQueries(n int) DatabaseOption {
	return func(db *Database) { db.parallel = n }
}

// WithPrettyQueries sends indented multi-line query text.
func WithPrettyQueries() DatabaseOption {
	return func(db *Database) { db.compiler.Pretty = true }
}

// NewDatabase creates a Database over q.
func NewDatabase(q Querier, opts ...DatabaseOption) *Database {
	db := &Database{querier: q, logger: slog.Default(), parallel: 1}
	for _, o := range opts {
		o(db)
	}
	return db
}

// Objects returns an unbound QuerySet over every instance of t.
func (db *Database) Objects(t *EntityType) *QuerySet {
	return newQuerySet(db, t, nil)
}

// From returns a QuerySet bound to a single root instance.
func (db *Database) From(e *Entity) *QuerySet {
	return newQuerySet(db, e.typ, e)
}

// Compile renders a query with the database's formatting settings.
func (db *Database) Compile(q *ast.SelectQuery) (string, error) {
	return db.compiler.Compile(q)
}

// ExecuteSelect compiles and runs q with the given initial bindings.
func (db *Database) ExecuteSelect(ctx context.Context, q *ast.SelectQuery, bindings map[string]quad.Value) ([]Row, error) {
	text, err := db.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	start := time.Now()
	rows, err := db.querier.Query(ctx, text, bindings)
	if err != nil {
		db.logger.Warn("sparql query failed", "error", err, "query", text)
		return nil, err
	}
	db.logger.Debug("sparql query", "query", text, "bindings", len(bindings),
		"rows", len(rows), "elapsed", time.Since(start))
	return rows, nil
}

// AllInstances fetches every instance of t, identified by (?x rdf:type class).
// A type without rdf_type falls back to a scan of every subject in the store,
// which is rarely what production code wants.
func (db *Database) AllInstances(ctx context.Context, t *EntityType) ([]*Entity, error) {
	x := ast.Var("x")
	q := ast.SelectDistinct(x)
	if class := t.Class(); class != "" {
		q.Append(ast.Edge(x, RDFType, class), false)
	} else {
		db.logger.Warn("type has no rdf_type, scanning all subjects", "type", t.name)
		q.Append(ast.Edge(x, ast.Var("p"), ast.Var("o")), false)
	}
	rows, err := db.ExecuteSelect(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("all instances of %s: %w", t.name, err)
	}
	out := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		v, ok := row["x"]
		if !ok {
			continue
		}
		e := t.New(v)
		e.db = db
		out = append(out, e)
	}
	return out, nil
}
