// Package gosparqlorm provides an object-graph mapper over remote SPARQL
// stores.
//
// Declare entity types as sets of property fields (direct, reversed,
// chained, or union paths), build query sets that navigate and prefetch
// related entities, and get back nested entities rebuilt from flat SELECT
// rows. One query is planned per multi-valued prefetch target.
//
// The module is organized into these packages:
//
//   - [github.com/CaliLuke/go-sparqlorm/ast]: SPARQL graph-pattern IR and compiler
//   - [github.com/CaliLuke/go-sparqlorm/rdfmodel]: fields, schemas, entities, query sets, and the planner
//   - [github.com/CaliLuke/go-sparqlorm/driver]: HTTP transport for Sesame-protocol stores (XML and JSON results)
//   - [github.com/CaliLuke/go-sparqlorm/rowcache]: SQLite-backed cache of result rows
//   - [github.com/CaliLuke/go-sparqlorm/rdfgen]: schema language parser and Go code generator
//   - [github.com/CaliLuke/go-sparqlorm/config]: file and environment configuration
//   - [github.com/CaliLuke/go-sparqlorm/records]: an example schema browsing lynching-case records
//
// Only the driver talks to the network. Everything else compiles and tests
// against in-memory queriers.
package gosparqlorm
