// Package driver talks to a remote SPARQL store over the Sesame/RDF4J HTTP
// protocol.
//
// A Store is created from an explicit Config; nothing is read from globals.
// Queries are POSTed as form parameters with initial bindings passed
// alongside the query text, and both the XML and the JSON SPARQL results
// encodings decode to the same []Row.
package driver
