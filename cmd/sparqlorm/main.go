// Command sparqlorm runs object queries against a SPARQL repository.
//
// Usage:
//
//	sparqlorm repos
//	sparqlorm query 'SELECT ?s WHERE { ?s ?p ?o } LIMIT 5'
//	sparqlorm objects Event --schema records.rdfs --fields place,victims__name
//	sparqlorm schema check records.rdfs
//
// Store, cache, and planner settings come from --config and SPARQLORM_*
// environment variables.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(GetExitCode(err))
	}
}
