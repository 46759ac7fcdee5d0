// rdfgen generates Go code from RDF schema files.
//
// Usage:
//
//	rdfgen -schema records.rdfs [-out models_gen.go] [-pkg models] [-acronyms]
//	rdfgen -schema records.rdfs -check
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CaliLuke/go-sparqlorm/rdfgen"
)

const version = "0.1.0"

func main() {
	schemaFile := flag.String("schema", "", "Path to schema file (required)")
	outFile := flag.String("out", "", "Output Go file (default: stdout)")
	pkg := flag.String("pkg", "models", "Package name for generated code")
	acronyms := flag.Bool("acronyms", true, "Apply Go naming conventions for acronyms (ID, URI, etc.)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	versionStr := flag.String("schema-version", "", "Schema version string (included in generated header)")
	check := flag.Bool("check", false, "Load the schema and report its types instead of generating code")

	flag.Parse()

	if *showVersion {
		fmt.Printf("rdfgen %s\n", version)
		os.Exit(0)
	}

	if *schemaFile == "" {
		fmt.Fprintln(os.Stderr, "error: -schema flag is required")
		flag.Usage()
		os.Exit(1)
	}

	parsed, err := rdfgen.ParseSchemaFile(*schemaFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Loading catches declaration errors before any code is written.
	schema, err := rdfgen.Load(parsed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *check {
		for _, t := range schema.Types() {
			fmt.Printf("%s\t%d fields\n", t.Name(), len(t.FieldNames()))
		}
		return
	}

	var w *os.File
	if *outFile != "" {
		w, err = os.Create(*outFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating output: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = w.Close() }()
	} else {
		w = os.Stdout
	}

	cfg := rdfgen.DefaultConfig()
	cfg.PackageName = *pkg
	cfg.UseAcronyms = *acronyms
	cfg.SchemaVersion = *versionStr
	cfg.Source = filepath.Base(*schemaFile)
	if err := rdfgen.Render(w, parsed, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error rendering: %v\n", err)
		os.Exit(1)
	}
}
