package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CaliLuke/go-sparqlorm/ast"
	"github.com/CaliLuke/go-sparqlorm/rdfgen"
	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect schema files",
	}
	cmd.AddCommand(newSchemaCheckCommand(opts))
	return cmd
}

func newSchemaCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "check <file>",
		Short:        "Load a schema file and print its types and field patterns",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaCheck(opts, args[0], cmd)
		},
	}
}

type fieldView struct {
	Name        string `json:"name"`
	Cardinality string `json:"cardinality"`
	ResultType  string `json:"result_type,omitempty"`
	Reverse     string `json:"reverse,omitempty"`
	Pattern     string `json:"pattern"`
}

type typeView struct {
	Name   string      `json:"name"`
	Class  string      `json:"class,omitempty"`
	Fields []fieldView `json:"fields"`
}

func runSchemaCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	schema, err := rdfgen.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid schema", err)
	}

	var views []typeView
	for _, t := range schema.Types() {
		tv := typeView{Name: t.Name(), Class: string(t.Class()), Fields: []fieldView{}}
		for _, name := range t.FieldNames() {
			f, _ := t.Field(name)
			pattern, err := fieldPattern(f)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("%s.%s", t.Name(), name), err)
			}
			fv := fieldView{
				Name:        name,
				Cardinality: f.Cardinality().String(),
				Reverse:     f.ReverseName(),
				Pattern:     pattern,
			}
			if rt := f.ResultType(); rt != nil {
				fv.ResultType = rt.Name()
			}
			tv.Fields = append(tv.Fields, fv)
		}
		views = append(views, tv)
	}
	opts.logger.Debug("schema loaded", "path", path, "types", len(views))

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, views)
	}
	for _, tv := range views {
		if tv.Class != "" {
			fmt.Fprintf(out, "%s <%s>\n", tv.Name, tv.Class)
		} else {
			fmt.Fprintln(out, tv.Name)
		}
		for _, fv := range tv.Fields {
			kind := fv.Cardinality
			if fv.ResultType != "" {
				kind += " " + fv.ResultType
			}
			fmt.Fprintf(out, "  %s (%s): %s\n", fv.Name, kind, fv.Pattern)
		}
	}
	fmt.Fprintf(out, "ok: %d type(s)\n", len(views))
	return nil
}

// fieldPattern renders the graph pattern a field contributes between ?s and ?o.
func fieldPattern(f rdfmodel.Field) (string, error) {
	var g ast.Group
	f.Compile(&g, ast.Var("s"), ast.Var("o"))
	var c ast.Compiler
	parts := make([]string, 0, len(g.Patterns))
	for _, p := range g.Patterns {
		s, err := c.Compile(p)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), nil
}
