package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CaliLuke/go-sparqlorm/ast"
	"github.com/CaliLuke/go-sparqlorm/rdfgen"
	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
)

// ObjectsOptions holds flags for the objects command.
type ObjectsOptions struct {
	*RootOptions
	SchemaPath string
	ID         int64
	URI        string
	Navigate   string
	Fields     []string
	Contains   []string
	Order      string
	Limit      int
	Offset     int
	ShowSPARQL bool
	Count      bool
}

// NewObjectsCommand creates the objects command.
func NewObjectsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ObjectsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "objects <Type>",
		Short: "Fetch entities of a schema type",
		Long: `Realize a query set over the entities of one schema type and print them.
With --sparql the planned queries are printed and nothing is sent.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObjects(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaPath, "schema", "", "schema file (.rdfs)")
	cmd.Flags().Int64Var(&opts.ID, "id", 0, "start from the instance with this id")
	cmd.Flags().StringVar(&opts.URI, "uri", "", "start from the instance with this URI")
	cmd.Flags().StringVar(&opts.Navigate, "navigate", "", "follow fields from the start, e.g. place__events")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "extra fields to fetch, e.g. place,victims__name")
	cmd.Flags().StringArrayVar(&opts.Contains, "contains", nil, "substring filter field=text (repeatable)")
	cmd.Flags().StringVar(&opts.Order, "order", "", "order by field, prefix with - for descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "results to skip")
	cmd.Flags().BoolVar(&opts.ShowSPARQL, "sparql", false, "print the planned queries instead of running them")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of results only")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runObjects(opts *ObjectsOptions, typeName string, cmd *cobra.Command) error {
	schema, err := rdfgen.LoadFile(opts.SchemaPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load schema", err)
	}
	typ, ok := schema.Lookup(typeName)
	if !ok {
		names := make([]string, 0)
		for _, t := range schema.Types() {
			names = append(names, t.Name())
		}
		sort.Strings(names)
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown type %q (have %s)", typeName, strings.Join(names, ", ")))
	}

	if opts.ShowSPARQL {
		qs, err := opts.querySet(opts.database(nil), typ)
		if err != nil {
			return err
		}
		return printPlan(opts.RootOptions, qs, cmd)
	}

	q, closeFn, err := opts.querier()
	if err != nil {
		return err
	}
	defer closeFn()

	qs, err := opts.querySet(opts.database(q), typ)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if opts.Count {
		n, err := qs.Count(cmd.Context())
		if err != nil {
			return WrapExitError(ExitFailure, "count", err)
		}
		if opts.Format == "json" {
			return writeJSON(out, map[string]int64{"count": n})
		}
		fmt.Fprintln(out, n)
		return nil
	}

	items, err := qs.All(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "realize", err)
	}
	if opts.Format == "json" {
		views := make([]any, len(items))
		for i, it := range items {
			views[i] = itemView(it)
		}
		return writeJSON(out, views)
	}
	for _, it := range items {
		writeItem(out, it, 0)
	}
	fmt.Fprintf(out, "%d result(s)\n", len(items))
	return nil
}

// querySet builds the query set the flags describe.
func (o *ObjectsOptions) querySet(db *rdfmodel.Database, typ *rdfmodel.EntityType) (*rdfmodel.QuerySet, error) {
	var qs *rdfmodel.QuerySet
	switch {
	case o.ID != 0 && o.URI != "":
		return nil, NewExitError(ExitCommandError, "--id and --uri are mutually exclusive")
	case o.ID != 0:
		qs = db.From(typ.FromID(o.ID))
	case o.URI != "":
		qs = db.From(typ.FromURI(o.URI))
	default:
		qs = db.Objects(typ)
	}

	var err error
	if o.Navigate != "" {
		if qs, err = qs.Navigate(o.Navigate); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --navigate", err)
		}
	}
	for _, c := range o.Contains {
		field, text, ok := strings.Cut(c, "=")
		if !ok || field == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --contains %q: want field=text", c))
		}
		if qs, err = qs.Filter(rdfmodel.Contains(field, text)); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --contains", err)
		}
	}
	if o.Order != "" {
		if field, desc := strings.CutPrefix(o.Order, "-"); desc {
			qs, err = qs.OrderDesc(field)
		} else {
			qs, err = qs.OrderAsc(o.Order)
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --order", err)
		}
	}
	if len(o.Fields) > 0 {
		if qs, err = qs.Fields(o.Fields...); err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --fields", err)
		}
	}
	if o.Limit > 0 {
		qs = qs.Limit(o.Limit)
	}
	if o.Offset > 0 {
		qs = qs.Offset(o.Offset)
	}
	return qs, nil
}

func printPlan(opts *RootOptions, qs *rdfmodel.QuerySet, cmd *cobra.Command) error {
	planned, err := qs.Plan()
	if err != nil {
		return WrapExitError(ExitCommandError, "plan", err)
	}
	compiler := &ast.Compiler{Pretty: true}
	type plannedView struct {
		Target   string            `json:"target"`
		Query    string            `json:"query"`
		Bindings map[string]string `json:"bindings,omitempty"`
	}
	views := make([]plannedView, 0, len(planned))
	for _, pq := range planned {
		text, err := compiler.Compile(pq.Select)
		if err != nil {
			return WrapExitError(ExitFailure, "compile "+targetLabel(pq.Target), err)
		}
		var bindings map[string]string
		if len(pq.Bindings) > 0 {
			bindings = rowView(pq.Bindings)
		}
		views = append(views, plannedView{Target: pq.Target, Query: text, Bindings: bindings})
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, views)
	}
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "# %s\n", targetLabel(v.Target))
		names := make([]string, 0, len(v.Bindings))
		for name := range v.Bindings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "# bind $%s = %s\n", name, v.Bindings[name])
		}
		fmt.Fprintln(out, v.Query)
	}
	return nil
}

func targetLabel(target string) string {
	if target == "" {
		return "primary"
	}
	return "target " + target
}
