package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cayleygraph/quad"
	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(opts *RootOptions) *cobra.Command {
	var binds []string

	cmd := &cobra.Command{
		Use:   "query <sparql|->",
		Short: "Run a raw SELECT query",
		Long: `Run a SELECT query against the configured repository and print the rows.
Pass - to read the query from stdin. Each --bind sets an initial binding
as name=term, where term is N-Triples (<iri>, _:b, "lit", "lit"@en,
"lit"^^<dt>) or a bare number or boolean.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], binds, cmd)
		},
	}
	cmd.Flags().StringArrayVar(&binds, "bind", nil, "initial binding name=term (repeatable)")

	return cmd
}

func runQuery(opts *RootOptions, text string, binds []string, cmd *cobra.Command) error {
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "read query", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return NewExitError(ExitCommandError, "empty query")
	}
	bindings, err := parseBindings(binds)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --bind", err)
	}

	q, closeFn, err := opts.querier()
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := q.Query(cmd.Context(), text, bindings)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		views := make([]map[string]string, len(rows))
		for i, row := range rows {
			views[i] = rowView(row)
		}
		return writeJSON(out, views)
	}
	cols := columns(rows)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range rows {
		view := rowView(row)
		cells := make([]string, len(cols))
		for i, c := range cols {
			if s, ok := view[c]; ok {
				cells[i] = s
			} else {
				cells[i] = "-"
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d row(s)\n", len(rows))
	return nil
}

func parseBindings(binds []string) (map[string]quad.Value, error) {
	if len(binds) == 0 {
		return nil, nil
	}
	out := make(map[string]quad.Value, len(binds))
	for _, b := range binds {
		name, term, ok := strings.Cut(b, "=")
		name = strings.TrimLeft(strings.TrimSpace(name), "?$")
		if !ok || name == "" {
			return nil, fmt.Errorf("%q: want name=term", b)
		}
		v, err := parseTerm(term)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// parseTerm reads one N-Triples term. Bare integers, decimals, and booleans
// become typed literals.
func parseTerm(s string) (quad.Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty term")
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") || len(s) < 3 {
			return nil, fmt.Errorf("unterminated IRI %q", s)
		}
		return quad.IRI(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, "_:"):
		if len(s) == 2 {
			return nil, fmt.Errorf("empty blank node label")
		}
		return quad.BNode(s[2:]), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteral(s)
	case s == "true" || s == "false":
		return quad.Bool(s == "true"), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return quad.Int(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return quad.Float(f), nil
	}
	return nil, fmt.Errorf("cannot parse term %q", s)
}

func parseLiteral(s string) (quad.Value, error) {
	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return nil, fmt.Errorf("bad literal %q: %w", s, err)
	}
	lex, err := strconv.Unquote(quoted)
	if err != nil {
		return nil, fmt.Errorf("bad literal %q: %w", s, err)
	}
	rest := s[len(quoted):]
	switch {
	case rest == "":
		return quad.String(lex), nil
	case strings.HasPrefix(rest, "@") && len(rest) > 1:
		return quad.LangString{Value: quad.String(lex), Lang: rest[1:]}, nil
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">") && len(rest) > 4:
		return quad.TypedString{Value: quad.String(lex), Type: quad.IRI(rest[3 : len(rest)-1])}, nil
	default:
		return nil, fmt.Errorf("bad literal suffix %q", rest)
	}
}
