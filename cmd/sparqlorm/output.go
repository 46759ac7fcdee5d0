package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/driver"
	"github.com/CaliLuke/go-sparqlorm/rdfmodel"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query or store failure
	ExitCommandError = 2 // Bad flags, config, or schema
)

// ExitError carries an exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// rowView renders each bound term of a row in N-Triples syntax.
func rowView(row map[string]quad.Value) map[string]string {
	out := make(map[string]string, len(row))
	for name, v := range row {
		nt, err := driver.EncodeTerm(v)
		if err != nil {
			nt = fmt.Sprint(v)
		}
		out[name] = nt
	}
	return out
}

// columns returns the union of variable names across rows, sorted.
func columns(rows []map[string]quad.Value) []string {
	seen := map[string]bool{}
	var names []string
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// itemView converts a realized result (entity or raw value) to plain data
// for JSON output.
func itemView(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *rdfmodel.Entity:
		m := map[string]any{"@uri": x.URI()}
		if id, ok := x.ID(); ok {
			m["@id"] = id
		}
		for _, name := range x.Fetched() {
			fv, _ := x.Get(name)
			m[name] = itemView(fv)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = itemView(e)
		}
		return out
	case quad.Value:
		return rdfmodel.NativeValue(x)
	default:
		return x
	}
}

// writeItem prints a realized result as an indented outline.
func writeItem(w io.Writer, v any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch x := v.(type) {
	case *rdfmodel.Entity:
		fmt.Fprintf(w, "%s%s <%s>\n", indent, x.Type().Name(), x.URI())
		for _, name := range x.Fetched() {
			fv, _ := x.Get(name)
			switch fv := fv.(type) {
			case *rdfmodel.Entity:
				fmt.Fprintf(w, "%s  %s:\n", indent, name)
				writeItem(w, fv, depth+2)
			case []any:
				fmt.Fprintf(w, "%s  %s: (%d)\n", indent, name, len(fv))
				for _, e := range fv {
					writeItem(w, e, depth+2)
				}
			default:
				fmt.Fprintf(w, "%s  %s: %s\n", indent, name, scalarText(fv))
			}
		}
	default:
		fmt.Fprintf(w, "%s%s\n", indent, scalarText(v))
	}
}

func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case quad.Value:
		return rdfmodel.Lexical(x)
	default:
		return fmt.Sprint(x)
	}
}
