package ast

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/quad"
)

// XSD datatype IRIs used when formatting Go values.
const (
	XSDString   = quad.IRI("http://www.w3.org/2001/XMLSchema#string")
	XSDInteger  = quad.IRI("http://www.w3.org/2001/XMLSchema#integer")
	XSDDouble   = quad.IRI("http://www.w3.org/2001/XMLSchema#double")
	XSDDecimal  = quad.IRI("http://www.w3.org/2001/XMLSchema#decimal")
	XSDBoolean  = quad.IRI("http://www.w3.org/2001/XMLSchema#boolean")
	XSDDateTime = quad.IRI("http://www.w3.org/2001/XMLSchema#dateTime")
	XSDDate     = quad.IRI("http://www.w3.org/2001/XMLSchema#date")
)

// Compiler compiles AST nodes into SPARQL query strings.
// The same tree renders either on one line or indented over several lines.
type Compiler struct {
	// Pretty selects indented multi-line output.
	Pretty bool
}

// line is one output line at a nesting depth. Terse output ignores depth.
type line struct {
	depth int
	text  string
}

// Compile compiles a single AST node into its SPARQL string representation.
// It returns an error if the node type is unknown or if compilation fails.
func (c *Compiler) Compile(node QueryNode) (string, error) {
	switch n := node.(type) {
	case SelectQuery:
		return c.compileSelect(&n)
	case *SelectQuery:
		if n == nil {
			return "", fmt.Errorf("nil select query")
		}
		return c.compileSelect(n)
	case Pattern:
		lines, err := c.patternLines(n, 0)
		if err != nil {
			return "", err
		}
		return c.join(lines), nil
	case Expr:
		return c.compileExpr(n)
	case Var:
		return FormatTerm(n)
	default:
		return "", fmt.Errorf("unknown node type: %T", node)
	}
}

// MustCompile is Compile for trees built by this module's own planners. It panics on error.
func (c *Compiler) MustCompile(node QueryNode) string {
	s, err := c.Compile(node)
	if err != nil {
		panic(err)
	}
	return s
}

func (c *Compiler) join(lines []line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		if c.Pretty {
			parts[i] = strings.Repeat("  ", l.depth) + l.text
		} else {
			parts[i] = l.text
		}
	}
	if c.Pretty {
		return strings.Join(parts, "\n")
	}
	return strings.Join(parts, " ")
}

// --- Query ---

func (c *Compiler) compileSelect(q *SelectQuery) (string, error) {
	var lines []line
	for _, p := range q.Prefixes {
		iri, err := FormatTerm(p.IRI)
		if err != nil {
			return "", err
		}
		lines = append(lines, line{text: fmt.Sprintf("PREFIX %s: %s", p.Name, iri)})
	}
	body, err := c.selectLines(q, 0)
	if err != nil {
		return "", err
	}
	return c.join(append(lines, body...)), nil
}

// selectLines renders a SELECT without its prologue, starting at depth.
func (c *Compiler) selectLines(q *SelectQuery, depth int) ([]line, error) {
	if q.Distinct && q.Reduced {
		return nil, fmt.Errorf("select: DISTINCT and REDUCED are mutually exclusive")
	}
	var lines []line

	head := "SELECT"
	if q.Distinct {
		head += " DISTINCT"
	}
	if q.Reduced {
		head += " REDUCED"
	}
	if len(q.Variables) == 0 {
		head += " *"
	}
	for _, v := range q.Variables {
		s, err := c.compileProjection(v)
		if err != nil {
			return nil, err
		}
		head += " " + s
	}
	lines = append(lines, line{depth: depth, text: head})

	body, err := c.groupLines(q.Where, depth)
	if err != nil {
		return nil, err
	}
	body[0].text = "WHERE " + body[0].text
	lines = append(lines, body...)

	if len(q.GroupBy) > 0 {
		keys, err := c.compileOperands(q.GroupBy)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line{depth: depth, text: "GROUP BY " + strings.Join(keys, " ")})
	}
	if len(q.Having) > 0 {
		conds := make([]string, 0, len(q.Having))
		for _, h := range q.Having {
			s, err := c.compileExpr(h)
			if err != nil {
				return nil, err
			}
			conds = append(conds, "("+s+")")
		}
		lines = append(lines, line{depth: depth, text: "HAVING " + strings.Join(conds, " ")})
	}
	if len(q.OrderBy) > 0 {
		keys := make([]string, 0, len(q.OrderBy))
		for _, o := range q.OrderBy {
			s, err := c.compileOperand(o.Expr)
			if err != nil {
				return nil, err
			}
			if o.Desc {
				keys = append(keys, "DESC("+s+")")
			} else {
				keys = append(keys, "ASC("+s+")")
			}
		}
		lines = append(lines, line{depth: depth, text: "ORDER BY " + strings.Join(keys, " ")})
	}
	if q.Limit > 0 {
		lines = append(lines, line{depth: depth, text: "LIMIT " + strconv.Itoa(q.Limit)})
	}
	if q.Offset > 0 {
		lines = append(lines, line{depth: depth, text: "OFFSET " + strconv.Itoa(q.Offset)})
	}
	return lines, nil
}

func (c *Compiler) compileProjection(v any) (string, error) {
	switch p := v.(type) {
	case Var:
		return FormatTerm(p)
	case string:
		return "?" + trimVar(p), nil
	case Projection:
		expr, err := c.compileExpr(p.Expr)
		if err != nil {
			return "", err
		}
		as, err := FormatTerm(p.As)
		if err != nil {
			return "", err
		}
		return "(" + expr + " AS " + as + ")", nil
	default:
		return "", fmt.Errorf("unknown projection type: %T", v)
	}
}

// --- Patterns ---

func (c *Compiler) groupLines(g Group, depth int) ([]line, error) {
	lines := []line{{depth: depth, text: "{"}}
	for _, p := range g.Patterns {
		inner, err := c.patternLines(p, depth+1)
		if err != nil {
			return nil, err
		}
		lines = append(lines, inner...)
	}
	return append(lines, line{depth: depth, text: "}"}), nil
}

func (c *Compiler) patternLines(pattern Pattern, depth int) ([]line, error) {
	switch p := pattern.(type) {
	case Triple:
		s, err := c.compileTriple(p)
		if err != nil {
			return nil, err
		}
		return []line{{depth: depth, text: s}}, nil

	case Group:
		return c.groupLines(p, depth)

	case Optional:
		lines, err := c.groupLines(p.Group, depth)
		if err != nil {
			return nil, err
		}
		lines[0].text = "OPTIONAL " + lines[0].text
		return lines, nil

	case Union:
		if len(p.Alternatives) == 0 {
			return nil, fmt.Errorf("union with no alternatives")
		}
		var lines []line
		for i, alt := range p.Alternatives {
			if i > 0 {
				lines = append(lines, line{depth: depth, text: "UNION"})
			}
			inner, err := c.groupLines(alt, depth)
			if err != nil {
				return nil, err
			}
			lines = append(lines, inner...)
		}
		return lines, nil

	case Filter:
		s, err := c.compileExpr(p.Expr)
		if err != nil {
			return nil, err
		}
		return []line{{depth: depth, text: "FILTER(" + s + ")"}}, nil

	case RawPattern:
		return []line{{depth: depth, text: p.Text}}, nil

	case SubSelect:
		if p.Query == nil {
			return nil, fmt.Errorf("nil sub-select")
		}
		if len(p.Query.Prefixes) > 0 {
			return nil, fmt.Errorf("sub-select cannot declare prefixes")
		}
		inner, err := c.selectLines(p.Query, depth+1)
		if err != nil {
			return nil, err
		}
		lines := []line{{depth: depth, text: "{"}}
		lines = append(lines, inner...)
		return append(lines, line{depth: depth, text: "}"}), nil

	default:
		return nil, fmt.Errorf("unknown pattern type: %T", pattern)
	}
}

func (c *Compiler) compileTriple(t Triple) (string, error) {
	parts := make([]string, 0, 3)
	for _, term := range []any{t.Subject, t.Predicate, t.Object} {
		if _, ok := term.(Expr); ok {
			return "", fmt.Errorf("expression %T in triple position", term)
		}
		s, err := FormatTerm(term)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ") + " .", nil
}

// --- Expressions ---

func (c *Compiler) compileExpr(e Expr) (string, error) {
	switch x := e.(type) {
	case Compare:
		left, err := c.compileOperand(x.Left)
		if err != nil {
			return "", err
		}
		right, err := c.compileOperand(x.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", left, x.Operator, right), nil

	case Logical:
		if len(x.Operands) == 0 {
			return "", fmt.Errorf("logical %q with no operands", x.Operator)
		}
		parts := make([]string, 0, len(x.Operands))
		for _, op := range x.Operands {
			s, err := c.compileExpr(op)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+s+")")
		}
		return strings.Join(parts, " "+x.Operator+" "), nil

	case Not:
		s, err := c.compileExpr(x.Expr)
		if err != nil {
			return "", err
		}
		return "!(" + s + ")", nil

	case Bound:
		v, err := FormatTerm(x.Var)
		if err != nil {
			return "", err
		}
		return "BOUND(" + v + ")", nil

	case Exists:
		lines, err := c.groupLines(x.Group, 0)
		if err != nil {
			return "", err
		}
		inline := (&Compiler{}).join(lines)
		if x.Negated {
			return "NOT EXISTS " + inline, nil
		}
		return "EXISTS " + inline, nil

	case FunctionCall:
		args, err := c.compileOperands(x.Args)
		if err != nil {
			return "", err
		}
		return x.Function + "(" + strings.Join(args, ", ") + ")", nil

	case Aggregate:
		arg := "*"
		if x.Arg != nil {
			s, err := c.compileOperand(x.Arg)
			if err != nil {
				return "", err
			}
			arg = s
		}
		if x.Distinct {
			arg = "DISTINCT " + arg
		}
		return x.Function + "(" + arg + ")", nil

	default:
		return "", fmt.Errorf("unknown expression type: %T", e)
	}
}

func (c *Compiler) compileOperand(v any) (string, error) {
	if e, ok := v.(Expr); ok {
		s, err := c.compileExpr(e)
		if err != nil {
			return "", err
		}
		switch e.(type) {
		case Compare, Logical:
			return "(" + s + ")", nil
		}
		return s, nil
	}
	return FormatTerm(v)
}

func (c *Compiler) compileOperands(vs []any) ([]string, error) {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		s, err := c.compileOperand(v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// --- Terms ---

// FormatTerm renders a term-position value in SPARQL syntax.
func FormatTerm(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", fmt.Errorf("nil term")
	case Var:
		if t == "" {
			return "", fmt.Errorf("empty variable name")
		}
		return "?" + string(t), nil
	case string:
		return t, nil
	case quad.Value:
		return FormatValue(t)
	default:
		return FormatValue(ValueFromGo(v))
	}
}

// FormatValue renders an RDF term: IRIs in angle brackets, literals quoted
// and escaped, with datatype or language annotations.
func FormatValue(v quad.Value) (string, error) {
	switch t := v.(type) {
	case quad.IRI:
		return "<" + EscapeIRI(string(t)) + ">", nil
	case quad.BNode:
		if t == "" {
			return "", fmt.Errorf("empty blank node label")
		}
		return "_:" + string(t), nil
	case quad.String:
		return `"` + EscapeString(string(t)) + `"`, nil
	case quad.TypedString:
		return `"` + EscapeString(string(t.Value)) + `"^^<` + EscapeIRI(string(t.Type)) + ">", nil
	case quad.LangString:
		return `"` + EscapeString(string(t.Value)) + `"@` + t.Lang, nil
	case quad.Int:
		return strconv.FormatInt(int64(t), 10), nil
	case quad.Float:
		return FormatLiteral(strconv.FormatFloat(float64(t), 'g', -1, 64), XSDDouble), nil
	case quad.Bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case quad.Time:
		return FormatLiteral(time.Time(t).Format(time.RFC3339Nano), XSDDateTime), nil
	default:
		return "", fmt.Errorf("unsupported RDF term type: %T", v)
	}
}

// FormatLiteral formats a lexical form with a datatype annotation.
func FormatLiteral(lexical string, datatype quad.IRI) string {
	if datatype == "" {
		return `"` + EscapeString(lexical) + `"`
	}
	return `"` + EscapeString(lexical) + `"^^<` + EscapeIRI(string(datatype)) + ">"
}

// EscapeString escapes special characters in a string for use in SPARQL string literals.
// It handles backslashes, quotes, newlines, carriage returns, and tabs.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// EscapeIRI percent-encodes characters that may not appear inside <...>.
func EscapeIRI(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r <= 0x20, strings.ContainsRune("<>\"{}|^`\\", r):
			fmt.Fprintf(&b, "%%%02X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatGoValue converts a Go value into its SPARQL literal string representation.
// It uses reflection to dereference pointers and handles basic types and time.Time.
func FormatGoValue(value any) string {
	if value == nil {
		return `""`
	}
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return `""`
		}
		v = v.Elem()
		value = v.Interface()
	}
	s, err := FormatValue(ValueFromGo(value))
	if err != nil {
		return `"` + EscapeString(fmt.Sprintf("%v", value)) + `"`
	}
	return s
}
