package driver

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/cayleygraph/quad"

	"github.com/CaliLuke/go-sparqlorm/ast"
)

const rdfLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"

// ParseResults decodes a SPARQL SELECT results document. Both encodings
// produce identical rows for the same solutions.
func ParseResults(format Format, r io.Reader) ([]Row, error) {
	var (
		rows []Row
		err  error
	)
	switch format {
	case FormatJSON:
		rows, err = parseJSON(r)
	case FormatXML:
		rows, err = parseXML(r)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, &ResultParseError{Format: format, Err: err}
	}
	return rows, nil
}

// --- XML ---

type xmlDocument struct {
	XMLName xml.Name    `xml:"sparql"`
	Boolean *bool       `xml:"boolean"`
	Results *xmlResults `xml:"results"`
}

type xmlResults struct {
	Results []xmlResult `xml:"result"`
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     *string     `xml:"uri"`
	BNode   *string     `xml:"bnode"`
	Literal *xmlLiteral `xml:"literal"`
}

type xmlLiteral struct {
	Value    string `xml:",chardata"`
	Lang     string `xml:"lang,attr"`
	Datatype string `xml:"datatype,attr"`
}

func parseXML(r io.Reader) ([]Row, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Boolean != nil {
		return nil, fmt.Errorf("boolean result where bindings were expected")
	}
	if doc.Results == nil {
		return nil, fmt.Errorf("missing results element")
	}
	rows := make([]Row, 0, len(doc.Results.Results))
	for _, res := range doc.Results.Results {
		row := make(Row, len(res.Bindings))
		for _, b := range res.Bindings {
			switch {
			case b.URI != nil:
				row[b.Name] = quad.IRI(*b.URI)
			case b.BNode != nil:
				row[b.Name] = quad.BNode(*b.BNode)
			case b.Literal != nil:
				row[b.Name] = newLiteral(b.Literal.Value, b.Literal.Datatype, b.Literal.Lang)
			default:
				return nil, fmt.Errorf("binding %q has no value", b.Name)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// --- JSON ---

type jsonDocument struct {
	Boolean *bool `json:"boolean"`
	Results *struct {
		Bindings []map[string]jsonTerm `json:"bindings"`
	} `json:"results"`
}

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang"`
	Datatype string `json:"datatype"`
}

func parseJSON(r io.Reader) ([]Row, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	if doc.Boolean != nil {
		return nil, fmt.Errorf("boolean result where bindings were expected")
	}
	if doc.Results == nil {
		return nil, fmt.Errorf("missing results member")
	}
	rows := make([]Row, 0, len(doc.Results.Bindings))
	for _, sol := range doc.Results.Bindings {
		row := make(Row, len(sol))
		for name, t := range sol {
			switch t.Type {
			case "uri":
				row[name] = quad.IRI(t.Value)
			case "bnode":
				row[name] = quad.BNode(t.Value)
			// typed-literal is the pre-recommendation spelling still sent by
			// older Sesame servers.
			case "literal", "typed-literal":
				row[name] = newLiteral(t.Value, t.Datatype, t.Lang)
			default:
				return nil, fmt.Errorf("binding %q: unknown term type %q", name, t.Type)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// newLiteral normalizes a literal so that xsd:string and plain literals are
// the same term.
func newLiteral(value, datatype, lang string) quad.Value {
	switch {
	case lang != "":
		return quad.LangString{Value: quad.String(value), Lang: lang}
	case datatype == "" || datatype == string(ast.XSDString) || datatype == rdfLangString:
		return quad.String(value)
	default:
		return quad.TypedString{Value: quad.String(value), Type: quad.IRI(datatype)}
	}
}

// --- Terms ---

// EncodeTerm renders a term in N-Triples syntax for use as a binding
// parameter. Native Go-backed literals are written with their XSD datatype.
func EncodeTerm(v quad.Value) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", fmt.Errorf("nil term")
	case quad.Int:
		return ast.FormatLiteral(lexical(t), ast.XSDInteger), nil
	case quad.Bool:
		return ast.FormatLiteral(lexical(t), ast.XSDBoolean), nil
	default:
		return ast.FormatValue(v)
	}
}

func lexical(v quad.Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case quad.IRI:
		return string(t)
	case quad.BNode:
		return string(t)
	case quad.String:
		return string(t)
	case quad.TypedString:
		return string(t.Value)
	case quad.LangString:
		return string(t.Value)
	case quad.Int:
		return fmt.Sprint(int64(t))
	case quad.Bool:
		return fmt.Sprint(bool(t))
	default:
		return fmt.Sprint(v.Native())
	}
}
