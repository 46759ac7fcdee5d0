package driver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xmlDoc = `<?xml version="1.0"?>
<sparql xmlns="http://www.w3.org/2005/sparql-results#">
  <head><variable name="x"/><variable name="label"/><variable name="n"/></head>
  <results>
    <result>
      <binding name="x"><uri>http://example.org/records/event/1</uri></binding>
      <binding name="label"><literal xml:lang="en">Event one</literal></binding>
      <binding name="n"><literal datatype="http://www.w3.org/2001/XMLSchema#integer">2</literal></binding>
    </result>
    <result>
      <binding name="x"><bnode>b0</bnode></binding>
      <binding name="label"><literal>plain</literal></binding>
    </result>
    <result>
      <binding name="x"><uri>http://example.org/records/event/3</uri></binding>
      <binding name="label"><literal datatype="http://www.w3.org/2001/XMLSchema#string">typed plain</literal></binding>
    </result>
  </results>
</sparql>`

const jsonDoc = `{
  "head": {"vars": ["x", "label", "n"]},
  "results": {"bindings": [
    {"x": {"type": "uri", "value": "http://example.org/records/event/1"},
     "label": {"type": "literal", "value": "Event one", "xml:lang": "en"},
     "n": {"type": "typed-literal", "value": "2", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}},
    {"x": {"type": "bnode", "value": "b0"},
     "label": {"type": "literal", "value": "plain"}},
    {"x": {"type": "uri", "value": "http://example.org/records/event/3"},
     "label": {"type": "literal", "value": "typed plain", "datatype": "http://www.w3.org/2001/XMLSchema#string"}}
  ]}
}`

var wantRows = []Row{
	{
		"x":     quad.IRI("http://example.org/records/event/1"),
		"label": quad.LangString{Value: "Event one", Lang: "en"},
		"n":     quad.TypedString{Value: "2", Type: "http://www.w3.org/2001/XMLSchema#integer"},
	},
	{
		"x":     quad.BNode("b0"),
		"label": quad.String("plain"),
	},
	{
		"x":     quad.IRI("http://example.org/records/event/3"),
		"label": quad.String("typed plain"),
	},
}

func openTest(t *testing.T, srv *httptest.Server, format Format) *Store {
	t.Helper()
	s, err := Open(Config{Endpoint: srv.URL + "/", Repository: "lynching", Format: format})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestOpenRequiresEndpointAndRepository(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	cases := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"no endpoint", Config{Repository: "r"}, "Endpoint"},
		{"relative endpoint", Config{Endpoint: "localhost", Repository: "r"}, "Endpoint"},
		{"no repository", Config{Endpoint: srv.URL}, "Repository"},
		{"bad format", Config{Endpoint: srv.URL, Repository: "r", Format: "csv"}, "Format"},
		{"negative timeout", Config{Endpoint: srv.URL, Repository: "r", Timeout: -1}, "Timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Open(tc.cfg)
			assert.Nil(t, s)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
	assert.Zero(t, hits.Load(), "Open must not touch the network")
}

func TestOpenDefaults(t *testing.T) {
	s, err := Open(Config{Endpoint: "http://localhost:8080/openrdf-sesame/", Repository: "my repo"})
	require.NoError(t, err)
	assert.Equal(t, FormatXML, s.Format())
	assert.Equal(t, "http://localhost:8080/openrdf-sesame", s.Endpoint())
	assert.Equal(t, "http://localhost:8080/openrdf-sesame/repositories/my%20repo", s.RepositoryURL())
	assert.True(t, s.IsOpen())
	s.Close()
	assert.False(t, s.IsOpen())
	_, err = s.Query(context.Background(), "SELECT * WHERE {}", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestIndependentStores(t *testing.T) {
	a, err := Open(Config{Endpoint: "http://a.example", Repository: "one"})
	require.NoError(t, err)
	b, err := Open(Config{Endpoint: "http://b.example", Repository: "two", Format: FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "http://a.example/repositories/one", a.RepositoryURL())
	assert.Equal(t, "http://b.example/repositories/two", b.RepositoryURL())
	assert.Equal(t, FormatXML, a.Format())
	assert.Equal(t, FormatJSON, b.Format())
}

func TestQuerySendsFormAndBindings(t *testing.T) {
	var got url.Values
	var accept, path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path, accept = r.Method, r.URL.Path, r.Header.Get("Accept")
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", MediaTypeJSON)
		_, _ = io.WriteString(w, jsonDoc)
	}))
	defer srv.Close()

	s := openTest(t, srv, FormatJSON)
	rows, err := s.Query(context.Background(), "SELECT ?x WHERE { ?v0 ?p ?x . }", map[string]quad.Value{
		"v0":   quad.IRI("http://example.org/records/event/1"),
		"?n":   quad.Int(3),
		"name": quad.LangString{Value: `say "hi"`, Lang: "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, wantRows, rows)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/repositories/lynching", path)
	assert.Equal(t, MediaTypeJSON, accept)
	assert.Equal(t, "SELECT ?x WHERE { ?v0 ?p ?x . }", got.Get("query"))
	assert.Equal(t, "<http://example.org/records/event/1>", got.Get("$v0"))
	assert.Equal(t, `"3"^^<http://www.w3.org/2001/XMLSchema#integer>`, got.Get("$n"))
	assert.Equal(t, `"say \"hi\""@en`, got.Get("$name"))
	assert.NotContains(t, got.Get("query"), "event/1")
}

func TestXMLAndJSONParseIdentically(t *testing.T) {
	fromXML, err := ParseResults(FormatXML, strings.NewReader(xmlDoc))
	require.NoError(t, err)
	fromJSON, err := ParseResults(FormatJSON, strings.NewReader(jsonDoc))
	require.NoError(t, err)
	assert.Equal(t, wantRows, fromXML)
	assert.Equal(t, fromXML, fromJSON)
}

func TestQueryXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MediaTypeXML, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", MediaTypeXML+";charset=UTF-8")
		_, _ = io.WriteString(w, xmlDoc)
	}))
	defer srv.Close()

	rows, err := openTest(t, srv, FormatXML).Query(context.Background(), "SELECT * WHERE { ?x ?p ?o }", nil)
	require.NoError(t, err)
	assert.Equal(t, wantRows, rows)
}

func TestResponseContentTypeWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", MediaTypeJSON)
		_, _ = io.WriteString(w, jsonDoc)
	}))
	defer srv.Close()

	rows, err := openTest(t, srv, FormatXML).Query(context.Background(), "SELECT * WHERE { ?x ?p ?o }", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		body   string
	}{
		{"xml garbage", FormatXML, "<sparql><results><result>"},
		{"xml boolean", FormatXML, `<sparql><head/><boolean>true</boolean></sparql>`},
		{"xml empty binding", FormatXML, `<sparql><results><result><binding name="x"/></result></results></sparql>`},
		{"json garbage", FormatJSON, "{"},
		{"json boolean", FormatJSON, `{"head":{},"boolean":true}`},
		{"json unknown type", FormatJSON, `{"results":{"bindings":[{"x":{"type":"triple","value":"?"}}]}}`},
		{"json missing results", FormatJSON, `{"head":{"vars":[]}}`},
		{"unknown format", Format("csv"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResults(tc.format, strings.NewReader(tc.body))
			var pe *ResultParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.format, pe.Format)
		})
	}
}

func TestEmptyResults(t *testing.T) {
	rows, err := ParseResults(FormatXML, strings.NewReader(`<sparql><head/><results/></sparql>`))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ParseResults(FormatJSON, strings.NewReader(`{"head":{"vars":[]},"results":{"bindings":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProtocolErrorDescription(t *testing.T) {
	tomcat := `<html><head><title>Apache Tomcat - Error report</title></head><body>
<h1>HTTP Status 400 - </h1><hr/>
<p><b>type</b> Status report</p>
<p><b>message</b> <u>MALFORMED QUERY</u></p>
<p><b>description</b> <u>The request sent by the client was syntactically incorrect.</u></p>
</body></html>`

	cases := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"tomcat html", "text/html;charset=utf-8", tomcat, "The request sent by the client was syntactically incorrect."},
		{"html message only", "text/html", `<p><b>message</b> <u>Unknown repository</u></p>`, "Unknown repository"},
		{"json message", "application/json", `{"message": "query timed out"}`, "query timed out"},
		{"json error", "application/json", `{"error": "bad request"}`, "bad request"},
		{"plain text", "text/plain", "  MALFORMED QUERY: Encountered \"}\"\n", `MALFORMED QUERY: Encountered "}"`},
		{"html without labels", "text/html", "<p>oops</p>", "<p>oops</p>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := openTest(t, srv, FormatXML).Query(context.Background(), "SELECT", nil)
			var pe *ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, http.StatusBadRequest, pe.Status)
			assert.Equal(t, tc.want, pe.Message)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	s := openTest(t, srv, FormatXML)
	srv.Close()

	_, err := s.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }", nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodPost, te.Op)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestQueryHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := openTest(t, srv, FormatXML).Query(ctx, "SELECT * WHERE { ?s ?p ?o }", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepositories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/repositories", r.URL.Path)
		w.Header().Set("Content-Type", MediaTypeJSON)
		_, _ = io.WriteString(w, `{"head":{"vars":["uri","id","title","readable","writable"]},
"results":{"bindings":[
 {"uri":{"type":"uri","value":"http://localhost/repositories/lynching"},
  "id":{"type":"literal","value":"lynching"},
  "title":{"type":"literal","value":"Lynching records"},
  "readable":{"type":"typed-literal","value":"true","datatype":"http://www.w3.org/2001/XMLSchema#boolean"},
  "writable":{"type":"typed-literal","value":"false","datatype":"http://www.w3.org/2001/XMLSchema#boolean"}},
 {"uri":{"type":"uri","value":"http://localhost/repositories/SYSTEM"},
  "id":{"type":"literal","value":"SYSTEM"}}
]}}`)
	}))
	defer srv.Close()

	s := openTest(t, srv, FormatJSON)
	repos, err := s.Repositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, Repository{
		ID:       "lynching",
		Title:    "Lynching records",
		URI:      "http://localhost/repositories/lynching",
		Readable: true,
		Writable: false,
	}, repos[0])
	assert.Equal(t, "SYSTEM", repos[1].ID)

	ok, err := s.Contains(context.Background(), "lynching")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Contains(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncodeTerm(t *testing.T) {
	cases := []struct {
		in   quad.Value
		want string
	}{
		{quad.IRI("http://example.org/a"), "<http://example.org/a>"},
		{quad.BNode("b1"), "_:b1"},
		{quad.String("line\nbreak"), `"line\nbreak"`},
		{quad.TypedString{Value: "1901-05-04", Type: "http://www.w3.org/2001/XMLSchema#date"}, `"1901-05-04"^^<http://www.w3.org/2001/XMLSchema#date>`},
		{quad.Int(-4), `"-4"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{quad.Bool(true), `"true"^^<http://www.w3.org/2001/XMLSchema#boolean>`},
		{quad.Float(1.5), `"1.5"^^<http://www.w3.org/2001/XMLSchema#double>`},
	}
	for _, tc := range cases {
		got, err := EncodeTerm(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
	_, err := EncodeTerm(nil)
	assert.Error(t, err)
}
