package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordsSchema = "../../records/records.rdfs"

// fakeStore serves the Sesame protocol endpoints the CLI touches and
// records every query form it receives.
type fakeStore struct {
	mu    sync.Mutex
	forms []map[string]string
	rows  string
}

func (f *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/repositories":
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = io.WriteString(w, `{"head":{"vars":["uri","id","title","readable","writable"]},
"results":{"bindings":[
 {"uri":{"type":"uri","value":"http://localhost/repositories/lynching"},
  "id":{"type":"literal","value":"lynching"},
  "title":{"type":"literal","value":"Lynching records"},
  "readable":{"type":"literal","value":"true","datatype":"http://www.w3.org/2001/XMLSchema#boolean"},
  "writable":{"type":"literal","value":"false","datatype":"http://www.w3.org/2001/XMLSchema#boolean"}}
]}}`)
	case r.Method == http.MethodPost && r.URL.Path == "/repositories/lynching":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.mu.Lock()
		f.forms = append(f.forms, form)
		rows := f.rows
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = io.WriteString(w, `{"head":{"vars":[]},"results":{"bindings":[`+rows+`]}}`)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (f *fakeStore) queries() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.forms...)
}

// setup starts a fake store and writes a config file pointing at it.
func setup(t *testing.T, rows string, extra string) (*fakeStore, string) {
	t.Helper()
	fs := &fakeStore{rows: rows}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	cfg := "store:\n  endpoint: " + srv.URL + "\n  repository: lynching\n  format: json\n" + extra
	path := filepath.Join(t.TempDir(), "sparqlorm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return fs, path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "sparqlorm", cmd.Use)
	for _, name := range []string{"config", "log-level", "format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
	for _, path := range [][]string{{"repos"}, {"query"}, {"objects"}, {"schema", "check"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "yaml", "schema", "check", recordsSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "schema", "check", recordsSchema)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBadConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "repos")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReposRequiresEndpoint(t *testing.T) {
	t.Setenv("SPARQLORM_STORE_ENDPOINT", "")
	_, err := execute(t, "repos")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open store")
}

func TestRepos(t *testing.T) {
	_, cfg := setup(t, "", "")

	out, err := execute(t, "--config", cfg, "repos")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "lynching")
	assert.Contains(t, out, "Lynching records")

	out, err = execute(t, "--config", cfg, "--format", "json", "repos")
	require.NoError(t, err)
	var repos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	require.Len(t, repos, 1)
	assert.Equal(t, "lynching", repos[0]["ID"])
	assert.Equal(t, true, repos[0]["Readable"])
}

func TestQuery(t *testing.T) {
	fs, cfg := setup(t, `
 {"s":{"type":"uri","value":"http://example.org/records/event/1"},
  "label":{"type":"literal","value":"Newnan","xml:lang":"en"}},
 {"s":{"type":"uri","value":"http://example.org/records/event/2"}}`, "")

	out, err := execute(t, "--config", cfg, "query",
		"SELECT ?s ?label WHERE { ?s <http://www.w3.org/2000/01/rdf-schema#label> ?label }",
		"--bind", "?p=<http://example.org/p>", "--bind", "n=3")
	require.NoError(t, err)

	assert.Contains(t, out, "label")
	assert.Contains(t, out, `"Newnan"@en`)
	assert.Contains(t, out, "<http://example.org/records/event/2>")
	assert.Contains(t, out, "2 row(s)")

	forms := fs.queries()
	require.Len(t, forms, 1)
	assert.Contains(t, forms[0]["query"], "rdf-schema#label")
	assert.Equal(t, "<http://example.org/p>", forms[0]["$p"])
	assert.Equal(t, `"3"^^<http://www.w3.org/2001/XMLSchema#integer>`, forms[0]["$n"])
}

func TestQueryJSONFromStdin(t *testing.T) {
	_, cfg := setup(t, `{"s":{"type":"bnode","value":"b0"}}`, "")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("SELECT ?s WHERE { ?s ?p ?o }"))
	cmd.SetArgs([]string{"--config", cfg, "--format", "json", "query", "-"})
	require.NoError(t, cmd.Execute())

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	assert.Equal(t, []map[string]string{{"s": "_:b0"}}, rows)
}

func TestQueryBadBinding(t *testing.T) {
	_, cfg := setup(t, "", "")
	_, err := execute(t, "--config", cfg, "query", "SELECT * WHERE { ?s ?p ?o }", "--bind", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseTerm(t *testing.T) {
	cases := []struct {
		in   string
		want quad.Value
	}{
		{"<http://example.org/a>", quad.IRI("http://example.org/a")},
		{"_:b1", quad.BNode("b1")},
		{`"plain"`, quad.String("plain")},
		{`"say \"hi\""`, quad.String(`say "hi"`)},
		{`"Newnan"@en`, quad.LangString{Value: "Newnan", Lang: "en"}},
		{`"1899-04-23"^^<http://www.w3.org/2001/XMLSchema#date>`,
			quad.TypedString{Value: "1899-04-23", Type: "http://www.w3.org/2001/XMLSchema#date"}},
		{"42", quad.Int(42)},
		{"2.5", quad.Float(2.5)},
		{"true", quad.Bool(true)},
	}
	for _, tc := range cases {
		got, err := parseTerm(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "<open", "_:", `"unterminated`, `"x"^^dt`, "word"} {
		_, err := parseTerm(bad)
		assert.Error(t, err, bad)
	}
}

func TestObjectsJSON(t *testing.T) {
	fs, cfg := setup(t, `
 {"v0":{"type":"uri","value":"http://example.org/records/victim/1"},
  "v0__name":{"type":"literal","value":"Sam Hose"}},
 {"v0":{"type":"uri","value":"http://example.org/records/victim/2"}}`, "")

	out, err := execute(t, "--config", cfg, "--format", "json",
		"objects", "Victim", "--schema", recordsSchema, "--fields", "name", "--limit", "2")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "http://example.org/records/victim/1", items[0]["@uri"])
	assert.Equal(t, float64(1), items[0]["@id"])
	assert.Equal(t, "Sam Hose", items[0]["name"])
	assert.Nil(t, items[1]["name"])

	forms := fs.queries()
	require.Len(t, forms, 1)
	assert.Contains(t, forms[0]["query"], "LIMIT 2")
	assert.Contains(t, forms[0]["query"], "<http://xmlns.com/foaf/0.1/name>")
}

func TestObjectsFromIDText(t *testing.T) {
	fs, cfg := setup(t, `
 {"v0__place":{"type":"uri","value":"http://example.org/records/place/5"}}`, "")

	out, err := execute(t, "--config", cfg, "objects", "Event",
		"--schema", recordsSchema, "--id", "1", "--fields", "place")
	require.NoError(t, err)
	assert.Contains(t, out, "Event <http://example.org/records/event/1>")
	assert.Contains(t, out, "place:")
	assert.Contains(t, out, "Place <http://example.org/records/place/5>")
	assert.Contains(t, out, "1 result(s)")

	forms := fs.queries()
	require.Len(t, forms, 1)
	assert.Equal(t, "<http://example.org/records/event/1>", forms[0]["$v0"])
}

func TestObjectsCount(t *testing.T) {
	_, cfg := setup(t, `
 {"count":{"type":"literal","value":"7","datatype":"http://www.w3.org/2001/XMLSchema#integer"}}`, "")

	out, err := execute(t, "--config", cfg, "objects", "Event", "--schema", recordsSchema, "--count")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestObjectsSPARQLDoesNotQuery(t *testing.T) {
	fs, cfg := setup(t, "", "")

	out, err := execute(t, "--config", cfg, "objects", "Event", "--schema", recordsSchema,
		"--fields", "victims,place", "--order", "-date", "--sparql")
	require.NoError(t, err)
	assert.Contains(t, out, "# primary")
	assert.Contains(t, out, "# target victims")
	assert.Contains(t, out, "DESC(?ord0_date)")
	assert.Empty(t, fs.queries())
}

func TestObjectsSPARQLJSONBindings(t *testing.T) {
	_, cfg := setup(t, "", "")

	out, err := execute(t, "--config", cfg, "--format", "json", "objects", "Event",
		"--schema", recordsSchema, "--uri", "http://example.org/records/event/9", "--sparql")
	require.NoError(t, err)

	var planned []struct {
		Target   string            `json:"target"`
		Query    string            `json:"query"`
		Bindings map[string]string `json:"bindings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &planned))
	require.Len(t, planned, 1)
	assert.Equal(t, "", planned[0].Target)
	assert.Equal(t, "<http://example.org/records/event/9>", planned[0].Bindings["v0"])
}

func TestObjectsErrors(t *testing.T) {
	_, cfg := setup(t, "", "")

	cases := [][]string{
		{"objects", "Nope", "--schema", recordsSchema, "--sparql"},
		{"objects", "Event", "--schema", recordsSchema, "--fields", "nosuch", "--sparql"},
		{"objects", "Event", "--schema", recordsSchema, "--id", "1", "--uri", "x:y", "--sparql"},
		{"objects", "Event", "--schema", recordsSchema, "--contains", "label", "--sparql"},
		{"objects", "Event", "--schema", "missing.rdfs"},
	}
	for _, args := range cases {
		_, err := execute(t, append([]string{"--config", cfg}, args...)...)
		require.Error(t, err, args)
		assert.Equal(t, ExitCommandError, GetExitCode(err), args)
	}

	_, err := execute(t, "--config", cfg, "objects", "Event")
	assert.Error(t, err, "--schema is required")
}

func TestObjectsStoreFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "MALFORMED QUERY", http.StatusBadRequest)
	}))
	defer srv.Close()
	t.Setenv("SPARQLORM_STORE_ENDPOINT", srv.URL)
	t.Setenv("SPARQLORM_STORE_REPOSITORY", "lynching")

	_, err := execute(t, "objects", "Place", "--schema", recordsSchema)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestObjectsThroughCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "rows.db")
	fs, cfg := setup(t, `{"v0":{"type":"uri","value":"http://example.org/records/place/5"}}`,
		"cache:\n  path: "+cachePath+"\n")

	for range 2 {
		out, err := execute(t, "--config", cfg, "objects", "Place", "--schema", recordsSchema)
		require.NoError(t, err)
		assert.Contains(t, out, "Place <http://example.org/records/place/5>")
	}
	assert.Len(t, fs.queries(), 1, "second run is served from the row cache")
}

func TestCacheSharedAcrossStores(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "rows.db")
	extra := "cache:\n  path: " + cachePath + "\n"
	fsA, cfgA := setup(t, `{"v0":{"type":"uri","value":"http://example.org/records/place/5"}}`, extra)
	fsB, cfgB := setup(t, `{"v0":{"type":"uri","value":"http://example.org/records/place/6"}}`, extra)

	out, err := execute(t, "--config", cfgA, "objects", "Place", "--schema", recordsSchema)
	require.NoError(t, err)
	assert.Contains(t, out, "place/5")

	out, err = execute(t, "--config", cfgB, "objects", "Place", "--schema", recordsSchema)
	require.NoError(t, err)
	assert.Contains(t, out, "place/6")
	assert.NotContains(t, out, "place/5")
	assert.Len(t, fsA.queries(), 1)
	assert.Len(t, fsB.queries(), 1)
}

func TestSchemaCheck(t *testing.T) {
	out, err := execute(t, "schema", "check", recordsSchema)
	require.NoError(t, err)
	assert.Contains(t, out, "Event <http://example.org/lynching#Event>")
	assert.Contains(t, out, "victims (multiple Victim): ?s <http://example.org/lynching#victim> ?o .")
	assert.Contains(t, out, "events (multiple Event): ?o <http://example.org/lynching#occurredIn> ?s .")
	assert.Contains(t, out, "ok: 4 type(s)")

	out, err = execute(t, "--format", "json", "schema", "check", recordsSchema)
	require.NoError(t, err)
	var types []typeView
	require.NoError(t, json.Unmarshal([]byte(out), &types))
	require.Len(t, types, 4)
	assert.Equal(t, "Event", types[0].Name)
}

func TestSchemaCheckInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.rdfs")
	require.NoError(t, os.WriteFile(path, []byte("entity A {\n  b ex:b -> Missing\n}\n"), 0o644))

	_, err := execute(t, "schema", "check", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
