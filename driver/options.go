package driver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Format selects the SPARQL results encoding requested from the store.
type Format string

const (
	// FormatXML requests application/sparql-results+xml.
	FormatXML Format = "xml"
	// FormatJSON requests application/sparql-results+json.
	FormatJSON Format = "json"
)

// MIME types of the two results encodings.
const (
	MediaTypeXML  = "application/sparql-results+xml"
	MediaTypeJSON = "application/sparql-results+json"
)

// DefaultTimeout bounds a single round trip when Config.Timeout is zero and
// no HTTPClient is supplied.
const DefaultTimeout = 30 * time.Second

// MediaType returns the Accept header value for the format.
func (f Format) MediaType() string {
	if f == FormatJSON {
		return MediaTypeJSON
	}
	return MediaTypeXML
}

// Config configures a Store. Endpoint and Repository are required.
type Config struct {
	// Endpoint is the server base URL, e.g. http://localhost:8080/openrdf-sesame.
	Endpoint string
	// Repository is the repository id queries are sent to.
	Repository string
	// Format is the negotiated results encoding. Defaults to FormatXML.
	Format Format
	// Timeout bounds each request when HTTPClient is nil.
	Timeout time.Duration
	// Infer toggles inferred statements. Nil leaves the server default.
	Infer *bool
	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
	// Logger receives request tracing. Defaults to slog.Default().
	Logger *slog.Logger
}

// validate checks required fields and fills defaults on a copy.
func (c Config) validate() (Config, error) {
	if strings.TrimSpace(c.Endpoint) == "" {
		return c, &ConfigError{Field: "Endpoint", Message: "is required"}
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return c, &ConfigError{Field: "Endpoint", Message: "must be an absolute URL"}
	}
	if strings.TrimSpace(c.Repository) == "" {
		return c, &ConfigError{Field: "Repository", Message: "is required"}
	}
	switch c.Format {
	case "":
		c.Format = FormatXML
	case FormatXML, FormatJSON:
	default:
		return c, &ConfigError{Field: "Format", Message: "must be xml or json, got " + string(c.Format)}
	}
	if c.Timeout < 0 {
		return c, &ConfigError{Field: "Timeout", Message: "must not be negative"}
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	return c, nil
}
