package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cayleygraph/quad"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Row is one solution: variable name to bound term. Unbound variables are absent.
type Row = map[string]quad.Value

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Store is a connection to one repository of a SPARQL store.
// It is safe for concurrent use.
type Store struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	closed atomic.Bool
}

// Open validates cfg and returns a Store. No request is made; a missing
// Endpoint or Repository is reported as a *ConfigError.
func Open(cfg Config) (*Store, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &Store{
		cfg:    cfg,
		client: cfg.HTTPClient,
		logger: cfg.Logger.With("repository", cfg.Repository),
	}, nil
}

// Endpoint returns the server base URL.
func (s *Store) Endpoint() string { return s.cfg.Endpoint }

// Repository returns the repository id.
func (s *Store) Repository() string { return s.cfg.Repository }

// Format returns the negotiated results encoding.
func (s *Store) Format() Format { return s.cfg.Format }

// IsOpen reports whether the store has not been closed.
func (s *Store) IsOpen() bool { return !s.closed.Load() }

// Close marks the store closed and releases idle connections.
func (s *Store) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.client.CloseIdleConnections()
}

// RepositoryURL is the query endpoint of the configured repository.
func (s *Store) RepositoryURL() string {
	return s.cfg.Endpoint + "/repositories/" + url.PathEscape(s.cfg.Repository)
}

// Query runs a SELECT query. Each binding is sent as a $name form parameter
// holding the N-Triples form of the term, so the query text stays the same
// across different bound values.
func (s *Store) Query(ctx context.Context, query string, bindings map[string]quad.Value) ([]Row, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	form := url.Values{}
	form.Set("query", query)
	if s.cfg.Infer != nil {
		form.Set("infer", strconv.FormatBool(*s.cfg.Infer))
	}
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		term, err := EncodeTerm(bindings[name])
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		form.Set("$"+strings.TrimPrefix(name, "?"), term)
	}

	ctx, span := tracer.Start(ctx, "sparql.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sparql.repository", s.cfg.Repository),
			attribute.Int("sparql.bindings", len(bindings)),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.RepositoryURL(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{Op: "POST", URL: s.RepositoryURL(), Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rows, err := s.roundTrip(req, span)
	if err != nil {
		s.logger.Warn("sparql query failed", "error", err)
		return nil, err
	}
	return rows, nil
}

// roundTrip sends req, records metrics and span status, and decodes the
// results document.
func (s *Store) roundTrip(req *http.Request, span trace.Span) ([]Row, error) {
	req.Header.Set("Accept", s.cfg.Format.MediaType())
	start := time.Now()
	outcome := outcomeOK
	defer func() {
		storeQueries.WithLabelValues(s.cfg.Repository, outcome).Inc()
		storeQueryDuration.WithLabelValues(s.cfg.Repository).Observe(time.Since(start).Seconds())
	}()

	fail := func(kind string, err error) ([]Row, error) {
		outcome = kind
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fail(outcomeTransport, &TransportError{Op: req.Method, URL: req.URL.String(), Err: err})
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(outcomeProtocol, &ProtocolError{
			Status:  resp.StatusCode,
			Message: describeError(resp.Header.Get("Content-Type"), body),
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(outcomeTransport, &TransportError{Op: "read", URL: req.URL.String(), Err: err})
	}
	format := s.responseFormat(resp.Header.Get("Content-Type"))
	rows, err := ParseResults(format, bytes.NewReader(body))
	if err != nil {
		var perr *ResultParseError
		if !errors.As(err, &perr) {
			err = &ResultParseError{Format: format, Err: err}
		}
		return fail(outcomeParse, err)
	}

	span.SetAttributes(attribute.Int("sparql.rows", len(rows)))
	s.logger.Debug("sparql round trip", "method", req.Method, "status", resp.StatusCode,
		"rows", len(rows), "elapsed", time.Since(start))
	return rows, nil
}

// responseFormat trusts the response Content-Type over the requested format.
func (s *Store) responseFormat(contentType string) Format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return s.cfg.Format
	}
	switch {
	case mt == MediaTypeJSON || strings.HasSuffix(mt, "+json") || mt == "application/json":
		return FormatJSON
	case mt == MediaTypeXML || strings.HasSuffix(mt, "+xml") || mt == "application/xml" || mt == "text/xml":
		return FormatXML
	default:
		return s.cfg.Format
	}
}
