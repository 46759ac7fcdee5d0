package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sparqlorm.driver")

var (
	storeQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sparqlorm_store_queries_total",
		Help: "Round trips to the SPARQL store by outcome",
	}, []string{"repository", "outcome"})

	storeQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sparqlorm_store_query_duration_seconds",
		Help:    "Duration of SPARQL store round trips",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"repository"})
)

// Outcome label values.
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeProtocol  = "protocol_error"
	outcomeParse     = "parse_error"
)
