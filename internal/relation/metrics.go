package relation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/roach88/halodb/internal/relation")

// NullReason labels why a traversal produced a null row.
type NullReason string

const (
	ReasonUnreachable NullReason = "unreachable"
	ReasonCeiling     NullReason = "ceiling"
	ReasonIllegalEdge NullReason = "illegal_edge"
)

var (
	nullRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "halodb_relation_null_rows_total",
		Help: "Traversal rows resolved to null, by reason",
	}, []string{"reason"})

	traversalHops = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "halodb_relation_hops",
		Help:    "Expansion steps spent per traversal",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
	}, []string{"relation"})
)
