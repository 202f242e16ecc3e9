package live

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/roach88/halodb/internal/live")

var (
	evaluateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "halodb_live_evaluate_duration_seconds",
		Help:    "Duration of batch expression evaluations.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
	})

	evaluatedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "halodb_live_rows_total",
		Help: "Rows produced by expression evaluation, by whether the row is null.",
	}, []string{"result"})
)
