package writelock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "halodb_writelock_wait_seconds",
		Help:    "Time spent waiting to acquire the write lock",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	lockHeld = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "halodb_writelock_held",
		Help: "Number of handles in this process currently holding the write lock",
	})
)
