package storage

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type storeConf struct {
	maxPrunedBlocksInMem int
	logger               *slog.Logger
	metrics              *Metrics
}

// Option configures a BlockStore at construction time.
type Option func(c *storeConf)

func defaultConf() *storeConf {
	return &storeConf{
		maxPrunedBlocksInMem: 10,
		logger:               slog.Default(),
		metrics:              NewMetrics(nil),
	}
}

// WithMaxPrunedBlocksInMem bounds the retained, recently-evicted-blocks
// window used to answer late retrieval requests after a commit prunes
// a branch.
func WithMaxPrunedBlocksInMem(n int) Option {
	return func(c *storeConf) {
		c.maxPrunedBlocksInMem = n
	}
}

// WithLogger overrides the structured logger used for security events
// and operational logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *storeConf) {
		c.logger = l
	}
}

// WithMetricsRegisterer registers the store's counters/gauges against
// reg. Without it the metrics are created but not registered.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *storeConf) {
		c.metrics = NewMetrics(reg)
	}
}
