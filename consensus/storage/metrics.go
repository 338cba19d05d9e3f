package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters and gauges a BlockStore updates as it
// runs. They are in-process instrumentation only; nothing here is
// wire format or a reporting surface.
type Metrics struct {
	blocksInserted   prometheus.Counter
	votesReceived    *prometheus.CounterVec
	commits          prometheus.Counter
	committedRound   prometheus.Gauge
	treeSize         prometheus.Gauge
	execDivergence   prometheus.Counter
	equivocations    prometheus.Counter
}

// NewMetrics registers a fresh set of metrics against reg. Passing nil
// creates the metrics without registering them anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		blocksInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "block_store_blocks_inserted_total",
			Help: "Number of blocks successfully executed and inserted into the tree.",
		}),
		votesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "block_store_votes_received_total",
			Help: "Votes received, partitioned by reception outcome.",
		}, []string{"kind"}),
		commits: factory.NewCounter(prometheus.CounterOpts{
			Name: "block_store_commits_total",
			Help: "Number of successful commit operations.",
		}),
		committedRound: factory.NewGauge(prometheus.GaugeOpts{
			Name: "block_store_committed_round",
			Help: "Round of the most recently committed block.",
		}),
		treeSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "block_store_tree_size",
			Help: "Number of blocks currently held in the in-memory tree.",
		}),
		execDivergence: factory.NewCounter(prometheus.CounterOpts{
			Name: "block_store_execution_divergence_total",
			Help: "Number of times a QC's asserted state root disagreed with local execution.",
		}),
		equivocations: factory.NewCounter(prometheus.CounterOpts{
			Name: "block_store_equivocating_votes_total",
			Help: "Number of votes rejected as equivocation.",
		}),
	}
}

func (m *Metrics) observeVote(kind string) {
	if m == nil {
		return
	}
	m.votesReceived.WithLabelValues(kind).Inc()
}
