package batch

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts batch write activity. Collectors are created unregistered.
type Metrics struct {
	Chunks      prometheus.Counter
	Retries     prometheus.Counter
	Unprocessed *prometheus.CounterVec
}

// NewMetrics creates batch write metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch_write",
			Name:      "chunks_total",
			Help:      "Total number of batch write chunks dispatched",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch_write",
			Name:      "retries_total",
			Help:      "Total number of resends of unprocessed items",
		}),
		Unprocessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch_write",
			Name:      "unprocessed_items_total",
			Help:      "Write requests left unprocessed after retries were exhausted",
		}, []string{"table"}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Chunks, m.Retries, m.Unprocessed} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) chunk() {
	if m != nil {
		m.Chunks.Inc()
	}
}

func (m *Metrics) retry() {
	if m != nil {
		m.Retries.Inc()
	}
}

func (m *Metrics) unprocessed(leftovers map[string][]types.WriteRequest) {
	if m == nil {
		return
	}
	for table, requests := range leftovers {
		m.Unprocessed.WithLabelValues(table).Add(float64(len(requests)))
	}
}
