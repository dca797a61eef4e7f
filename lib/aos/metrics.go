package aos

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

const unknownTable = "unknown"

// observe counts one operation per table, operation and result.
func (e *Engine) observe(namespace, op string, err error) {
	name := fmt.Sprintf(`aos_operations_total{table=%q,op=%q,result=%q}`, namespace, op, CodeOf(err))
	e.metrics.GetOrCreateCounter(name).Inc()
}

// observeCommit records how long a write took, commit included.
func (e *Engine) observeCommit(namespace string, start time.Time) {
	name := fmt.Sprintf(`aos_write_duration_seconds{table=%q}`, namespace)
	e.metrics.GetOrCreateHistogram(name).UpdateDuration(start)
}

// WritePrometheus writes the engine's operation counters and write latency
// histograms in Prometheus text format.
func (e *Engine) WritePrometheus(w io.Writer) {
	e.metrics.WritePrometheus(w)
}

func newMetricSet() *metrics.Set {
	return metrics.NewSet()
}
