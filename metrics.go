package fcbatch

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsTracker registers and measures load run durations and instant metrics.
type MetricsTracker interface {
	// Add registers the measurement in the metrics tracker with the following description.
	Add(measurement, description string)
	// Start launches the measurement duration timer.
	Start(measurement string)
	// Stop stops the measurement timer and registers the time diff in the metrics tracker.
	Stop(measurement string)
	// Set registers the measurement value in the metrics tracker. Should be
	// used to register instant metrics.
	Set(measurement, value string)
}

// emptyMetricsTracker is used when no metrics tracker is needed. It just does nothing on every call.
type emptyMetricsTracker struct{}

func (emptyMetricsTracker) Add(measurement, description string) {}
func (emptyMetricsTracker) Start(measurement string)            {}
func (emptyMetricsTracker) Stop(measurement string)             {}
func (emptyMetricsTracker) Set(measurement, value string)       {}

// NewPrometheusMetricsTracker returns a MetricsTracker backed by prometheus
// gauges. Duration measurements are exposed in microseconds.
func NewPrometheusMetricsTracker(prefix string) *PrometheusMetricsTracker {
	return &PrometheusMetricsTracker{
		prefix: prefix,
		gauges: make(map[string]prometheus.Gauge),
		starts: make(map[string]time.Time),
	}
}

// PrometheusMetricsTracker implements MetricsTracker on top of promauto gauges.
type PrometheusMetricsTracker struct {
	mu     sync.Mutex
	prefix string
	gauges map[string]prometheus.Gauge
	starts map[string]time.Time
}

// Add registers a gauge for the measurement. Registering the same measurement
// twice keeps the first gauge.
func (t *PrometheusMetricsTracker) Add(measurement, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.gauges[measurement]; ok {
		return
	}
	t.gauges[measurement] = promauto.NewGauge(prometheus.GaugeOpts{
		Name: fmt.Sprintf("%s_%s", t.prefix, measurement),
		Help: description,
	})
}

// Start launches the measurement duration timer.
func (t *PrometheusMetricsTracker) Start(measurement string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[measurement] = time.Now()
}

// Stop stops the measurement timer and sets the gauge to the elapsed microseconds.
func (t *PrometheusMetricsTracker) Stop(measurement string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.starts[measurement]
	if !ok {
		return
	}
	delete(t.starts, measurement)
	if gauge, ok := t.gauges[measurement]; ok {
		gauge.Set(float64(time.Since(start).Microseconds()))
	}
}

// Set parses the value as a float and sets the gauge to it. Unparsable values
// are dropped.
func (t *PrometheusMetricsTracker) Set(measurement, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	gauge, ok := t.gauges[measurement]
	if !ok {
		return
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		gauge.Set(v)
	}
}
