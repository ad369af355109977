package metrics

// MetricsRegistry is the collection surface the scan and probe phases record
// against. The package default registry is held behind this interface so a
// test can swap in a capturing fake with SetDefault.
type MetricsRegistry interface {
	// SetEnabled enables or disables metrics collection.
	SetEnabled(enabled bool)

	// IsEnabled returns whether metrics collection is enabled.
	IsEnabled() bool

	// Counter increments a counter metric.
	Counter(name string, labels Labels)

	// Gauge sets a gauge metric to the given value.
	Gauge(name string, value float64, labels Labels)

	// Histogram records a value in a histogram metric.
	Histogram(name string, value float64, labels Labels)

	// GetMetrics returns a snapshot of all current metrics.
	GetMetrics() map[string]*Metric

	// Reset clears all metrics from the registry.
	Reset()
}

var _ MetricsRegistry = (*Registry)(nil)
