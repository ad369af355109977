package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	registry := NewRegistry()

	registry.Counter(MetricPortsScanned, Labels{LabelHost: "localhost", LabelStatus: "open"})
	registry.Counter(MetricPortsScanned, Labels{LabelHost: "localhost", LabelStatus: "open"})
	registry.Counter(MetricPortsScanned, Labels{LabelHost: "localhost", LabelStatus: "closed"})

	metrics := registry.GetMetrics()
	require.Len(t, metrics, 2)

	var openCount float64
	for _, m := range metrics {
		assert.Equal(t, TypeCounter, m.Type)
		if m.Labels[LabelStatus] == "open" {
			openCount = m.Value
		}
	}
	assert.Equal(t, float64(2), openCount)
}

func TestGauge(t *testing.T) {
	registry := NewRegistry()

	registry.Gauge("worker_pool_size", 50, nil)
	registry.Gauge("worker_pool_size", 10, nil)

	metrics := registry.GetMetrics()
	require.Len(t, metrics, 1)
	for _, m := range metrics {
		assert.Equal(t, TypeGauge, m.Type)
		assert.Equal(t, float64(10), m.Value)
	}
}

func TestHistogram(t *testing.T) {
	registry := NewRegistry()

	registry.Histogram(MetricScanDuration, 0.5, Labels{LabelHost: "localhost"})
	registry.Histogram(MetricScanDuration, 1.2, Labels{LabelHost: "localhost"})

	metrics := registry.GetMetrics()
	require.Len(t, metrics, 1)
	for _, m := range metrics {
		assert.Equal(t, TypeHistogram, m.Type)
		assert.Equal(t, 1.2, m.Value)
	}
}

func TestSetEnabled(t *testing.T) {
	registry := NewRegistry()
	registry.SetEnabled(false)

	registry.Counter("ignored", nil)
	assert.Empty(t, registry.GetMetrics())

	registry.SetEnabled(true)
	registry.Counter("recorded", nil)
	assert.Len(t, registry.GetMetrics(), 1)
}

func TestReset(t *testing.T) {
	registry := NewRegistry()
	registry.Counter("a", nil)
	registry.Gauge("b", 1, nil)

	registry.Reset()
	assert.Empty(t, registry.GetMetrics())
}

func TestGetMetricsReturnsCopies(t *testing.T) {
	registry := NewRegistry()
	registry.Counter("a", Labels{"k": "v"})

	snapshot := registry.GetMetrics()
	for _, m := range snapshot {
		m.Value = 999
		m.Labels["k"] = "mutated"
	}

	fresh := registry.GetMetrics()
	for _, m := range fresh {
		assert.Equal(t, float64(1), m.Value)
		assert.Equal(t, "v", m.Labels["k"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Counter(MetricProbesTotal, Labels{LabelTier: "banner"})
		}()
	}
	wg.Wait()

	metrics := registry.GetMetrics()
	require.Len(t, metrics, 1)
	for _, m := range metrics {
		assert.Equal(t, float64(50), m.Value)
	}
}

func TestTimer(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	registry := NewRegistry()
	SetDefault(registry)

	timer := NewTimer(MetricProbeDuration, Labels{LabelTier: "http"})
	time.Sleep(10 * time.Millisecond)
	timer.Stop()

	metrics := registry.GetMetrics()
	require.Len(t, metrics, 1)
	for _, m := range metrics {
		assert.Equal(t, TypeHistogram, m.Type)
		assert.GreaterOrEqual(t, m.Value, 0.01)
	}
}

// capturingRegistry is a minimal MetricsRegistry for asserting what the
// package-level functions record.
type capturingRegistry struct {
	counters   []string
	histograms []string
}

func (c *capturingRegistry) SetEnabled(bool) {}
func (c *capturingRegistry) IsEnabled() bool { return true }
func (c *capturingRegistry) Counter(name string, _ Labels) {
	c.counters = append(c.counters, name)
}
func (c *capturingRegistry) Gauge(string, float64, Labels) {}
func (c *capturingRegistry) Histogram(name string, _ float64, _ Labels) {
	c.histograms = append(c.histograms, name)
}
func (c *capturingRegistry) GetMetrics() map[string]*Metric { return nil }
func (c *capturingRegistry) Reset()                         {}

func TestDefaultRegistryInjection(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	fake := &capturingRegistry{}
	SetDefault(fake)

	Counter(MetricPortsScanned, Labels{LabelHost: "localhost"})
	Histogram(MetricScanDuration, 0.5, Labels{LabelHost: "localhost"})

	assert.Equal(t, []string{MetricPortsScanned}, fake.counters)
	assert.Equal(t, []string{MetricScanDuration}, fake.histograms)
}

func TestHelperFunctions(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	registry := NewRegistry()
	SetDefault(registry)

	IncrementPortsScanned("localhost", "open")
	IncrementTierHit("ssh", "high")
	RecordScanDuration("localhost", 250*time.Millisecond)

	assert.Len(t, registry.GetMetrics(), 3)
}
