package scanning

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
	"github.com/anstrom/portscout/internal/metrics"
)

// Scanner dispatches port checks across a bounded worker pool. Workers pull
// from a shared port queue so no port is checked more than once, and every
// requested port yields exactly one Result unless the scan is canceled
// first.
type Scanner struct {
	checker Checker
	logger  *logging.Logger
}

// NewScanner creates a scanner backed by the given checker.
func NewScanner(checker Checker, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scanner{
		checker: checker,
		logger:  logger.WithComponent("scanner"),
	}
}

// Scan checks every port in the target set and returns one Result per port,
// sorted ascending by port. On cancellation it stops submitting new work and
// returns the results completed so far with a canceled-coded error wrapping
// the context error; no results are synthesized for unscanned ports.
func (s *Scanner) Scan(ctx context.Context, target Target) ([]Result, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer(metrics.MetricScanDuration, metrics.Labels{
		metrics.LabelHost: target.Host,
	})
	defer timer.Stop()

	workers := target.Concurrency
	if workers > len(target.Ports) {
		workers = len(target.Ports)
	}

	s.logger.InfoScan("Starting port scan", target.Host,
		"ports", len(target.Ports),
		"workers", workers,
		"timeout", target.Timeout)

	jobs := make(chan int)
	results := make(chan Result, len(target.Ports))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range jobs {
				results <- s.checkPort(ctx, target.Host, port, target.Timeout)
			}
		}()
	}

	// Feed the shared queue; stop submitting on cancellation. In-flight
	// checks finish or time out naturally.
	canceled := false
feed:
	for _, port := range target.Ports {
		select {
		case jobs <- port:
		case <-ctx.Done():
			canceled = true
			break feed
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	collected := make([]Result, 0, len(target.Ports))
	for result := range results {
		collected = append(collected, result)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Port < collected[j].Port
	})

	if canceled {
		s.logger.InfoScan("Scan interrupted", target.Host,
			"completed", len(collected), "requested", len(target.Ports))
		return collected, errors.WrapScanError(errors.CodeCanceled, "scan canceled", ctx.Err())
	}
	return collected, nil
}

// checkPort runs a single check with failure isolation: nothing escaping a
// per-port operation may abort sibling checks, so a panic is absorbed and
// the port reported closed.
func (s *Scanner) checkPort(ctx context.Context, host string, port int, timeout time.Duration) (result Result) {
	result = Result{Port: port, Open: false}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("Port check panicked", "host", host, "port", port, "panic", r)
			metrics.Counter(metrics.MetricCheckErrors, metrics.Labels{metrics.LabelHost: host})
			result = Result{Port: port, Open: false}
		}
	}()

	result.Open = s.checker.Check(ctx, host, port, timeout)

	status := "closed"
	if result.Open {
		status = "open"
	}
	metrics.IncrementPortsScanned(host, status)

	return result
}

// OpenPorts filters a result set down to the sorted list of open ports.
func OpenPorts(results []Result) []int {
	open := make([]int, 0, len(results))
	for _, r := range results {
		if r.Open {
			open = append(open, r.Port)
		}
	}
	sort.Ints(open)
	return open
}
