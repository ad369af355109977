// Package report aggregates scan results and service detections into a
// single summary suitable for rendering.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/portscout/internal/portlist"
	"github.com/anstrom/portscout/internal/probe"
	"github.com/anstrom/portscout/internal/scanning"
)

// PortReport is one open port with whatever identification was gathered.
type PortReport struct {
	Port      int
	Label     string
	Detection *probe.Detection
}

// CategorySummary breaks down open ports by the port list they came from.
type CategorySummary struct {
	Name        string
	Description string
	OpenPorts   []int
	Total       int
}

// Report is the complete outcome of one scan run.
type Report struct {
	RunID        string
	Host         string
	StartedAt    time.Time
	Duration     time.Duration
	Open         []PortReport
	Closed       []int
	TotalScanned int
	Categories   []CategorySummary
	Interrupted  bool
}

// Options carry the run metadata the aggregation cannot derive from the
// results themselves.
type Options struct {
	RunID       string
	Host        string
	StartedAt   time.Time
	Duration    time.Duration
	Labels      map[int]string
	Registry    *portlist.Registry
	Interrupted bool
}

// Aggregate builds a report from raw scan results and per-port detections.
// Open and closed ports are listed in ascending order, and the category
// breakdown follows the registry's deterministic group order.
func Aggregate(results []scanning.Result, detections map[int]probe.Detection, opts Options) *Report {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	r := &Report{
		RunID:        runID,
		Host:         opts.Host,
		StartedAt:    opts.StartedAt,
		Duration:     opts.Duration,
		TotalScanned: len(results),
		Interrupted:  opts.Interrupted,
	}

	openSet := make(map[int]bool)
	for _, result := range results {
		if !result.Open {
			r.Closed = append(r.Closed, result.Port)
			continue
		}
		openSet[result.Port] = true

		pr := PortReport{Port: result.Port, Label: opts.Labels[result.Port]}
		if detection, ok := detections[result.Port]; ok {
			d := detection
			pr.Detection = &d
		}
		r.Open = append(r.Open, pr)
	}

	sort.Slice(r.Open, func(i, j int) bool { return r.Open[i].Port < r.Open[j].Port })
	sort.Ints(r.Closed)

	if opts.Registry != nil {
		for _, group := range opts.Registry.Groups() {
			summary := CategorySummary{
				Name:        group.Name,
				Description: group.Description,
				Total:       len(group.Ports),
			}
			for port := range group.Ports {
				if openSet[port] {
					summary.OpenPorts = append(summary.OpenPorts, port)
				}
			}
			sort.Ints(summary.OpenPorts)
			r.Categories = append(r.Categories, summary)
		}
	}

	return r
}

// OpenCount returns how many scanned ports were open.
func (r *Report) OpenCount() int { return len(r.Open) }

// ClosedCount returns how many scanned ports were closed.
func (r *Report) ClosedCount() int { return len(r.Closed) }

// OpenPorts returns the ascending list of open port numbers.
func (r *Report) OpenPorts() []int {
	ports := make([]int, 0, len(r.Open))
	for _, pr := range r.Open {
		ports = append(ports, pr.Port)
	}
	return ports
}
