package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/portscout/internal/portlist"
	"github.com/anstrom/portscout/internal/probe"
	"github.com/anstrom/portscout/internal/report"
)

// displayReport renders the scan outcome: an open-port table, optionally the
// closed ports, and the per-list breakdown when the scan came from port
// lists.
func displayReport(r *report.Report, showClosed bool) {
	fmt.Printf("\nScan report for %s (%d ports in %s)\n",
		r.Host, r.TotalScanned, r.Duration.Round(time.Millisecond))
	fmt.Printf("Open: %d  Closed: %d\n\n", r.OpenCount(), r.ClosedCount())

	if r.OpenCount() == 0 {
		fmt.Println("No open ports found")
	} else {
		displayOpenPorts(r.Open)
	}

	if showClosed && r.ClosedCount() > 0 {
		fmt.Printf("\nClosed ports: %s\n", joinPorts(r.Closed))
	}

	if len(r.Categories) > 0 {
		fmt.Println()
		displayCategories(r.Categories)
	}
}

func displayOpenPorts(open []report.PortReport) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Port", "Status", "Service", "Version", "Confidence")

	for _, pr := range open {
		service, version, confidence := describeDetection(pr)
		_ = table.Append([]string{
			strconv.Itoa(pr.Port),
			"open",
			service,
			version,
			confidence,
		})
	}
	_ = table.Render()

	for _, pr := range open {
		displayDetectionDetails(pr)
	}
}

// describeDetection flattens one port's identification for the table,
// falling back to the port list label when detection was skipped.
func describeDetection(pr report.PortReport) (service, version, confidence string) {
	if pr.Detection == nil {
		if pr.Label != "" {
			return pr.Label, "", ""
		}
		return "-", "", ""
	}
	return pr.Detection.Service, pr.Detection.Version, string(pr.Detection.Confidence)
}

// displayDetectionDetails prints the extra HTTP and banner context gathered
// for a port, one indented line per fact.
func displayDetectionDetails(pr report.PortReport) {
	if pr.Detection == nil || len(pr.Detection.Details) == 0 {
		return
	}

	keys := make([]string, 0, len(pr.Detection.Details))
	for key := range pr.Detection.Details {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Printf("  %d/tcp:\n", pr.Port)
	for _, key := range keys {
		fmt.Printf("    %s: %v\n", key, pr.Detection.Details[key])
	}
}

func displayCategories(categories []report.CategorySummary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("List", "Description", "Open/Total", "Open Ports")

	for _, c := range categories {
		openPorts := "-"
		if len(c.OpenPorts) > 0 {
			openPorts = joinPorts(c.OpenPorts)
		}
		_ = table.Append([]string{
			c.Name,
			c.Description,
			fmt.Sprintf("%d/%d", len(c.OpenPorts), c.Total),
			openPorts,
		})
	}
	_ = table.Render()
}

// listPreviewLen caps how many ports are shown per list in --show-lists.
const listPreviewLen = 5

// displayPortLists renders every configured port list with its size and a
// short preview of its ports.
func displayPortLists(registry *portlist.Registry) {
	fmt.Printf("Configured port lists (%d):\n\n", registry.Len())

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("List", "Description", "Count", "Ports")

	for _, group := range registry.Groups() {
		ports := make([]int, 0, len(group.Ports))
		for port := range group.Ports {
			ports = append(ports, port)
		}
		sort.Ints(ports)

		preview := ports
		if len(preview) > listPreviewLen {
			preview = preview[:listPreviewLen]
		}
		entries := make([]string, 0, len(preview))
		for _, port := range preview {
			entries = append(entries, fmt.Sprintf("%d (%s)", port, group.Ports[port]))
		}
		if len(ports) > listPreviewLen {
			entries = append(entries, fmt.Sprintf("+%d more", len(ports)-listPreviewLen))
		}

		_ = table.Append([]string{
			group.Name,
			group.Description,
			strconv.Itoa(len(ports)),
			strings.Join(entries, ", "),
		})
	}
	_ = table.Render()

	fmt.Printf("\nUse --list <name> to scan a list, or --list %s for every list\n", portlist.AllName)
}

// displayCapabilities reports which probe strategies this build carries and
// which one the current invocation selected.
func displayCapabilities(selected probe.Fetcher) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Capability", "Status", "Notes")

	_ = table.Append([]string{
		"HTTP fingerprinting (enhanced)",
		"available",
		"redirect capture, response timing, self-signed TLS",
	})
	_ = table.Append([]string{
		"HTTP fingerprinting (basic)",
		"available",
		"plain GET, follows redirects",
	})
	_ = table.Append([]string{
		"Database version probes",
		"available",
		"Redis INFO, Elasticsearch cluster info",
	})
	_ = table.Append([]string{
		"Banner grabbing",
		"available",
		"multi-probe with keyword classification",
	})
	_ = table.Append([]string{
		"Table rendering",
		"available",
		"tablewriter output for reports and lists",
	})
	_ = table.Render()

	fmt.Printf("\nSelected HTTP strategy: %s\n", selected.Method())
}

func joinPorts(ports []int) string {
	entries := make([]string, 0, len(ports))
	for _, port := range ports {
		entries = append(entries, strconv.Itoa(port))
	}
	return strings.Join(entries, ", ")
}
