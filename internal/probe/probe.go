// Package probe implements tiered service identification for open ports.
// The cascade is a strict, ordered decision procedure: SSH banner, HTTP
// fetch, database signature, generic banner grab, static fallback. Each tier
// runs only if the prior tiers produced nothing, and the first success wins.
package probe

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
	"github.com/anstrom/portscout/internal/metrics"
)

// Confidence is the qualitative strength of an identification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Method records which HTTP capability produced a detection.
type Method string

const (
	MethodBasic    Method = "basic"
	MethodEnhanced Method = "enhanced"
)

// Detection is the outcome of the identification cascade for one port.
// Detections from a direct protocol tier (SSH, HTTP, database) are never
// low confidence.
type Detection struct {
	Service    string
	Version    string
	Confidence Confidence
	Method     Method
	Details    map[string]any
}

// webPorts is the fixed set of well-known web ports that trigger the HTTP tier.
var webPorts = map[int]bool{
	80: true, 443: true, 8000: true, 8080: true, 8443: true,
	3000: true, 3001: true, 5000: true, 8888: true, 9000: true,
}

// databasePorts is the fixed set of ports that trigger the database tier.
var databasePorts = map[int]bool{
	3306: true, 5432: true, 6379: true, 27017: true,
	9200: true, 5984: true, 8086: true,
}

// staticServices maps well-known ports to their conventional service name,
// used as the lowest-confidence fallback.
var staticServices = map[int]string{
	21:    "FTP",
	22:    "SSH",
	25:    "SMTP",
	80:    "HTTP",
	110:   "POP3",
	143:   "IMAP",
	443:   "HTTPS",
	3000:  "Node.js/React",
	3001:  "Node.js Alt",
	3306:  "MySQL",
	5432:  "PostgreSQL",
	6379:  "Redis",
	8000:  "Django/Python",
	8080:  "HTTP-Alt",
	8443:  "HTTPS-Alt",
	9000:  "SonarQube",
	9200:  "Elasticsearch",
	27017: "MongoDB",
}

// Detector runs the identification cascade. The HTTP tier's fetch strategy
// is injected once at construction rather than chosen per call.
type Detector struct {
	fetcher Fetcher
	logger  *logging.Logger
}

// NewDetector creates a detector using the given HTTP fetch strategy.
func NewDetector(fetcher Fetcher, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{
		fetcher: fetcher,
		logger:  logger.WithComponent("probe"),
	}
}

// sshPort reports whether the port triggers the SSH tier.
func sshPort(port int) bool {
	return port == 22 || (port >= 20 && port <= 30)
}

// Identify runs the cascade against a port known to be open. It always
// returns a detection: when no tier produces a result, the best static
// label for the port is reported with low confidence. Tier errors are
// absorbed and the cascade proceeds.
func (d *Detector) Identify(ctx context.Context, host string, port int, timeout time.Duration) Detection {
	timer := metrics.NewTimer(metrics.MetricProbeDuration, metrics.Labels{
		metrics.LabelHost: host,
	})
	defer timer.Stop()

	detection := d.identify(ctx, host, port, timeout)
	metrics.Counter(metrics.MetricProbesTotal, metrics.Labels{
		metrics.LabelHost:       host,
		metrics.LabelConfidence: string(detection.Confidence),
	})
	return detection
}

func (d *Detector) identify(ctx context.Context, host string, port int, timeout time.Duration) Detection {
	if sshPort(port) {
		if banner, ok := d.detectSSH(ctx, host, port, timeout); ok {
			metrics.IncrementTierHit("ssh", string(ConfidenceHigh))
			return Detection{
				Service:    "SSH",
				Version:    banner,
				Confidence: ConfidenceHigh,
				Method:     MethodBasic,
			}
		}
	}

	if webPorts[port] {
		if info, err := d.fetcher.Fetch(ctx, host, port, timeout); err == nil && info != nil {
			metrics.IncrementTierHit("http", string(ConfidenceHigh))
			return detectionFromHTTP(info, d.fetcher.Method())
		} else if err != nil {
			d.logger.DebugProbe("HTTP tier produced no result", host, port,
				"error", errors.WrapProbeError("http", host, port, err))
		}
	}

	if databasePorts[port] {
		if service, ok := d.detectDatabase(ctx, host, port, timeout); ok {
			metrics.IncrementTierHit("database", string(ConfidenceMedium))
			return databaseDetection(service)
		}
	}

	if banner, ok := d.grabBanner(ctx, host, port, timeout); ok {
		detection := detectionFromBanner(banner)
		metrics.IncrementTierHit("banner", string(detection.Confidence))
		return detection
	}

	return staticDetection(port)
}

// detectionFromHTTP derives the service name with the documented precedence:
// framework match, then Server header product, then protocol.
func detectionFromHTTP(info *HTTPInfo, method Method) Detection {
	var service string
	switch {
	case info.Framework != "":
		service = info.Framework
	case info.Server != "" && info.Server != "Unknown":
		service = productOf(info.Server)
	case info.Protocol == "https":
		service = "HTTPS"
	default:
		service = "HTTP"
	}

	var version string
	if _, after, found := strings.Cut(info.Server, "/"); found {
		version = after
	}

	return Detection{
		Service:    service,
		Version:    version,
		Confidence: ConfidenceHigh,
		Method:     method,
		Details:    info.Details(),
	}
}

// productOf returns the product token of a Server header ("nginx/1.18.0"
// yields "nginx").
func productOf(server string) string {
	if idx := strings.IndexByte(server, '/'); idx > 0 {
		return server[:idx]
	}
	return server
}

// databaseDetection splits a database tier result ("Redis 6.0.9") into
// service and version.
func databaseDetection(service string) Detection {
	detection := Detection{
		Service:    service,
		Confidence: ConfidenceMedium,
		Method:     MethodBasic,
	}
	if name, version, found := strings.Cut(service, " "); found {
		detection.Service = name
		detection.Version = version
	}
	return detection
}

// staticDetection reports the best static label known for a port.
func staticDetection(port int) Detection {
	service, ok := staticServices[port]
	if !ok {
		service = "Unknown"
	}
	return Detection{
		Service:    service,
		Confidence: ConfidenceLow,
		Method:     MethodBasic,
	}
}

// IdentifyAll runs the cascade across the open-port set through a bounded
// worker pool of the given width, returning one detection per port. A panic
// escaping a single probe is absorbed and the port reported Unknown/low
// rather than aborting the batch.
func (d *Detector) IdentifyAll(
	ctx context.Context, host string, ports []int, timeout time.Duration, concurrency int,
) map[int]Detection {
	if len(ports) == 0 {
		return map[int]Detection{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(ports) {
		concurrency = len(ports)
	}

	type probeResult struct {
		port      int
		detection Detection
	}

	jobs := make(chan int)
	results := make(chan probeResult, len(ports))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range jobs {
				results <- probeResult{port, d.safeIdentify(ctx, host, port, timeout)}
			}
		}()
	}

feed:
	for _, port := range ports {
		select {
		case jobs <- port:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	detections := make(map[int]Detection, len(ports))
	for r := range results {
		detections[r.port] = r.detection
	}
	return detections
}

// safeIdentify isolates a single port's probe from the rest of the batch.
func (d *Detector) safeIdentify(ctx context.Context, host string, port int, timeout time.Duration) (detection Detection) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.DebugProbe("Probe panicked", host, port, "panic", r)
			detection = Detection{Service: "Unknown", Confidence: ConfidenceLow, Method: MethodBasic}
		}
	}()
	return d.Identify(ctx, host, port, timeout)
}
