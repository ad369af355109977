package probe

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxBannerLength caps how much of a banner is kept and reported.
const maxBannerLength = 200

// bannerReadTimeout bounds each individual read while cycling probes on one
// connection, so a quiet service cannot stall the whole probe sequence.
const bannerReadTimeout = 2 * time.Second

// bannerKeyword pairs a lowercase banner substring with the service it
// indicates. Matching is first-hit over the ordered table.
type bannerKeyword struct {
	keyword string
	service string
}

var bannerKeywords = []bannerKeyword{
	{"ssh", "SSH"},
	{"http", "HTTP"},
	{"html", "HTTP"},
	{"ftp", "FTP"},
	{"smtp", "SMTP"},
	{"pop3", "POP3"},
	{"imap", "IMAP"},
	{"mysql", "MySQL"},
	{"postgresql", "PostgreSQL"},
	{"redis", "Redis"},
	{"mongodb", "MongoDB"},
	{"elastic", "Elasticsearch"},
}

var versionTokenPattern = regexp.MustCompile(`\d[\d.]*`)

// grabBanner coaxes a banner out of an unknown service. A single connection
// is reused across a fixed probe sequence: wait silently, then an HTTP GET,
// then a bare line terminator, then HELP. The first non-empty reply wins and
// is truncated for reporting.
func (d *Detector) grabBanner(ctx context.Context, host string, port int, timeout time.Duration) (string, bool) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return "", false
	}
	defer conn.Close()

	probes := []string{
		"",
		fmt.Sprintf("GET / HTTP/1.1\r\nHost: %s\r\n\r\n", host),
		"\r\n",
		"HELP\r\n",
	}

	readTimeout := bannerReadTimeout
	if timeout < readTimeout {
		readTimeout = timeout
	}

	buf := make([]byte, 1024)
	for _, probe := range probes {
		if ctx.Err() != nil {
			return "", false
		}
		if probe != "" {
			if _, err := conn.Write([]byte(probe)); err != nil {
				return "", false
			}
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		banner := strings.TrimSpace(string(buf[:n]))
		if banner == "" {
			continue
		}
		if len(banner) > maxBannerLength {
			banner = banner[:maxBannerLength]
		}
		return banner, true
	}
	return "", false
}

// detectionFromBanner classifies a captured banner. Only the banner's first
// line is consulted: a keyword hit there yields a medium-confidence
// detection, with the first numeric token of that line taken as the version.
// An unrecognized first line is still reported, truncated, at low
// confidence.
func detectionFromBanner(banner string) Detection {
	details := map[string]any{"banner": banner}

	firstLine, _, _ := strings.Cut(banner, "\n")
	firstLine = strings.TrimSpace(firstLine)
	lower := strings.ToLower(firstLine)

	for _, kw := range bannerKeywords {
		if strings.Contains(lower, kw.keyword) {
			return Detection{
				Service:    kw.service,
				Version:    versionTokenPattern.FindString(firstLine),
				Confidence: ConfidenceMedium,
				Method:     MethodBasic,
				Details:    details,
			}
		}
	}

	if len(firstLine) > 30 {
		firstLine = firstLine[:30]
	}
	return Detection{
		Service:    firstLine,
		Confidence: ConfidenceLow,
		Method:     MethodBasic,
		Details:    details,
	}
}
