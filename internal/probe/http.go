package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxBodyBytes bounds how much of a response body is read for framework
// and title matching.
const maxBodyBytes = 64 * 1024

// Fetcher is the HTTP tier's fetch strategy. Implementations are
// interchangeable and selected once at startup; the cascade never chooses
// per call.
type Fetcher interface {
	// Fetch performs one GET against the port and summarizes the response.
	// On 443 and 8443 HTTPS is attempted before plain HTTP.
	Fetch(ctx context.Context, host string, port int, timeout time.Duration) (*HTTPInfo, error)
	// Method names the capability level of this strategy.
	Method() Method
}

// HTTPInfo summarizes one HTTP response for service naming.
type HTTPInfo struct {
	Protocol     string
	StatusCode   int
	Server       string
	ContentType  string
	Title        string
	Framework    string
	Redirect     string
	ResponseTime time.Duration

	// location is the raw Location header, promoted to Redirect only by
	// strategies that capture redirects instead of following them.
	location string
}

// Details flattens the response summary into a detection's detail map.
// Zero-valued enhanced-only fields are omitted so basic fetches do not
// report capabilities they lack.
func (i *HTTPInfo) Details() map[string]any {
	details := map[string]any{
		"protocol":    i.Protocol,
		"status_code": i.StatusCode,
		"server":      i.Server,
	}
	if i.ContentType != "" {
		details["content_type"] = i.ContentType
	}
	if i.Title != "" {
		details["title"] = i.Title
	}
	if i.Framework != "" {
		details["framework"] = i.Framework
	}
	if i.Redirect != "" {
		details["redirect"] = i.Redirect
	}
	if i.ResponseTime > 0 {
		details["response_time_ms"] = i.ResponseTime.Milliseconds()
	}
	return details
}

// frameworkSignature pairs a lowercase keyword with the framework it
// indicates. Matching is first-hit over the ordered table, against the
// response headers and body together.
type frameworkSignature struct {
	keyword   string
	framework string
}

var frameworkSignatures = []frameworkSignature{
	{"csrftoken", "Django"},
	{"django", "Django"},
	{"flask", "Flask"},
	{"werkzeug", "Flask"},
	{"express", "Express.js"},
	{"nginx", "Nginx"},
	{"apache", "Apache"},
	{"react", "React"},
	{"vue", "Vue.js"},
	{"jenkins", "Jenkins"},
	{"grafana", "Grafana"},
	{"prometheus", "Prometheus"},
	{"gitlab", "GitLab"},
	{"jupyter", "Jupyter"},
	{"portainer", "Portainer"},
	{"sonarqube", "SonarQube"},
}

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// detectFramework scans headers and body for the first matching signature.
func detectFramework(headers http.Header, body string) string {
	var sb strings.Builder
	for name, values := range headers {
		sb.WriteString(strings.ToLower(name))
		sb.WriteString(": ")
		sb.WriteString(strings.ToLower(strings.Join(values, " ")))
		sb.WriteString("\n")
	}
	haystack := sb.String() + strings.ToLower(body)

	for _, sig := range frameworkSignatures {
		if strings.Contains(haystack, sig.keyword) {
			return sig.framework
		}
	}
	return ""
}

// extractTitle pulls the page title out of an HTML body, if any.
func extractTitle(body string) string {
	if m := titlePattern.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// protocolsFor returns the protocols to try for a port, in order. Only the
// conventional TLS ports get an HTTPS attempt before plain HTTP.
func protocolsFor(port int) []string {
	if port == 443 || port == 8443 {
		return []string{"https", "http"}
	}
	return []string{"http"}
}

// EnhancedFetcher is the full-featured strategy: tolerant of self-signed
// certificates, captures redirect targets without following them, and
// records response timing.
type EnhancedFetcher struct{}

// NewEnhancedFetcher creates the full-featured HTTP fetch strategy.
func NewEnhancedFetcher() *EnhancedFetcher {
	return &EnhancedFetcher{}
}

// Method implements Fetcher.
func (f *EnhancedFetcher) Method() Method { return MethodEnhanced }

// Fetch implements Fetcher.
func (f *EnhancedFetcher) Fetch(ctx context.Context, host string, port int, timeout time.Duration) (*HTTPInfo, error) {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // probing unknown services
			DialContext: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	var lastErr error
	for _, protocol := range protocolsFor(port) {
		start := time.Now()
		info, err := fetchOnce(ctx, client, protocol, host, port)
		if err != nil {
			lastErr = err
			continue
		}
		info.ResponseTime = time.Since(start)
		info.Redirect = ""
		if info.StatusCode >= 300 && info.StatusCode < 400 {
			info.Redirect = info.location
		}
		return info, nil
	}
	return nil, lastErr
}

// BasicFetcher is the minimal strategy: a plain GET with default transport
// behavior. Redirects are followed silently, certificates are verified, and
// no timing is recorded.
type BasicFetcher struct{}

// NewBasicFetcher creates the minimal HTTP fetch strategy.
func NewBasicFetcher() *BasicFetcher {
	return &BasicFetcher{}
}

// Method implements Fetcher.
func (f *BasicFetcher) Method() Method { return MethodBasic }

// Fetch implements Fetcher.
func (f *BasicFetcher) Fetch(ctx context.Context, host string, port int, timeout time.Duration) (*HTTPInfo, error) {
	client := &http.Client{Timeout: timeout}

	var lastErr error
	for _, protocol := range protocolsFor(port) {
		info, err := fetchOnce(ctx, client, protocol, host, port)
		if err != nil {
			lastErr = err
			continue
		}
		return info, nil
	}
	return nil, lastErr
}

// fetchOnce issues one GET and summarizes the response.
func fetchOnce(ctx context.Context, client *http.Client, protocol, host string, port int) (*HTTPInfo, error) {
	url := fmt.Sprintf("%s://%s/", protocol, net.JoinHostPort(host, strconv.Itoa(port)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "portscout/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		body = nil
	}

	server := resp.Header.Get("Server")
	if server == "" {
		server = "Unknown"
	}

	return &HTTPInfo{
		Protocol:    protocol,
		StatusCode:  resp.StatusCode,
		Server:      server,
		ContentType: resp.Header.Get("Content-Type"),
		Title:       extractTitle(string(body)),
		Framework:   detectFramework(resp.Header, string(body)),
		location:    resp.Header.Get("Location"),
	}, nil
}
