package probe

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// staticDatabases maps the database tier ports to their conventional names,
// used when no version handshake is available for the protocol.
var staticDatabases = map[int]string{
	3306:  "MySQL",
	5432:  "PostgreSQL",
	5984:  "CouchDB",
	6379:  "Redis",
	8086:  "InfluxDB",
	9200:  "Elasticsearch",
	27017: "MongoDB",
}

var redisVersionPattern = regexp.MustCompile(`redis_version:([^\r\n]+)`)

// detectDatabase identifies a database service, with a version handshake
// where the protocol allows one over a bare connection. Redis answers INFO
// in cleartext and Elasticsearch serves its version over HTTP; the rest are
// named from the port alone.
func (d *Detector) detectDatabase(ctx context.Context, host string, port int, timeout time.Duration) (string, bool) {
	switch port {
	case 6379:
		if service, ok := d.probeRedis(ctx, host, port, timeout); ok {
			return service, true
		}
	case 9200:
		if service, ok := d.probeElasticsearch(ctx, host, port, timeout); ok {
			return service, true
		}
	}

	service, ok := staticDatabases[port]
	return service, ok
}

// probeRedis sends a cleartext INFO command and extracts redis_version from
// the reply.
func (d *Detector) probeRedis(ctx context.Context, host string, port int, timeout time.Duration) (string, bool) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return "", false
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte("INFO\r\n")); err != nil {
		return "", false
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return "", false
	}

	reply := string(buf[:n])
	if !strings.Contains(strings.ToLower(reply), "redis_version") {
		return "", false
	}
	if m := redisVersionPattern.FindStringSubmatch(reply); m != nil {
		return "Redis " + strings.TrimSpace(m[1]), true
	}
	return "Redis", true
}

// probeElasticsearch reads the cluster info document from the REST root and
// extracts version.number. A body that merely mentions elasticsearch still
// names the service, without a version.
func (d *Detector) probeElasticsearch(ctx context.Context, host string, port int, timeout time.Duration) (string, bool) {
	client := &http.Client{Timeout: timeout}
	url := "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", false
	}

	var info struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.Unmarshal(body, &info); err == nil && info.Version.Number != "" {
		return "Elasticsearch " + info.Version.Number, true
	}
	if strings.Contains(strings.ToLower(string(body)), "elasticsearch") {
		return "Elasticsearch", true
	}
	return "", false
}
