package probe

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"
)

// detectSSH reads the server's identification string. SSH servers speak
// first, so a single read after connect is enough. The tier succeeds only
// when the banner actually starts with "SSH"; anything else falls through
// to the later tiers.
func (d *Detector) detectSSH(ctx context.Context, host string, port int, timeout time.Duration) (string, bool) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		d.logger.DebugProbe("SSH banner dial failed", host, port, "error", err)
		return "", false
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return "", false
	}

	banner := strings.TrimSpace(string(buf[:n]))
	if !strings.HasPrefix(banner, "SSH") {
		return "", false
	}
	return banner, true
}
