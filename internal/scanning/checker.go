package scanning

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Checker decides whether a single TCP port accepts connections.
type Checker interface {
	// Check attempts exactly one TCP connect with the given timeout.
	// Every failure mode (timeout, refusal, DNS failure, routing failure)
	// reports false; a transient failure is indistinguishable from closed.
	Check(ctx context.Context, host string, port int, timeout time.Duration) bool
}

// TCPChecker is the production Checker: one connect, no retries, no data
// exchange. The connection is closed immediately on success.
type TCPChecker struct{}

// NewTCPChecker creates a TCP connect checker.
func NewTCPChecker() TCPChecker {
	return TCPChecker{}
}

// Check implements the Checker interface.
func (TCPChecker) Check(ctx context.Context, host string, port int, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
