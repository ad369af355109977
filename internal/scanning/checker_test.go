package scanning

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startListener opens a real TCP listener on an ephemeral port.
func startListener(t *testing.T) (string, int) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestCheckOpenPort(t *testing.T) {
	host, port := startListener(t)

	checker := NewTCPChecker()
	assert.True(t, checker.Check(context.Background(), host, port, time.Second))
}

func TestCheckClosedPort(t *testing.T) {
	// Grab a free port and close the listener so the port is known closed.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	checker := NewTCPChecker()
	assert.False(t, checker.Check(context.Background(), "127.0.0.1", port, time.Second))
}

func TestCheckNeverPanicsOnBadInput(t *testing.T) {
	checker := NewTCPChecker()

	assert.NotPanics(t, func() {
		// DNS failure maps to closed.
		assert.False(t, checker.Check(context.Background(),
			"host.invalid.portscout.test", 80, 200*time.Millisecond))
	})
}

func TestCheckReturnsWithinTimeout(t *testing.T) {
	checker := NewTCPChecker()
	timeout := 300 * time.Millisecond

	start := time.Now()
	// Non-routable address per RFC 5737, forces a connect timeout.
	open := checker.Check(context.Background(), "192.0.2.1", 81, timeout)
	elapsed := time.Since(start)

	assert.False(t, open)
	assert.Less(t, elapsed, timeout+500*time.Millisecond,
		"check must return within timeout plus a small margin")
}

func TestCheckHonorsContextCancellation(t *testing.T) {
	checker := NewTCPChecker()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	open := checker.Check(ctx, "192.0.2.1", 81, 5*time.Second)
	assert.False(t, open)
	assert.Less(t, time.Since(start), time.Second)
}
