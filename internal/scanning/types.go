// Package scanning implements the TCP connect liveness scan: a single-port
// checker and a bounded worker pool that drives it across a port set.
package scanning

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/portscout/internal/errors"
)

const (
	// DefaultConcurrency is the worker pool width used when none is given.
	DefaultConcurrency = 50

	// DefaultTimeout is the per-connection timeout used when none is given.
	DefaultTimeout = 3 * time.Second
)

// Target is the unit of work for one scan invocation.
type Target struct {
	Host        string        `validate:"required"`
	Ports       []int         `validate:"required,min=1,dive,gte=1,lte=65535"`
	Timeout     time.Duration `validate:"gt=0"`
	Concurrency int           `validate:"gte=1"`
}

// Result is the open/closed classification of a single port. Exactly one
// Result is produced per port in the target set.
type Result struct {
	Port int
	Open bool
}

var validate = validator.New()

// NewTarget builds a Target over the given port set, normalizing the port
// order and applying defaults for timeout and concurrency.
func NewTarget(host string, ports []int, timeout time.Duration, concurrency int) Target {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	sorted := make([]int, len(ports))
	copy(sorted, ports)
	sort.Ints(sorted)

	return Target{
		Host:        host,
		Ports:       sorted,
		Timeout:     timeout,
		Concurrency: concurrency,
	}
}

// Validate checks the target invariants: at least one port, every port in
// 1..65535, positive timeout, concurrency >= 1.
func (t Target) Validate() error {
	if err := validate.Struct(t); err != nil {
		return errors.WrapScanError(errors.CodeValidation, "invalid scan target", err)
	}
	return nil
}

// PortRange expands an inclusive range into a port slice. It returns an
// error without touching the network when the bounds are invalid.
func PortRange(start, end int) ([]int, error) {
	if start > end || start < 1 || end > 65535 {
		return nil, errors.ErrInvalidRange(start, end)
	}

	ports := make([]int, 0, end-start+1)
	for port := start; port <= end; port++ {
		ports = append(ports, port)
	}
	return ports, nil
}
