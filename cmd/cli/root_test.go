package cli

import (
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/anstrom/portscout/internal/config"
	"github.com/anstrom/portscout/internal/errors"
)

// resetInvocation restores the package flag state between tests.
func resetInvocation(t *testing.T) {
	t.Helper()

	cfg = config.Default()
	flagPort = 0
	flagRange = nil
	flagLists = nil
	flagShowLists = false
	flagShowClosed = false
	flagNoDetection = false
	flagTimeout = 0
	flagThreads = 0
	flagFast = false
	flagBasicHTTP = false
	flagCheckDeps = false

	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
	})
}

// markChanged simulates the flag having been set on the command line.
func markChanged(t *testing.T, name string) {
	t.Helper()

	f := rootCmd.Flags().Lookup(name)
	if f == nil {
		t.Fatalf("flag %q not registered", name)
	}
	f.Changed = true
}

func TestResolveOptionsDefaults(t *testing.T) {
	resetInvocation(t)
	registry := cfg.Registry()

	opts, err := resolveOptions(rootCmd, nil, registry)
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}

	if opts.host != defaultHost {
		t.Errorf("host = %q, want %q", opts.host, defaultHost)
	}
	if opts.timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", opts.timeout)
	}
	if opts.threads != 50 {
		t.Errorf("threads = %d, want 50", opts.threads)
	}
	if !opts.detection {
		t.Error("detection should default to enabled")
	}

	// Default port set is the union of every configured list.
	want := len(registry.Resolve([]string{"all"}))
	if len(opts.ports) != want {
		t.Errorf("ports = %d, want %d", len(opts.ports), want)
	}
	if opts.registry == nil || opts.labels == nil {
		t.Error("default invocation should carry list labels for reporting")
	}
}

func TestResolveOptionsHostArgument(t *testing.T) {
	resetInvocation(t)

	opts, err := resolveOptions(rootCmd, []string{"example.com"}, cfg.Registry())
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}
	if opts.host != "example.com" {
		t.Errorf("host = %q, want example.com", opts.host)
	}
}

func TestResolveOptionsSinglePort(t *testing.T) {
	resetInvocation(t)
	flagPort = 8080
	markChanged(t, "port")

	opts, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}
	if len(opts.ports) != 1 || opts.ports[0] != 8080 {
		t.Errorf("ports = %v, want [8080]", opts.ports)
	}
	if opts.registry != nil {
		t.Error("single-port scan should not carry a category breakdown")
	}
}

func TestResolveOptionsInvalidPort(t *testing.T) {
	resetInvocation(t)
	flagPort = 70000
	markChanged(t, "port")

	_, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	if !errors.IsCode(err, errors.CodeRangeInvalid) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.CodeRangeInvalid)
	}
}

func TestResolveOptionsBlankHost(t *testing.T) {
	resetInvocation(t)

	_, err := resolveOptions(rootCmd, []string{"  "}, cfg.Registry())
	if err == nil {
		t.Fatal("expected error for blank host")
	}
	if !errors.IsCode(err, errors.CodeTargetInvalid) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.CodeTargetInvalid)
	}
	if !errors.IsFatal(err) {
		t.Error("blank host should be a fatal validation error")
	}
}

func TestResolveOptionsRange(t *testing.T) {
	resetInvocation(t)
	flagRange = []int{1000, 1009}
	markChanged(t, "range")

	opts, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}
	if len(opts.ports) != 10 {
		t.Errorf("ports = %d, want 10", len(opts.ports))
	}
	if opts.ports[0] != 1000 || opts.ports[9] != 1009 {
		t.Errorf("range bounds = %d..%d, want 1000..1009", opts.ports[0], opts.ports[9])
	}
}

func TestResolveOptionsReversedRange(t *testing.T) {
	resetInvocation(t)
	flagRange = []int{1000, 999}
	markChanged(t, "range")

	_, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err == nil {
		t.Fatal("expected error for reversed range")
	}
	if !errors.IsCode(err, errors.CodeRangeInvalid) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.CodeRangeInvalid)
	}
}

func TestResolveOptionsNamedList(t *testing.T) {
	resetInvocation(t)
	flagLists = []string{"web"}

	registry := cfg.Registry()
	opts, err := resolveOptions(rootCmd, nil, registry)
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}

	want := len(registry.Resolve([]string{"web"}))
	if len(opts.ports) != want {
		t.Errorf("ports = %d, want %d", len(opts.ports), want)
	}
	if opts.labels == nil {
		t.Error("list scan should carry labels")
	}
}

func TestResolveOptionsUnknownList(t *testing.T) {
	resetInvocation(t)
	flagLists = []string{"nonexistent"}

	_, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err == nil {
		t.Fatal("expected error when no ports resolve")
	}
	if !errors.IsCode(err, errors.CodeEmptyPortSet) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.CodeEmptyPortSet)
	}
	if !errors.IsFatal(err) {
		t.Error("empty resolution should be a fatal validation error")
	}
}

func TestResolveOptionsFastTimeout(t *testing.T) {
	resetInvocation(t)
	flagFast = true

	opts, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}
	if opts.timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", opts.timeout)
	}
}

func TestResolveOptionsFastOverridesTimeout(t *testing.T) {
	resetInvocation(t)
	flagTimeout = 10
	markChanged(t, "timeout")
	flagFast = true

	opts, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}
	if opts.timeout != time.Second {
		t.Errorf("timeout = %v, want 1s", opts.timeout)
	}
}

func TestResolveOptionsNoDetection(t *testing.T) {
	resetInvocation(t)
	flagNoDetection = true

	opts, err := resolveOptions(rootCmd, nil, cfg.Registry())
	if err != nil {
		t.Fatalf("resolveOptions() error = %v", err)
	}
	if opts.detection {
		t.Error("detection should be disabled")
	}
}

func TestResolveOptionsInvalidThreads(t *testing.T) {
	resetInvocation(t)
	flagThreads = 0
	markChanged(t, "threads")

	if _, err := resolveOptions(rootCmd, nil, cfg.Registry()); err == nil {
		t.Error("expected error for zero threads")
	}
}

func TestSelectFetcher(t *testing.T) {
	resetInvocation(t)

	if got := selectFetcher().Method(); got != "enhanced" {
		t.Errorf("default strategy = %q, want enhanced", got)
	}

	flagBasicHTTP = true
	if got := selectFetcher().Method(); got != "basic" {
		t.Errorf("basic-http strategy = %q, want basic", got)
	}
}
