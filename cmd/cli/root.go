// Package cli implements the portscout command-line interface: a Cobra
// command that scans a host's TCP ports through a bounded worker pool and
// runs tiered service identification against whatever is open.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/portscout/internal/config"
	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
	"github.com/anstrom/portscout/internal/metrics"
	"github.com/anstrom/portscout/internal/portlist"
	"github.com/anstrom/portscout/internal/probe"
	"github.com/anstrom/portscout/internal/report"
	"github.com/anstrom/portscout/internal/scanning"
)

const defaultHost = "localhost"

var (
	cfgFile string
	verbose bool

	flagPort        int
	flagRange       []int
	flagLists       []string
	flagShowLists   bool
	flagShowClosed  bool
	flagNoDetection bool
	flagTimeout     float64
	flagThreads     int
	flagFast        bool
	flagBasicHTTP   bool
	flagCheckDeps   bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "portscout [host]",
	Short: "Concurrent TCP port scanner with service identification",
	Long: `Portscout scans a host's TCP ports through a concurrent worker pool and
identifies the services behind open ports using a tiered detection cascade:
SSH banners, HTTP fingerprinting, database handshakes, and generic banner
grabbing, falling back to well-known port names.

Ports are selected from named, configurable port lists, a single port, or an
explicit range.`,
	Version:      getVersion(),
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runScan,
}

// Execute runs the root command. It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./portscout.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "scan a single port")
	rootCmd.Flags().IntSliceVarP(&flagRange, "range", "r", nil, "scan a port range, given as START,END")
	rootCmd.Flags().StringSliceVarP(&flagLists, "list", "l", nil, "named port lists to scan (use \"all\" for every list)")
	rootCmd.Flags().BoolVar(&flagShowLists, "show-lists", false, "show the configured port lists and exit")
	rootCmd.Flags().BoolVar(&flagShowClosed, "show-closed", false, "include closed ports in the output")
	rootCmd.Flags().BoolVar(&flagNoDetection, "no-service-detection", false, "skip service identification of open ports")
	rootCmd.Flags().Float64VarP(&flagTimeout, "timeout", "t", 0, "connection timeout in seconds")
	rootCmd.Flags().IntVar(&flagThreads, "threads", 0, "worker pool width")
	rootCmd.Flags().BoolVar(&flagFast, "fast", false, "shortcut for a 1 second timeout")
	rootCmd.Flags().BoolVar(&flagBasicHTTP, "basic-http", false, "use the minimal HTTP probe strategy")
	rootCmd.Flags().BoolVar(&flagCheckDeps, "check-deps", false, "report probe capabilities and exit")

	rootCmd.MarkFlagsMutuallyExclusive("port", "range", "list")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig loads the configuration file and initializes logging.
func initConfig() {
	cfg = config.Load(cfgFile)
	initLogging()
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging from the loaded configuration.
// Verbose mode forces debug-level output regardless of config.
func initLogging() {
	logConfig := cfg.Logging
	if verbose {
		logConfig.Level = logging.LevelDebug
		logConfig.AddSource = true
	}

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)
}

// scanOptions is the fully resolved invocation: target host, port set with
// labels, and the effective tuning knobs after flags override config.
type scanOptions struct {
	host      string
	ports     []int
	labels    map[int]string
	registry  *portlist.Registry
	timeout   time.Duration
	threads   int
	detection bool
}

func runScan(cmd *cobra.Command, args []string) error {
	if flagCheckDeps {
		displayCapabilities(selectFetcher())
		return nil
	}

	registry := cfg.Registry()
	if flagShowLists {
		displayPortLists(registry)
		return nil
	}

	opts, err := resolveOptions(cmd, args, registry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return executeScan(ctx, opts)
}

// resolveOptions merges flags, arguments, and configuration into one
// invocation. Precedence is flag over config for every knob.
func resolveOptions(cmd *cobra.Command, args []string, registry *portlist.Registry) (*scanOptions, error) {
	opts := &scanOptions{
		host:      defaultHost,
		timeout:   cfg.Scanning.Timeout(),
		threads:   cfg.Scanning.Threads,
		detection: cfg.Scanning.ServiceDetection && !flagNoDetection,
	}
	if len(args) == 1 {
		if strings.TrimSpace(args[0]) == "" {
			return nil, errors.ErrInvalidTarget(args[0])
		}
		opts.host = args[0]
	}

	if cmd.Flags().Changed("timeout") {
		if flagTimeout <= 0 {
			return nil, errors.NewScanError(errors.CodeValidation,
				fmt.Sprintf("timeout must be positive, got %v", flagTimeout))
		}
		opts.timeout = time.Duration(flagTimeout * float64(time.Second))
	}
	if flagFast {
		opts.timeout = config.FastTimeout()
	}
	if cmd.Flags().Changed("threads") {
		if flagThreads < 1 {
			return nil, errors.NewScanError(errors.CodeValidation,
				fmt.Sprintf("threads must be at least 1, got %d", flagThreads))
		}
		opts.threads = flagThreads
	}

	switch {
	case cmd.Flags().Changed("port"):
		if flagPort < 1 || flagPort > 65535 {
			return nil, errors.ErrInvalidRange(flagPort, flagPort)
		}
		opts.ports = []int{flagPort}

	case cmd.Flags().Changed("range"):
		if len(flagRange) != 2 {
			return nil, errors.NewScanError(errors.CodeRangeInvalid,
				fmt.Sprintf("range takes exactly two ports, got %d", len(flagRange)))
		}
		ports, err := scanning.PortRange(flagRange[0], flagRange[1])
		if err != nil {
			return nil, err
		}
		opts.ports = ports

	case len(flagLists) > 0:
		labels := registry.Resolve(flagLists)
		if len(labels) == 0 {
			return nil, errors.ErrEmptyPortSet()
		}
		opts.labels = labels
		opts.registry = registry
		opts.ports = portsOf(labels)

	default:
		labels := registry.Resolve([]string{portlist.AllName})
		if len(labels) == 0 {
			return nil, errors.ErrEmptyPortSet()
		}
		opts.labels = labels
		opts.registry = registry
		opts.ports = portsOf(labels)
	}

	return opts, nil
}

func portsOf(labels map[int]string) []int {
	ports := make([]int, 0, len(labels))
	for port := range labels {
		ports = append(ports, port)
	}
	return ports
}

// selectFetcher picks the HTTP probe strategy once for the whole run.
func selectFetcher() probe.Fetcher {
	if flagBasicHTTP {
		return probe.NewBasicFetcher()
	}
	return probe.NewEnhancedFetcher()
}

// executeScan runs the scan and probe phases and renders the report. An
// interrupt yields the partial results gathered so far and a clean exit.
func executeScan(ctx context.Context, opts *scanOptions) error {
	runID := uuid.New().String()
	logger := logging.Default().WithRunID(runID)
	logger.InfoScan("Starting scan", opts.host,
		"ports", len(opts.ports),
		"threads", opts.threads,
		"timeout", opts.timeout.String())

	target := scanning.NewTarget(opts.host, opts.ports, opts.timeout, opts.threads)
	scanner := scanning.NewScanner(scanning.NewTCPChecker(), logger)
	started := time.Now()

	results, err := scanner.Scan(ctx, target)
	interrupted := errors.IsCode(err, errors.CodeCanceled)
	if err != nil && !interrupted {
		logger.ErrorScan("Scan failed", opts.host, err, "fatal", errors.IsFatal(err))
		return err
	}

	detections := map[int]probe.Detection{}
	open := scanning.OpenPorts(results)
	if opts.detection && !interrupted && len(open) > 0 {
		detector := probe.NewDetector(selectFetcher(), logger)
		detections = detector.IdentifyAll(ctx, opts.host, open, opts.timeout, opts.threads)
	}

	duration := time.Since(started)
	metrics.RecordScanDuration(opts.host, duration)
	logger.InfoScan("Scan complete", opts.host,
		"open", len(open),
		"duration", duration.String())

	r := report.Aggregate(results, detections, report.Options{
		RunID:       runID,
		Host:        opts.host,
		StartedAt:   started,
		Duration:    duration,
		Labels:      opts.labels,
		Registry:    opts.registry,
		Interrupted: interrupted,
	})

	// Single-port scans always show the closed verdict; there is nothing
	// to drown out.
	showClosed := flagShowClosed || cfg.Scanning.ShowClosed || r.TotalScanned == 1
	displayReport(r, showClosed)

	if interrupted {
		fmt.Println("\nScan interrupted")
	}
	return nil
}
