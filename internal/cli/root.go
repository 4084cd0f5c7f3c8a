// Package cli implements the cobra-based command-line interface for
// portreap.
//
// portreap is a single command rather than a subcommand tree: the ports
// to free are positional arguments, and behavior is tuned with flags
// (--mode, --signal, --dry-run, --allow-empty, --fallback). This file
// defines the root command, flag parsing and validation, and the
// assembly of the engine from its platform capabilities. Output
// rendering lives in output.go, config-file defaults in config.go.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/portreap/internal/docker"
	"github.com/mmr-tortoise/portreap/internal/model"
	"github.com/mmr-tortoise/portreap/internal/procs"
	"github.com/mmr-tortoise/portreap/internal/reaper"
	"github.com/mmr-tortoise/portreap/internal/resolver"
	"github.com/mmr-tortoise/portreap/internal/sockets"
)

// Global flag variables bound to the root command. portreap has no
// subcommands, so plain (non-persistent) flags suffice.
var (
	// jsonOutput switches the report to structured JSON on stdout.
	jsonOutput bool

	// verbose enables debug/trace output on stderr.
	verbose bool

	// quiet suppresses the per-port success lines. Errors still print.
	quiet bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// rootFlags holds the flag values for the root command.
type rootFlags struct {
	// mode selects what to terminate: process, container, or both.
	mode string

	// signal is the signal to deliver, by name or number. Empty means
	// the config-file default, falling back to SIGKILL.
	signal string

	// dryRun resolves and prints targets without signaling anything.
	dryRun bool

	// allowEmpty makes a port with no listeners a success instead of
	// exit code 3.
	allowEmpty bool

	// fallback signals a container's main process directly when the
	// runtime cannot deliver the signal.
	fallback bool

	// configPath overrides the default config file location.
	configPath string
}

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "portreap <port> [port...]",
		Short: "Terminate the processes and containers occupying a port",
		Long: `portreap resolves which processes and/or containers are listening on the
given ports and terminates them.

Listeners that belong to a container are terminated through the container
runtime, so the runtime's own state stays consistent; plain processes are
signaled directly. Multiple ports are processed concurrently and reported
in request order.

Examples:
  portreap 8080
  portreap 8080 9090 --signal sigterm
  portreap 5432 --mode container
  portreap 3000 --dry-run --json`,

		// At least one port is required.
		Args: cobra.MinimumNArgs(1),

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runReap(cmd, args, flags)
		},
	}

	rootCmd.Flags().StringVarP(&flags.mode, "mode", "m", "",
		"What to terminate: process, container, both (default: both)")
	rootCmd.Flags().StringVarP(&flags.signal, "signal", "s", "",
		"Signal to send, by name or number (default: SIGKILL)")
	rootCmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false,
		"Resolve and print targets without terminating anything")
	rootCmd.Flags().BoolVar(&flags.allowEmpty, "allow-empty", false,
		"Treat a port with no listeners as success")
	rootCmd.Flags().BoolVar(&flags.fallback, "fallback", false,
		"Signal a container's main process directly if the runtime fails")
	rootCmd.Flags().StringVar(&flags.configPath, "config", "",
		"Config file path (default: ~/.config/portreap/config.yaml)")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-port success output")

	return rootCmd
}

// runReap is the main logic for the root command: validate arguments,
// assemble the engine, run it, render the report, and translate the
// report's exit policy into the process exit code.
func runReap(cmd *cobra.Command, args []string, flags *rootFlags) error {
	// Step 1: Parse and validate the requested ports. Any bad port is a
	// usage error before anything on the host is touched.
	ports, err := parsePorts(args)
	if err != nil {
		return err
	}

	// Step 2: Load config-file defaults and fill in flags the user did
	// not set explicitly on the command line.
	cfg, err := LoadConfig(flags.configPath)
	if err != nil {
		return err
	}
	applyConfigDefaults(cmd, flags, cfg)

	// Step 3: Validate mode and signal. Both are fatal usage errors when
	// unparseable — no resolution or termination may run on bad input.
	opts, err := buildOptions(flags)
	if err != nil {
		return err
	}

	// Step 4: Connect to the container runtime. Failure here is a
	// degradation, not an error: process-only work must keep functioning
	// on hosts without a running daemon.
	ctx := context.Background()
	var (
		runtime    resolver.ContainerRuntime
		containers reaper.ContainerKiller
	)
	if dockerClient, derr := docker.NewClient(); derr != nil {
		VerboseLog("Container runtime unavailable: %v", derr)
	} else if perr := dockerClient.Ping(ctx); perr != nil {
		// Socket present but daemon unresponsive. Degrade now rather
		// than once per port.
		VerboseLog("Container runtime not responding: %v", perr)
		_ = dockerClient.Close()
	} else {
		runtime = dockerClient
		containers = dockerClient
		defer func() { _ = dockerClient.Close() }()
		VerboseLog("Connected to container runtime")
	}

	// Step 5: Assemble the engine from its platform capabilities.
	res := resolver.New(sockets.NewEnumerator(), procs.NewResolver(), runtime)
	engine := reaper.New(res, procs.NewKiller(), containers)

	VerboseLog("Reaping %d port(s), mode=%s, signal=%s, dry-run=%v",
		len(ports), opts.Mode, opts.Signal, opts.DryRun)

	// Step 6: Run and render. The report always covers every requested
	// port, so rendering happens before the exit-code decision.
	report := engine.Run(ctx, ports, opts)
	printReport(report)

	// Step 7: Translate the report into the exit policy. A non-zero code
	// surfaces as a CLIError so Execute maps it to the process exit
	// status; the report itself has already been printed.
	if code := report.ExitCode(flags.allowEmpty); code != model.ExitSuccess {
		return model.NewCLIError(code, exitMessage(code))
	}
	return nil
}

// parsePorts converts the positional arguments into validated port
// numbers. Port 0 is rejected: it never denotes a bindable service port.
func parsePorts(args []string) ([]uint16, error) {
	ports := make([]uint16, 0, len(args))
	for _, arg := range args {
		n, err := strconv.ParseUint(arg, 10, 16)
		if err != nil || n == 0 {
			return nil, model.NewCLIError(model.ExitUsage,
				fmt.Sprintf("invalid port %q: must be an integer between 1 and 65535", arg))
		}
		ports = append(ports, uint16(n))
	}
	return ports, nil
}

// buildOptions validates the mode and signal flags and produces the
// engine options. Unparseable values are usage errors.
func buildOptions(flags *rootFlags) (reaper.Options, error) {
	mode := model.ModeBoth
	if flags.mode != "" {
		m, err := model.ParseMode(flags.mode)
		if err != nil {
			return reaper.Options{}, model.NewCLIError(model.ExitUsage,
				fmt.Sprintf("invalid mode %q: valid values are process, container, both", flags.mode))
		}
		mode = m
	}

	sig := model.DefaultSignal()
	if flags.signal != "" {
		s, err := model.ParseSignal(flags.signal)
		if err != nil {
			return reaper.Options{}, model.NewCLIError(model.ExitUsage,
				fmt.Sprintf("invalid signal %q: use a name like sigterm or a number like 15", flags.signal))
		}
		sig = s
	}

	return reaper.Options{
		Mode:              mode,
		Signal:            sig,
		DryRun:            flags.dryRun,
		AllowEmpty:        flags.allowEmpty,
		FallbackToProcess: flags.fallback,
	}, nil
}

// exitMessage names the failure class for the final stderr line.
func exitMessage(code model.ExitCode) string {
	switch code {
	case model.ExitNothingFound:
		return "no matching service found on one or more ports"
	case model.ExitTerminationFailed:
		return "failed to terminate one or more targets"
	default:
		return "run failed"
	}
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		// Check if the error is a CLIError with a specific exit code.
		// errors.As would also work here, but a type assertion is simpler
		// for this single-level check.
		if cliErr, ok := err.(*model.CLIError); ok {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		// Generic error — exit with code 1.
		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// VerboseLog prints a message to stderr only when verbose mode is
// enabled. Used throughout the CLI for debug/trace output that helps
// users understand what operations are being performed.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
