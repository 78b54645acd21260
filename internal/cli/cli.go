package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLIArgs are the command-line arguments that select between serving the API
// and a one-shot scan.
type CLIArgs struct {
	// ConfigPath points at a YAML config file; empty means defaults.
	ConfigPath string

	// Addr overrides server.listen_addr.
	Addr string

	// ScanInput is a payload file to scan once and exit. "-" reads stdin.
	ScanInput string

	// LogLevel overrides logging.level.
	LogLevel string

	// NoEnrichment disables the reputation lookup for this run.
	NoEnrichment bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// OneShot reports whether a single scan was requested instead of the server.
func (a *CLIArgs) OneShot() bool {
	return a.ScanInput != ""
}

// LogOutput is where logs go. Stdout is reserved for scan results.
func (a *CLIArgs) LogOutput() io.Writer {
	return os.Stderr
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("phishscan", flag.ContinueOnError)
	var (
		configPath   = fs.String("config", "", "Path to a YAML config file")
		addr         = fs.String("addr", "", "Listen address for the API server (overrides config)")
		scan         = fs.String("scan", "", "Scan one payload file and print the result (- for stdin)")
		logLevel     = fs.String("log-level", "", "Log level: debug|info|warn|error")
		noEnrichment = fs.Bool("no-enrichment", false, "Skip the external URL reputation lookup")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		// Flag parsing errors are useful to return to caller
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	switch strings.ToLower(strings.TrimSpace(*logLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("invalid -log-level %q", *logLevel)
	}

	return &CLIArgs{
		ConfigPath:   strings.TrimSpace(*configPath),
		Addr:         strings.TrimSpace(*addr),
		ScanInput:    strings.TrimSpace(*scan),
		LogLevel:     strings.TrimSpace(*logLevel),
		NoEnrichment: *noEnrichment,
		RawArgs:      args,
	}, nil
}
