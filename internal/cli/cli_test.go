package cli_test

import (
	"testing"

	"github.com/raysh454/phishscan/internal/cli"
)

func TestParseArgs_Defaults(t *testing.T) {
	t.Parallel()
	args, err := cli.ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.OneShot() {
		t.Error("expected server mode without -scan")
	}
	if args.ConfigPath != "" || args.Addr != "" || args.NoEnrichment {
		t.Errorf("unexpected defaults: %+v", args)
	}
}

func TestParseArgs_AllFlags(t *testing.T) {
	t.Parallel()
	in := []string{"-config", "phishscan.yaml", "-addr", ":9090", "-scan", "-", "-log-level", "debug", "-no-enrichment"}
	args, err := cli.ParseArgs(in)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if args.ConfigPath != "phishscan.yaml" || args.Addr != ":9090" || args.ScanInput != "-" || args.LogLevel != "debug" || !args.NoEnrichment {
		t.Errorf("parsed %+v", args)
	}
	if !args.OneShot() {
		t.Error("expected one-shot mode with -scan")
	}
	if len(args.RawArgs) != len(in) {
		t.Errorf("RawArgs not preserved")
	}
}

func TestParseArgs_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-target", "x"}},
		{"bad level", []string{"-log-level", "loud"}},
		{"positional", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := cli.ParseArgs(tt.args); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}
