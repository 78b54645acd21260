package app

import (
	"context"
	"errors"
	"time"

	"github.com/raysh454/phishscan/internal/cli"
	"github.com/raysh454/phishscan/internal/logging"
)

// Application is the global runtime state container.
// It holds config, parsed CLI args and the core services that are shared
// across modules (orchestrator, logger). Pass Application into modules that
// need access to the global state rather than using package-level variables.
type Application struct {
	Config *Config
	Args   *cli.CLIArgs
	Logger logging.Logger
	Orch   *Orchestrator
}

// NewApplication loads configuration named by args, applies CLI overrides and
// builds the orchestrator.
func NewApplication(args *cli.CLIArgs) (*Application, error) {
	if args == nil {
		return nil, errors.New("application: nil args")
	}

	cfg, err := LoadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if args.Addr != "" {
		cfg.Server.ListenAddr = args.Addr
	}
	if args.LogLevel != "" {
		cfg.Logging.Level = args.LogLevel
	}
	if args.NoEnrichment {
		cfg.Enrichment.Enabled = false
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	logger := logging.NewWriterLogger(args.LogOutput(), "phishscan", level)

	return &Application{
		Config: cfg,
		Args:   args,
		Logger: logger,
		Orch:   NewOrchestrator(cfg, logger),
	}, nil
}

// Shutdown attempts a graceful shutdown of the orchestrator within a bounded
// timeout.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Orch.Close() }()

	select {
	case err := <-done:
		if err != nil {
			a.Logger.Info("orchestrator shutdown returned error", logging.Field{Key: "error", Value: err.Error()})
		}
		return err
	case <-shutdownCtx.Done():
		return shutdownCtx.Err()
	}
}
