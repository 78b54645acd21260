package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/phishscan/internal/app"
	"github.com/raysh454/phishscan/internal/cli"
	"github.com/raysh454/phishscan/internal/logging"
	"github.com/raysh454/phishscan/internal/model"
	"github.com/raysh454/phishscan/internal/server"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "phishscan: %v\n", err)
		os.Exit(2)
	}

	application, err := app.NewApplication(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "phishscan: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args.OneShot() {
		err = scanOnce(ctx, application, args.ScanInput, os.Stdout)
	} else {
		err = serve(ctx, application)
	}

	if shutdownErr := application.Shutdown(context.Background()); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if err != nil {
		application.Logger.Error("exiting with error", logging.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
}

// scanOnce scans the payload at path ("-" for stdin) and prints the result.
func scanOnce(ctx context.Context, a *app.Application, path string, out io.Writer) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, a.Config.Server.MaxBodyBytes))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	var p model.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	result := a.Orch.Scan(ctx, &p)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func serve(ctx context.Context, a *app.Application) error {
	srv, err := server.NewServer(server.Config{
		AppConfig:    a.Config,
		Logger:       a.Logger,
		Orchestrator: a.Orch,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	httpSrv := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.Logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
