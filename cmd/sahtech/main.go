// Sahtech is an AI food recommendation agent.
//
// It evaluates whether a scanned food product suits a user's health
// profile, either through an authenticated HTTP API or a CLI one-shot.
// Configuration is loaded from a single YAML file discovered automatically
// (see [config.DefaultSearchPaths]); a .env file in the working directory
// is loaded into the environment first.
//
// Usage:
//
//	sahtech serve                     Start the API server
//	sahtech scan <user_id> <barcode>  Run one agent session (for testing)
//	sahtech version                   Print version and build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sahtech/sahtech-ai-agent/internal/agent"
	"github.com/sahtech/sahtech-ai-agent/internal/api"
	"github.com/sahtech/sahtech-ai-agent/internal/buildinfo"
	"github.com/sahtech/sahtech-ai-agent/internal/catalog"
	"github.com/sahtech/sahtech-ai-agent/internal/config"
	"github.com/sahtech/sahtech-ai-agent/internal/llm"
	"github.com/sahtech/sahtech-ai-agent/internal/profile"
	"github.com/sahtech/sahtech-ai-agent/internal/tools"
	"github.com/sahtech/sahtech-ai-agent/internal/verdicts"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the sahtech command. All OS-level
// dependencies are injected as parameters so the lifecycle can be driven
// from tests. Arguments are parsed by hand: the flag package relies on
// package-level globals, and the surface here is small enough that manual
// parsing is clearer than bringing in a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if command == "" {
		return printUsage(stdout)
	}

	if command == "version" {
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	}

	// Matches the original deployment convention: API keys live in a .env
	// file next to the binary during development.
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(stderr, "config: loaded .env file")
	}

	cfg, err := loadConfig(configPath, stderr)
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level}))

	if cfg.Groq.APIKey == "" {
		cfg.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.Service.APIKey == "" {
		cfg.Service.APIKey = os.Getenv("API_KEY")
	}

	client := llm.NewGroqClient(cfg.Groq.BaseURL, cfg.Groq.APIKey)
	products := catalog.NewMockStore()
	profiles := profile.NewMockStore()

	var sink *verdicts.Store
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		sink, err = verdicts.NewStore(filepath.Join(cfg.DataDir, "verdicts.db"))
		if err != nil {
			return fmt.Errorf("open verdict store: %w", err)
		}
		defer sink.Close()
	}

	var registrySink tools.Sink
	if sink != nil {
		registrySink = sink
	}
	registry := tools.NewRegistry(products, profiles, registrySink, logger)
	loop := agent.NewLoop(logger, client, cfg.Models.Default, cfg.Models.Temperature,
		cfg.Agent.MaxIterations, registry, products, profiles)

	switch command {
	case "serve":
		return serve(ctx, cfg, loop, client, sink, logger)
	case "scan":
		if len(cmdArgs) != 2 {
			return fmt.Errorf("usage: sahtech scan <user_id> <barcode>")
		}
		return scan(ctx, stdout, loop, cmdArgs[0], cmdArgs[1])
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// loadConfig finds and loads the YAML config, falling back to built-in
// defaults when no file exists and none was requested explicitly.
func loadConfig(explicit string, stderr io.Writer) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, err
		}
		fmt.Fprintln(stderr, "config: no config file found, using defaults")
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// serve runs the API server until the context is cancelled or a shutdown
// signal arrives.
func serve(ctx context.Context, cfg *config.Config, loop *agent.Loop, client llm.Client, sink *verdicts.Store, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, cfg.Service.APIKey,
		loop, client, cfg.Models.Default, cfg.Models.Temperature, sink, logger)

	logger.Info("starting", "build", buildinfo.String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		return server.Shutdown(context.Background())
	}
}

// scan runs one agent session from the command line and prints the result.
func scan(ctx context.Context, stdout io.Writer, loop *agent.Loop, userID, barcode string) error {
	result, err := loop.Run(ctx, userID, barcode)
	if err != nil {
		return err
	}

	if result.State == agent.StateExhausted {
		return fmt.Errorf("no answer obtained after %d iterations", result.Iterations)
	}

	fmt.Fprintln(stdout, result.Answer)
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprint(w, `sahtech - AI food recommendation agent

Usage:
  sahtech [flags] <command> [args]

Commands:
  serve                     Start the API server
  scan <user_id> <barcode>  Run one agent session (for testing)
  version                   Print version and build information

Flags:
  -config <path>  Path to config file (default: search standard locations)
  -h, -help       Show this help
`)
	return nil
}
