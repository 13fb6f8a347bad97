package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ironsheep/parkscan/internal/config"
	"github.com/ironsheep/parkscan/internal/httpapi"
	"github.com/ironsheep/parkscan/internal/logging"
	"github.com/ironsheep/parkscan/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func printUsage() {
	fmt.Println("parkscan - parking slot detection and occupancy analysis")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  parkscan analyze [options] image...   Analyze images and print the results")
	fmt.Println("  parkscan mcp [options]                Serve MCP over stdin/stdout (default)")
	fmt.Println("  parkscan serve [options]              Serve the HTTP API")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Run 'parkscan <command> --help' for the options of a command.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  PARKSCAN_LOG_LEVEL=debug      Enable debug logging")
	fmt.Println("  PARKSCAN_DETECTOR_URL=...     Inference service for the http detector")
	fmt.Println("  PARKSCAN_REDIS_ADDR=...       Keep results in Redis")
	fmt.Println()
	fmt.Println("Every config key has a PARKSCAN_ variable, e.g. slots.min_area is")
	fmt.Println("PARKSCAN_SLOTS_MIN_AREA. A .env file in the working directory is read first.")
}

func main() {
	// Handle --version and -v flags
	cmd := "mcp"
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("parkscan %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		case "analyze", "mcp", "serve":
			cmd, args = args[0], args[1:]
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, args); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "parkscan: %v\n", err)
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	fs := pflag.NewFlagSet("parkscan "+cmd, pflag.ContinueOnError)
	config.RegisterFlags(fs)

	var opts analyzeOptions
	if cmd == "analyze" {
		opts.register(fs)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	// A .env file in the working directory seeds PARKSCAN_* variables
	// without overriding ones already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	settings, err := config.Load(fs)
	if err != nil {
		return err
	}
	log, err := logging.New(settings.Log)
	if err != nil {
		return err
	}
	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Str("command", cmd).
		Msg("starting")

	app, err := newApp(ctx, settings, log)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case "analyze":
		failed, err := runAnalyze(ctx, app.analyzer, fs.Args(), settings.Pipeline.Workers, opts, os.Stdout)
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d images failed", failed, len(fs.Args()))
		}
		return nil

	case "serve":
		h := httpapi.NewHandler(app.analyzer, app.store, 0, log)
		return httpapi.Serve(ctx, settings.HTTP.Addr, httpapi.NewRouter(h, log), log)

	default:
		srvOpts := []server.Option{
			server.WithStore(app.store),
			server.WithWorkers(settings.Pipeline.Workers),
			server.WithVersion(Version),
			server.WithLogger(log),
		}
		if app.text != nil {
			srvOpts = append(srvOpts, server.WithTextZones(app.text))
		}
		return server.New(app.analyzer, srvOpts...).Run(ctx)
	}
}
