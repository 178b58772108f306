package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nmmd-io/nmmd/internal/config"
	"github.com/nmmd-io/nmmd/internal/events"
	"github.com/nmmd-io/nmmd/internal/lock"
	"github.com/nmmd-io/nmmd/internal/logging"
	"github.com/nmmd-io/nmmd/internal/server"
	"github.com/nmmd-io/nmmd/internal/storage"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "lock":
		os.Exit(runLock(args))
	case "check":
		os.Exit(runCheck(args))
	case "version":
		fmt.Printf("nmmdd version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`nmmdd - TCP command daemon built on pattern dispatch

Usage:
  nmmdd <command> [flags]

Commands:
  start     Run the daemon in the foreground
  lock      Record config integrity hashes
  check     Validate config syntax and integrity
  version   Show version information
  help      Show this help message

Flags (start, lock, check):
  -config <path>   Path to the YAML configuration file
`)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "nmmdd.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if err := config.Verify(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config integrity check failed: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logging.Setup(logging.Options{
		Level:  cfg.Service.LogLevel,
		Format: cfg.Service.LogFormat,
		File:   cfg.Service.LogFile,
	})
	logger := logging.WithComponent("main")
	logger.Info("nmmdd starting", "version", version, "config", *configPath)

	pidLock, err := lock.Acquire(cfg.Server.PIDFile)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)",
			"path", cfg.Server.PIDFile, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to open database",
			"driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer st.Close()
	logger.Info("database opened", "driver", cfg.Database.Driver)

	hub := events.NewHub(256)

	daemon, err := server.New(cfg.Server, st, hub, logging.WithComponent("server"))
	if err != nil {
		logger.Error("failed to build command server", "error", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)

	go func() {
		if err := daemon.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("command server: %w", err)
			return
		}
		// Normal stop (quit command); propagate so main exits.
		errCh <- nil
	}()

	if cfg.API.Enabled {
		api := server.NewAPI(cfg.API, daemon, st, hub, logging.WithComponent("api"))
		go func() {
			if err := api.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("status api: %w", err)
			}
		}()
	}

	select {
	case sig := <-sigCh:
		logger.Info("signal received, shutting down", "signal", sig.String())
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error("fatal error", "error", err)
			cancel()
			return 1
		}
		logger.Info("command server exited")
		cancel()
	}

	logger.Info("nmmdd stopped")
	return 0
}

func runLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", "nmmdd.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if _, err := config.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Refusing to lock invalid config: %v\n", err)
		return 1
	}
	if err := config.Lock(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write checksums: %v\n", err)
		return 1
	}
	fmt.Printf("Config locked: %s\n", *configPath)
	return 0
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "nmmdd.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config invalid: %v\n", err)
		return 1
	}
	if err := config.Verify(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Integrity check failed: %v\n", err)
		return 1
	}
	fmt.Printf("Config OK: service=%s listen=%s:%d driver=%s\n",
		cfg.Service.Name, cfg.Server.Host, cfg.Server.Port, cfg.Database.Driver)
	return 0
}
