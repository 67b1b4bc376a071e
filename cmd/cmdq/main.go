package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattjoyce/cmdq/internal/api"
	"github.com/mattjoyce/cmdq/internal/config"
	"github.com/mattjoyce/cmdq/internal/dispatch"
	"github.com/mattjoyce/cmdq/internal/history"
	"github.com/mattjoyce/cmdq/internal/intake"
	"github.com/mattjoyce/cmdq/internal/lock"
	"github.com/mattjoyce/cmdq/internal/log"
	"github.com/mattjoyce/cmdq/internal/queue"
	"github.com/mattjoyce/cmdq/internal/storage"
	"github.com/mattjoyce/cmdq/internal/term"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		// Bare cmdq starts the interactive session.
		os.Exit(runRun(nil))
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		os.Exit(runRun(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("cmdq version %s\n", version)
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
	fmt.Print(`cmdq - interactive serial command dispatcher

Usage:
  cmdq [run] [flags]
  cmdq config <action> [flags]

Commands:
  run               Start the interactive session (default)
  config check      Validate configuration syntax and integrity
  config lock       Authorize current config (update integrity hashes)
  version           Show version information
  help              Show this help message

Session:
  Each input line is one job: it is tokenized on whitespace and queued
  for the background dispatcher, which runs jobs one at a time in
  submission order. Type 'exit' to quit; pending jobs drain first.
`)
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cmdq config <check|lock> [--config PATH]")
		return 1
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "lock":
		return runConfigLock(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

// resolveConfigPath applies the --config flag, falling back to discovery.
// An empty result means "no config anywhere, run on defaults".
func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.Discover()
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}
	if path == "" {
		fmt.Println("No config file found; built-in defaults apply.")
		return 0
	}

	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration check FAILED: %v\n", err)
		return 1
	}
	fmt.Printf("Configuration check PASSED: %s\n", path)
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "No config file to lock.")
		return 1
	}

	manifestPath, err := config.WriteLock(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Config locked: %s\n", manifestPath)
	return 0
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
		return 1
	}

	cfg := config.Defaults()
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("cmdq starting", "version", version, "config", path, "capacity", cfg.Queue.Capacity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// History is an audit artifact: if the database cannot be opened the
	// session still runs, just without records.
	var hist *history.Store
	db, err := storage.OpenSQLite(ctx, cfg.History.Path)
	if err != nil {
		logger.Warn("job history disabled", "path", cfg.History.Path, "error", err)
	} else {
		defer db.Close()

		lockPath := filepath.Join(filepath.Dir(cfg.History.Path), "cmdq.lock")
		sessionLock, err := lock.Acquire(lockPath)
		if err != nil {
			logger.Error("failed to acquire session lock (another session may be running)", "path", lockPath, "error", err)
			fmt.Fprintf(os.Stderr, "Another cmdq session holds %s\n", lockPath)
			return 1
		}
		defer sessionLock.Release()

		hist = history.NewStore(db)
		logger.Info("job history enabled", "path", cfg.History.Path, "session_id", hist.Session())
	}

	q := queue.New(cfg.Queue.Capacity)
	disp := dispatch.New(q, hist)

	if cfg.API.Enabled {
		// Hand the server a real nil interface when history is disabled; a
		// typed-nil *history.Store would slip past its nil checks.
		var hr api.HistoryReader
		if hist != nil {
			hr = hist
		}
		apiServer := api.New(api.Config{Listen: cfg.API.Listen}, q, disp, hr, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("status server failed", "error", err)
			}
		}()
		logger.Info("status server enabled", "listen", cfg.API.Listen)
	}

	// A signal is a shutdown request, same as typing 'exit': stop taking
	// new work, drain the queue, then leave.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		q.RequestShutdown()
	}()

	dispatcherDone := make(chan struct{})
	go func() {
		disp.Run()
		close(dispatcherDone)
	}()

	// Intake gets its own goroutine so a signal-initiated shutdown can
	// finish even while it sits in a blocking stdin read.
	go intake.New(q, os.Stdin, os.Stdout).Run()

	// The dispatcher stops only once shutdown was requested and every
	// pending job has been dispatched and waited on.
	<-dispatcherDone

	theme := term.DefaultTheme()
	fmt.Println(theme.Done.Render("System shutdown complete."))
	return 0
}
