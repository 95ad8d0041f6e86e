package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/bhandras/stepwise/internal/config"
	"github.com/bhandras/stepwise/internal/entitlement"
	"github.com/bhandras/stepwise/internal/tui"
	"github.com/bhandras/stepwise/internal/tutorial"
	"github.com/bhandras/stepwise/internal/uievents"
	"github.com/bhandras/stepwise/internal/version"
	"github.com/bhandras/stepwise/internal/workspace"
	"github.com/bhandras/stepwise/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	args, err = parseFlags(cfg, args)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		switch args[0] {
		case "help", "--help", "-h":
			printUsage()
			return nil
		case "version", "--version", "-v":
			fmt.Println("stepwise " + version.RichVersion())
			return nil
		default:
			printUsage()
			return fmt.Errorf("unknown command %q", args[0])
		}
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	if c, ok := ws.(io.Closer); ok {
		defer c.Close()
	}

	runtime := tutorial.NewStreamRuntime(cfg.StreamURL(), tutorial.WithToken(cfg.Token))
	// Deferred first: waits for stream goroutines once sess.Close has
	// stopped the runtime.
	defer runtime.Wait()
	sess := tutorial.NewSession(tutorial.SessionConfig{
		Runtime:   runtime,
		Workspace: ws,
		MaxSteps:  cfg.MaxSteps,
	})
	defer sess.Close()

	tiers := entitlement.NewClient(cfg.ServerURL, cfg.Token)
	defer tiers.Close()

	var bus uievents.Bus
	var wantsPlus atomic.Bool
	off := bus.On(uievents.ShowPlusDialog, func(string) {
		logger.Infof("Plus subscription dialog requested")
		wantsPlus.Store(true)
	})
	defer off()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("stepwise %s: server=%s max-steps=%d", version.Version(), cfg.ServerURL, cfg.MaxSteps)
	err = tui.Run(ctx, tui.Config{
		Session: sess,
		Gate:    entitlement.Gate{Enabled: cfg.TutorialsEnabled, Lookup: tiers},
		Bus:     &bus,
	})
	bus.Wait()

	if wantsPlus.Load() {
		fmt.Printf("Step-by-step tutorials are part of Plus. Upgrade your account at %s to unlock them.\n", cfg.ServerURL)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tutorial view failed: %w", err)
	}
	return nil
}

func parseFlags(cfg *config.Client, args []string) ([]string, error) {
	fs := flag.NewFlagSet("stepwise", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Tutorial server URL")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Bearer token")
	fs.IntVar(&cfg.MaxSteps, "max-steps", cfg.MaxSteps, "Maximum steps per tutorial")
	fs.StringVar(&cfg.WorkspaceFile, "workspace", cfg.WorkspaceFile, "File sent as the current code")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace|debug|info|warn|error)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file (logs are discarded when empty)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.MaxSteps < 1 {
		return nil, fmt.Errorf("invalid --max-steps %d (expected a positive integer)", cfg.MaxSteps)
	}
	return fs.Args(), nil
}

// setupLogging routes logs away from the terminal, which belongs to the TUI.
func setupLogging(cfg *config.Client) (func(), error) {
	lvl, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)

	if cfg.LogFile == "" {
		logger.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return func() { _ = f.Close() }, nil
}

func openWorkspace(cfg *config.Client) (workspace.Accessor, error) {
	if cfg.WorkspaceFile == "" {
		return workspace.Static(""), nil
	}
	f, err := workspace.OpenFile(cfg.WorkspaceFile, workspace.WithOnChange(func(content string) {
		logger.Debugf("workspace: %s changed (%d bytes)", cfg.WorkspaceFile, len(content))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to watch workspace file: %w", err)
	}
	return f, nil
}

func printUsage() {
	fmt.Println(`stepwise - step-by-step coding tutorials in the terminal

Usage:
  stepwise [flags]          Start the tutorial view
  stepwise version          Show version information

Environment Variables:
  STEPWISE_SERVER_URL         Tutorial server (default: http://localhost:3005)
  STEPWISE_TOKEN              Bearer token (see stepwise-server issue-token)
  STEPWISE_MAX_STEPS          Maximum steps per tutorial (default: 10)
  STEPWISE_WORKSPACE_FILE     File sent as the current code
  STEPWISE_STREAM_PATH        Stream endpoint path (default: /api/tutorials/stream/)
  STEPWISE_TUTORIALS_ENABLED  Set to false to turn tutorials off
  STEPWISE_LOG_LEVEL          trace|debug|info|warn|error (default: info)
  STEPWISE_LOG_FILE           Log file (logs are discarded when unset)

Flags:
  --server      Tutorial server URL
  --token       Bearer token
  --max-steps   Maximum steps per tutorial
  --workspace   File sent as the current code
  --log-level   Log level
  --log-file    Log file`)
}
