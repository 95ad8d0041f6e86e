package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhandras/stepwise/internal/config"
	"github.com/bhandras/stepwise/internal/entitlement"
	"github.com/bhandras/stepwise/internal/server"
	"github.com/bhandras/stepwise/internal/server/crypto"
	"github.com/bhandras/stepwise/internal/server/database"
	"github.com/bhandras/stepwise/internal/version"
	"github.com/bhandras/stepwise/pkg/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	overrides, args, err := parseFlags(args)
	if err != nil {
		return err
	}

	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "help", "--help", "-h":
		printUsage()
		return nil
	case "version", "--version", "-v":
		fmt.Println("stepwise-server " + version.RichVersion())
		return nil
	}

	cfg, err := config.LoadServer(overrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	}

	switch cmd {
	case "serve":
		return serve(cfg)
	case "issue-token":
		return issueToken(cfg, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseFlags(args []string) (config.Overrides, []string, error) {
	fs := flag.NewFlagSet("stepwise-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	addr := fs.String("addr", "", "Listen address (overrides PORT)")
	dbPath := fs.String("db", "", "SQLite database path")
	generator := fs.String("generator", "", "Step generator (scripted|openai)")
	debug := fs.Bool("debug", false, "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, nil, err
	}

	var o config.Overrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			o.Addr = addr
		case "db":
			o.DatabasePath = dbPath
		case "generator":
			o.Generator = generator
		case "debug":
			o.Debug = debug
		}
	})
	return o, fs.Args(), nil
}

func serve(cfg *config.Server) error {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Infof("Opening database: %s", cfg.DatabasePath)
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	jwtManager, err := crypto.NewJWTManager(cfg.MasterSecret)
	if err != nil {
		return fmt.Errorf("failed to create JWT manager: %w", err)
	}

	gen, err := server.NewGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	router := server.NewRouter(server.Deps{
		Store:          database.NewStore(db),
		JWT:            jwtManager,
		Generator:      gen,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// No write timeout: step streams stay open while the model generates.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Stepwise Server %s starting on %s (generator=%s)", version.Version(), cfg.Addr, cfg.Generator)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Infof("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// issueToken prints a bearer token for a user and optionally records the
// user's tier.
func issueToken(cfg *config.Server, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: stepwise-server issue-token <user> [tier]")
	}
	userID := args[0]

	jwtManager, err := crypto.NewJWTManager(cfg.MasterSecret)
	if err != nil {
		return err
	}

	if len(args) == 2 {
		tier := strings.ToUpper(args[1])
		if tier != entitlement.TierPlus && tier != entitlement.TierFree {
			return fmt.Errorf("invalid tier %q (expected %s or %s)", args[1], entitlement.TierPlus, entitlement.TierFree)
		}
		db, err := database.Open(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := database.NewStore(db).SetTier(context.Background(), userID, tier); err != nil {
			return err
		}
		logger.Infof("Set tier of %s to %s", userID, tier)
	}

	token, err := jwtManager.CreateToken(userID, 0)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printUsage() {
	fmt.Println(`stepwise-server - step-by-step tutorial server

Usage:
  stepwise-server [flags] [serve]            Run the HTTP server
  stepwise-server issue-token <user> [tier]  Print a bearer token (and set tier PLUS|FREE)
  stepwise-server version                    Show version information

Environment Variables:
  PORT                     Listen port (default: 3005)
  DATABASE_PATH            SQLite database (default: ./stepwise.db)
  STEPWISE_MASTER_SECRET   Token signing secret (required)
  STEPWISE_GENERATOR       scripted|openai (default: scripted)
  STEPWISE_SCRIPTED_STEPS  Length of scripted tutorials (default: 5)
  OPENAI_API_KEY           Required for the openai generator
  OPENAI_MODEL             Model name (default: gpt-4o-mini)
  DEBUG                    Enable debug logging (true/1)

Flags:
  --addr        Listen address
  --db          SQLite database path
  --generator   Step generator
  --debug       Enable debug logging`)
}
