package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/b2c-validator/internal/config"
	"github.com/your-org/b2c-validator/internal/help"
	"github.com/your-org/b2c-validator/internal/service/b2c"
	httpTransport "github.com/your-org/b2c-validator/internal/transport/http"
	"github.com/your-org/b2c-validator/pkg/logger"
	"github.com/your-org/b2c-validator/pkg/resilience/circuitbreaker"
	"github.com/your-org/b2c-validator/pkg/resilience/ratelimit"
)

var (
	// Version is set during build
	Version = "dev"
	// BuildTime is set during build
	BuildTime = "unknown"
	// GitCommit is set during build
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	showEnvHelp := flag.Bool("help-env", false, "Show environment variable documentation")
	watchConfig := flag.Bool("watch-config", false, "Reload configuration on file change")

	helpGen := help.NewGenerator(help.AppInfo{
		Name:        "b2c-validator",
		Description: "Azure AD B2C access token validation service",
		Version:     Version,
		BuildTime:   BuildTime,
		GitCommit:   GitCommit,
		DocsURL:     "https://github.com/your-org/b2c-validator",
	}, "B2C")
	helpGen.ExtractEnvVars(config.Config{})

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, helpGen.PrintExtendedHelp())
	}
	flag.Parse()

	if *showVersion {
		fmt.Print(helpGen.PrintVersion())
		os.Exit(0)
	}
	if *showEnvHelp {
		fmt.Print(helpGen.PrintEnvVars())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.InitMasker(cfg.SensitiveData)

	logger.Info("starting b2c-validator",
		logger.String("version", Version),
		logger.String("commit", GitCommit),
		logger.Int("tenants", len(cfg.Tenants)),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	app, err := initializeApp(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize application", logger.Err(err))
	}

	// Start the application
	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start application", logger.Err(err))
	}

	// Optional config hot-reload
	if *watchConfig && *configPath != "" {
		watcher, err := config.NewWatcher(*configPath)
		if err != nil {
			logger.Fatal("failed to create config watcher", logger.Err(err))
		}
		defer watcher.Close()

		updates, err := watcher.Watch(ctx)
		if err != nil {
			logger.Fatal("failed to watch config file", logger.Err(err))
		}
		go applyConfigUpdates(updates)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", logger.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", logger.Err(err))
	}

	logger.Info("b2c-validator stopped")
}

// App represents the application.
type App struct {
	httpServer *httpTransport.Server
	validator  *b2c.Service
}

// initializeApp creates and initializes all application components.
func initializeApp(ctx context.Context, cfg *config.Config) (*App, error) {
	// Discovery and JWKS fetches run behind the circuit breaker when enabled
	var engineOpts []b2c.EngineOption
	if cfg.Resilience.CircuitBreaker.Enabled {
		breaker := circuitbreaker.NewManager(cfg.Resilience.CircuitBreaker)
		engineOpts = append(engineOpts, b2c.WithBreaker(breaker))
	}

	// Initialize the validation service: resolves discovery metadata and
	// fetches the initial signing key set for every configured tenant
	validator, err := b2c.NewService(ctx, cfg, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation service: %w", err)
	}

	// Initialize HTTP server
	var httpServer *httpTransport.Server
	if cfg.Server.HTTP.Enabled {
		var serverOpts []httpTransport.ServerOption

		if cfg.Resilience.RateLimit.Enabled {
			limiter, err := ratelimit.NewLimiter(cfg.Resilience.RateLimit)
			if err != nil {
				return nil, fmt.Errorf("failed to create rate limiter: %w", err)
			}
			serverOpts = append(serverOpts, httpTransport.WithRateLimiter(limiter))
		}

		httpServer, err = httpTransport.NewServer(cfg, validator, Version, serverOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP server: %w", err)
		}
	}

	return &App{
		httpServer: httpServer,
		validator:  validator,
	}, nil
}

// Start starts all application components.
func (a *App) Start(ctx context.Context) error {
	if err := a.validator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start validation service: %w", err)
	}

	// Start HTTP server in goroutine
	if a.httpServer != nil {
		go func() {
			if err := a.httpServer.Start(); err != nil {
				logger.Error("HTTP server error", logger.Err(err))
			}
		}()
	}

	logger.Info("application started")
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *App) Shutdown(ctx context.Context) error {
	// Shutdown HTTP server
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown HTTP server", logger.Err(err))
		}
	}

	// Stop the validation service (background refresh, caches)
	if err := a.validator.Stop(); err != nil {
		logger.Error("failed to stop validation service", logger.Err(err))
	}

	return nil
}

// applyConfigUpdates consumes reloaded configs. Only the log level is
// applied live; tenant, cache and server changes require a restart.
func applyConfigUpdates(updates <-chan config.Update) {
	for update := range updates {
		level := update.Config.Logging.Level
		if level != "" && level != logger.GetLevel() {
			if err := logger.SetLevel(level); err != nil {
				logger.Error("failed to apply reloaded log level", logger.Err(err))
				continue
			}
			logger.Info("log level applied from reloaded config",
				logger.String("level", level),
			)
		}
	}
}
