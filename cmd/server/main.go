// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/scrobblescope/internal/api/rest"
	"github.com/osa030/scrobblescope/internal/app/cache"
	"github.com/osa030/scrobblescope/internal/app/image"
	"github.com/osa030/scrobblescope/internal/app/insights"
	"github.com/osa030/scrobblescope/internal/app/overview"
	"github.com/osa030/scrobblescope/internal/app/ratelimit"
	"github.com/osa030/scrobblescope/internal/infra/config"
	"github.com/osa030/scrobblescope/internal/infra/lastfm"
	"github.com/osa030/scrobblescope/internal/infra/logger"
)

var (
	app        = kingpin.New("scrobblescope-server", "Last.fm artist and album insights server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Console log format").Default("console").Enum("console", "json")

	// list-providers command
	listProvidersCmd = app.Command("list-providers", "List available image providers and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-providers command
	if command == listProvidersCmd.FullCommand() {
		printProviders()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		Format: *logFormat,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if !cfg.HasLastFMKey() {
		zlog.Warn().Msg("No Last.fm API key configured (LASTFM_API_KEY); API requests will fail with CONFIG_ERROR")
	}

	// Create Last.fm client
	lastfmClient := lastfm.New(lastfm.Config{
		APIKey:            cfg.LastFM.APIKey,
		BaseURL:           cfg.LastFM.BaseURL,
		UserAgent:         cfg.LastFM.UserAgent,
		Timeout:           cfg.LastFM.Timeout,
		RequestsPerSecond: cfg.LastFM.RequestsPerSecond,
		Burst:             cfg.LastFM.Burst,
	})

	// Create image fallback chain
	policy := image.NewPolicy(cfg.Images.PlaceholderHashes, cfg.Images.PlaceholderSuffixes)
	chain, err := image.NewChainFromConfig(ctx, cfg.Images.Providers, policy, cfg.LastFM.UserAgent)
	if err != nil {
		return fmt.Errorf("invalid image provider config: %w", err)
	}

	// Create overview service
	service := overview.NewService(lastfmClient, image.NewResolver(policy, chain), overview.Options{
		Insights: insights.Options{
			OutlierThreshold: cfg.Insights.OutlierThreshold,
			MinOutlierTracks: cfg.Insights.MinOutlierTracks,
			TrendSample:      cfg.Insights.TrendSample,
		},
		TopTracksFetch:        cfg.Insights.TopTracksFetch,
		TopTracksShown:        cfg.Insights.TopTracksShown,
		DurationLookups:       cfg.Insights.DurationLookups,
		DurationConcurrency:   cfg.Insights.DurationConcurrency,
		SimilarLimit:          cfg.Insights.SimilarLimit,
		SearchLimit:           cfg.Insights.SearchLimit,
		SearchImageEnrichment: cfg.Insights.SearchImageEnrichment,
	})

	// Create process-wide state
	responseCache := cache.New[any](cache.WithMaxEntries(cfg.Cache.MaxEntries))
	limiter := ratelimit.New(ratelimit.Config{
		Window:     cfg.RateLimit.Window,
		Max:        cfg.RateLimit.Max,
		MaxClients: cfg.RateLimit.MaxClients,
	})
	go responseCache.Run(ctx, cfg.Cache.SweepInterval)
	go limiter.Run(ctx, cfg.RateLimit.SweepInterval)

	// Create router
	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := rest.NewRouter(rest.RouterConfig{
		BasePath:       cfg.Server.BasePath,
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	}, rest.NewHandler(service, responseCache, cfg.Cache.TTL), limiter)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      h2c.NewHandler(router, &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s base_path=%s providers=%d", serverAddr, cfg.Server.BasePath, chain.Len())
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// Stop sweepers
	stop()

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printProviders prints available image providers.
func printProviders() {
	fmt.Println("Available Image Providers:")
	for _, typ := range image.RegisteredTypes() {
		fmt.Printf("  %s\n", typ)
	}
	fmt.Println("  (artist.getInfo images are always tried first for search results)")
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
