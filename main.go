// Command cardguess starts the card guessing game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Game options come from the environment (optionally a .env file); flags
// control host/port, override the asset and alias locations, and enable
// optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/cardguess/api"
	"github.com/wricardo/cardguess/game/assets"
	"github.com/wricardo/cardguess/game/config"
	"github.com/wricardo/cardguess/game/service"
	"github.com/wricardo/cardguess/game/session"
	"github.com/wricardo/cardguess/transport/mcp"
	"github.com/wricardo/cardguess/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Card Guess Game Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	assetDir     = flag.String("asset-dir", "", "Directory of card images (overrides ASSET_DIRECTORY)")
	aliasFile    = flag.String("alias-file", "", "Alias file path (overrides ALIAS_FILE)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  ASSET_DIRECTORY, ALIAS_FILE, TEASER_DIRECTORY, CROP_SIZE, CROP_POLICY,\n")
		fmt.Fprintf(os.Stderr, "  MAX_ATTEMPTS, TIMEOUT_SECONDS, SCOPE_ALLOW_LIST, SEED, POOL_RESCAN_INTERVAL, LOG_LEVEL\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -asset-dir ./menu        # Serve cards from ./menu\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                # Run MCP stdio server\n", os.Args[0])
	}
}

// application holds the wired game components
type application struct {
	settings *config.Settings
	service  service.GameService
	hub      *websocket.Hub
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("Error loading .env file: %v", err)
		}
	} else {
		logrus.Info("Loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	settings, err := loadSettings()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	setupLogging(settings)

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	logrus.Infof("Starting %s v%s (mode: %s)", AppName, Version, mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeServices(ctx, settings)
	if err != nil {
		logrus.Fatalf("Failed to initialize services: %v", err)
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(app)

	case "server", "http":
		runHTTPServer(ctx, cancel, app)

	default:
		logrus.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// loadSettings reads the environment, applies flag overrides and validates the result
func loadSettings() (*config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	if *assetDir != "" {
		settings.AssetDirectory = *assetDir
	}
	if *aliasFile != "" {
		settings.AliasFile = *aliasFile
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func setupLogging(settings *config.Settings) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(settings.Level())
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetReportCaller(true)
	}
}

// initializeServices wires the alias table, candidate pool, teaser generator,
// round registry, timeout scheduler and websocket hub into a game service.
// It also starts the hub loop and, when configured, the pool rescan routine.
func initializeServices(ctx context.Context, settings *config.Settings) (*application, error) {
	aliases, err := config.NewManager(settings.AliasFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}

	pool := assets.NewPool(settings.AssetDirectory, settings.Seed)
	count, err := pool.Rescan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan assets: %w", err)
	}
	logrus.Infof("Loaded %d images from %s", count, settings.AssetDirectory)
	if count == 0 {
		logrus.Warnf("Asset directory %s has no images; rounds will fail until it is filled", settings.AssetDirectory)
	}
	for _, answer := range aliases.Missing(pool.Answers()) {
		logrus.Warnf("No alias entry for %s in %s", answer, aliases.Path())
	}

	reaper := assets.NewReaper()
	generator := assets.NewGenerator(assets.GeneratorOptions{
		Dir:      settings.TeaserDirectory,
		CropSize: settings.CropSize,
		Policy:   settings.CropPolicy,
		Seed:     settings.Seed,
		Reaper:   reaper,
	})

	if len(settings.ScopeAllowList) == 0 {
		logrus.Warn("SCOPE_ALLOW_LIST is empty; no scope can start a round (use * to allow all)")
	}

	hub := websocket.NewHub()

	gameService := service.NewGameService(service.Dependencies{
		Registry:  session.NewRegistry(),
		Scheduler: session.NewScheduler(),
		Pool:      pool,
		Generator: generator,
		Reaper:    reaper,
		Aliases:   aliases,
		Notifier:  service.Notifiers{hub, service.LogNotifier{}},
	}, service.Options{
		MaxAttempts: settings.MaxAttempts,
		Timeout:     settings.Timeout(),
		AllowList:   settings.ScopeAllowList,
	})

	hub.SetGuessHandler(func(ctx context.Context, scopeID, player, text string) error {
		_, err := gameService.SubmitGuess(ctx, scopeID, player, text)
		return err
	})
	go hub.Run(ctx)

	if settings.PoolRescanInterval > 0 {
		go poolRescanRoutine(ctx, gameService, settings.PoolRescanInterval)
	}

	return &application{
		settings: settings,
		service:  gameService,
		hub:      hub,
	}, nil
}

// poolRescanRoutine periodically rereads the asset directory so new cards
// join the pool without a restart.
func poolRescanRoutine(ctx context.Context, gameService service.GameService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := gameService.RescanPool(ctx); err != nil {
				logrus.Warnf("Pool rescan failed: %v", err)
			}
		}
	}
}

// newMCPHandler exposes the MCP server over plain HTTP POST
func newMCPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cancel context.CancelFunc, app *application) {
	apiServer := api.NewServer(app.service, app.hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", newMCPHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logrus.Infof("HTTP server listening on %s", addr)
		logrus.Infof("REST API: http://%s/api", addr)
		logrus.Infof("WebSocket: ws://%s/ws?scope=<scope_id>", addr)
		logrus.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if !ngrokShouldRun {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			ngrokShouldRun = true
		}
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	sig := <-stop
	logrus.Infof("Received signal: %v. Shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the game first so no timer fires into a closing hub
	if err := app.service.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Game service shutdown error: %v", err)
	}
	cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	logrus.Info("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	// Get auth token from flag or environment (support both naming conventions)
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}

	if authToken == "" {
		logrus.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logrus.Info("Starting ngrok tunnel...")

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logrus.Infof("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx,
		tunnel,
		ngrok.WithAuthtoken(authToken),
	)
	if err != nil {
		logrus.Errorf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logrus.Errorf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	logrus.Infof("🚀 Ngrok tunnel established: %s", ngrokURL)
	logrus.Infof("  REST API (ngrok): %s/api", ngrokURL)
	logrus.Infof("  WebSocket (ngrok): %s/ws?scope=<scope_id>", ngrokURL)
	logrus.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logrus.Errorf("Ngrok server error: %v", err)
	}
	logrus.Info("Ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(app *application) {
	var baseURL string

	externalURL := "http://localhost:8080"
	logrus.Infof("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logrus.Infof("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		logrus.Info("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logrus.Fatalf("Failed to get available port: %v", err)
		}

		internalAddr := listener.Addr().String()
		logrus.Infof("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		httpServer := &http.Server{
			Handler: api.NewServer(app.service, app.hub),
		}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logrus.Errorf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}
	defer app.service.Shutdown(context.Background())

	mcpClient := mcp.NewClient(baseURL)
	logrus.Infof("MCP stdio server ready (API at %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logrus.Errorf("MCP stdio server error: %v", err)
	}
}
