// Command parksim starts the park simulation server.
//
// It supports three modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, /metrics and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "tui" – runs one park locally and draws it in the terminal
//
// Flags control host/port, config directory, tick rate, debug logging, version output,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wricardo/parksim/api"
	"github.com/wricardo/parksim/game/config"
	"github.com/wricardo/parksim/game/service"
	"github.com/wricardo/parksim/game/session"
	"github.com/wricardo/parksim/observability"
	"github.com/wricardo/parksim/transport/mcp"
	"github.com/wricardo/parksim/transport/terminal"
	"github.com/wricardo/parksim/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Park Simulator Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", getConfigDirDefault(), "Directory containing park configurations")
	tickInterval = flag.Duration("tick", 100*time.Millisecond, "Wall-clock interval between simulation ticks")
	parkConfig   = flag.String("park", "", "Config ID for the park opened in tui mode (default config when empty)")
	seed         = flag.Uint64("seed", 0, "Random seed for the tui park (0 picks one)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getConfigDirDefault returns the default configuration directory.
// It first honors the CONFIG_DIR environment variable, then falls back to "configs".
func getConfigDirDefault() string {
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		return configDir
	}
	return "configs"
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, metrics and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  tui              Run a single park in the terminal\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090         # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -park compact tui  # Play the compact park in the terminal\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn("error loading .env file", "err", err)
		}
	} else {
		log.Info("loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if *debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}
	log.SetReportTimestamp(true)

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.Info("starting", "app", AppName, "version", Version, "mode", mode)

	var metrics *observability.ParkCollector
	var observers []service.ParkObserver
	if mode == "server" || mode == "http" {
		var err error
		metrics, err = observability.NewParkCollector(prometheus.DefaultRegisterer)
		if err != nil {
			log.Fatal("failed to register metrics", "err", err)
		}
		observers = append(observers, metrics)
	}

	parkService, err := initializeServices(observers...)
	if err != nil {
		log.Fatal("failed to initialize services", "err", err)
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(parkService)

	case "server", "http":
		runHTTPServer(parkService, metrics)

	case "tui", "terminal":
		if err := runTerminal(parkService); err != nil {
			log.Fatal("terminal viewer failed", "err", err)
		}

	default:
		log.Fatal("unknown mode, use 'server' (default), 'stdio-mcp' or 'tui'", "mode", mode)
	}
}

// buildHandler combines the REST API, the /metrics endpoint and the /mcp proxy
// into one handler. mcpBaseURL is where the MCP tools send their REST calls.
func buildHandler(parkService service.ParkService, hub *websocket.Hub, metrics *observability.ParkCollector, mcpBaseURL string) http.Handler {
	apiServer := api.NewServer(parkService, hub)
	if metrics != nil {
		apiServer.SetObserver(metrics)
		apiServer.Handle("/metrics", metrics.Handler())
	}

	mcpClient := mcp.NewClient(mcpBaseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
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
	})
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, metrics and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(parkService service.ParkService, metrics *observability.ParkCollector) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	ticker := service.NewTicker(parkService, *tickInterval, hub, metrics)
	go ticker.Run(ctx)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mainRouter := buildHandler(parkService, hub, metrics, fmt.Sprintf("http://%s", addr))

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

		log.Info("HTTP server listening", "addr", addr)
		log.Info("endpoints",
			"rest", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", "err", err)
		}
	}()

	if ngrokShouldRun() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	sig := <-stop
	log.Info("shutting down", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "err", err)
	}

	wg.Wait()
	log.Info("server stopped")
}

// ngrokShouldRun checks the -ngrok flag, then NGROK_ENABLED
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	envEnabled := os.Getenv("NGROK_ENABLED")
	return envEnabled == "true" || envEnabled == "1"
}

// ngrokAuthToken resolves the token from the flag or either environment spelling
func ngrokAuthToken() string {
	if *ngrokAuth != "" {
		return *ngrokAuth
	}
	if token := os.Getenv("NGROK_AUTHTOKEN"); token != "" {
		return token
	}
	return os.Getenv("NGROK_AUTH_TOKEN")
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := ngrokAuthToken()
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Info("using custom ngrok domain", "domain", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", "err", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Error("failed to close ngrok tunnel", "err", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Info("ngrok tunnel established", "url", ngrokURL,
		"rest", ngrokURL+"/api",
		"ws", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("ngrok server error", "err", err)
	}
	log.Info("ngrok tunnel closed")
}

// initializeServices wires session/config managers and the park service.
// It also starts a background cleanup routine to prune stale sessions; observers
// are told about every session it removes.
func initializeServices(observers ...service.ParkObserver) (service.ParkService, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	parkService := service.NewParkService(sessionManager, configManager)

	go sessionCleanupRoutine(sessionManager, observers)

	return parkService, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(manager *session.Manager, observers []service.ParkObserver) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		pruneExpiredSessions(manager, 24*time.Hour, observers)
	}
}

// pruneExpiredSessions removes stale sessions and tells each observer to forget them
func pruneExpiredSessions(manager *session.Manager, maxAge time.Duration, observers []service.ParkObserver) []string {
	removed := manager.CleanupExpiredSessions(maxAge)
	for _, id := range removed {
		for _, o := range observers {
			o.ForgetSession(id)
		}
	}
	if len(removed) > 0 {
		log.Info("cleaned up expired sessions", "count", len(removed))
	}
	return removed
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(parkService service.ParkService) {
	var baseURL string

	externalURL := "http://localhost:8080"
	log.Info("checking for external API server", "url", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Info("external API server found, using it for MCP", "url", externalURL)
		baseURL = externalURL
	} else {
		log.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatal("failed to get available port", "err", err)
		}
		internalAddr := listener.Addr().String()

		ctx := context.Background()
		hub := websocket.NewHub()
		go hub.Run(ctx)
		go service.NewTicker(parkService, *tickInterval, hub).Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(parkService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("internal HTTP server error", "err", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
		log.Info("internal HTTP server started for MCP stdio", "addr", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Fatal("MCP stdio server error", "err", err)
	}
}

// runTerminal opens one park and drives it from the keyboard until q is pressed.
// Logs are discarded while the screen is owned by tcell unless -debug is set,
// in which case they go to parksim-tui.log.
func runTerminal(parkService service.ParkService) error {
	if *debug {
		f, err := os.Create("parksim-tui.log")
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	info, err := parkService.CreateSession(ctx, *parkConfig, *seed)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	viewer, err := terminal.NewViewer(ctx, screen, parkService, info.ID)
	if err != nil {
		return err
	}

	go service.NewTicker(parkService, *tickInterval, viewer).Run(ctx)

	err = viewer.Run(ctx)
	cancel()
	return err
}
