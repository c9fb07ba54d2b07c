package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	config "github.com/drummonds/localpdf/config"
	"github.com/drummonds/localpdf/converter"
	database "github.com/drummonds/localpdf/database"
	engine "github.com/drummonds/localpdf/engine"
	"github.com/drummonds/localpdf/engine/pdfrenderer"
	"github.com/drummonds/localpdf/scratch"
)

//go:embed public/index.html public/404.html
var publicFS embed.FS

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
	converter.Logger = Logger
	scratch.Logger = Logger
}

// openJobLog connects the job log. A failure is logged and conversions carry on unrecorded.
func openJobLog(serverConfig config.ServerConfig) (database.Repository, func()) {
	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		Logger.Error("Job log unavailable, conversions will not be recorded", "error", err)
		return nil, func() {}
	}
	Logger.Info("Database setup complete")
	return db, func() { db.Close() }
}

// newServer assembles echo, the conversion pipeline and the job log into one handler
func newServer(serverConfig config.ServerConfig, db database.Repository, renderer pdfrenderer.Renderer) (*engine.ServerHandler, error) {
	registry := converter.NewRegistry(serverConfig.ConversionConfig, renderer)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(serverConfig.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(serverConfig.WriteTimeout) * time.Second

	serverHandler := engine.NewServerHandler(e, serverConfig, db, converter.NewDispatcher(registry))
	var err error
	if serverHandler.LandingPage, err = publicFS.ReadFile("public/index.html"); err != nil {
		return nil, err
	}
	if serverHandler.NotFoundPage, err = publicFS.ReadFile("public/404.html"); err != nil {
		return nil, err
	}

	serverHandler.UseMiddleware()
	serverHandler.RegisterRoutes()
	return serverHandler, nil
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Job log will be destroyed on exit")
		fmt.Println("• Perfect for testing and development")
		fmt.Println(strings.Repeat("=", 50) + "\n")
	}

	db, closeDB := openJobLog(serverConfig)
	defer closeDB()

	renderer, err := pdfrenderer.NewRenderer(serverConfig.RendererType, serverConfig.RenderDPI())
	if err != nil {
		Logger.Error("PDF renderer unavailable, pdf-to-images will fail", "renderer", serverConfig.RendererType, "error", err)
	} else {
		defer renderer.Close()
	}

	serverHandler, err := newServer(serverConfig, db, renderer)
	if err != nil {
		Logger.Error("Failed to build server", "error", err)
		os.Exit(1)
	}
	Logger.Info("Echo created")

	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	scheduler := serverHandler.InitializeSchedules() //initialize all the cron jobs
	defer scheduler.Stop()
	Logger.Info("Schedules initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		Logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := serverHandler.Echo.Shutdown(shutdownCtx); err != nil {
			Logger.Error("Server shutdown failed", "error", err)
		}
	}()

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = serverHandler.Echo.Start(addr)
		if errors.Is(startErr, http.ErrServerClosed) {
			startErr = nil
		}

		// Check if error is "address already in use"
		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil {
			// Some other error occurred
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			break
		}
	}

	if serverConfig.ListenAddrPort != startPort {
		Logger.Warn("Server ran on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", serverConfig.ListenAddrPort)
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "address already in use")
}
