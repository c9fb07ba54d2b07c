package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	config "github.com/drummonds/localpdf/config"
	"github.com/drummonds/localpdf/converter"
	database "github.com/drummonds/localpdf/database"
	engine "github.com/drummonds/localpdf/engine"
	"github.com/drummonds/localpdf/engine/pdfrenderer"
	"github.com/drummonds/localpdf/scratch"
)

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

// @title LocalPDF Backend API
// @version 1.0
// @description Document conversion gateway - POST /convert plus a JSON API for tools and the job log

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Conversion
// @tag.description File conversion

// @tag.name Jobs
// @tag.description Conversion job log

// @tag.name Admin
// @tag.description Configuration and health

func main() {
	// Parse command-line flags
	port := flag.String("port", "", "Port to run backend server on (overrides SERVER_PORT)")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🔧  LocalPDF Backend API Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• API-only mode (no landing page)")
	fmt.Println("• POST /convert and /api/*")
	fmt.Println("• CORS enabled for frontend access")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	if *port != "" {
		serverConfig.ListenAddrPort = *port
	}

	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println("• Job log will be destroyed on exit")
		fmt.Println()
	}

	var repo database.Repository
	db, err := database.NewRepository(serverConfig)
	if err != nil {
		Logger.Error("Job log unavailable, conversions will not be recorded", "error", err)
	} else {
		repo = db
		defer db.Close()
	}

	renderer, err := pdfrenderer.NewRenderer(serverConfig.RendererType, serverConfig.RenderDPI())
	if err != nil {
		Logger.Error("PDF renderer unavailable, pdf-to-images will fail", "error", err)
	} else {
		defer renderer.Close()
	}
	dispatcher := converter.NewDispatcher(converter.NewRegistry(serverConfig.ConversionConfig, renderer))

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(serverConfig.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(serverConfig.WriteTimeout) * time.Second

	serverHandler := engine.NewServerHandler(e, serverConfig, repo, dispatcher)
	serverHandler.UseMiddleware()
	serverHandler.RegisterRoutes()

	Logger.Info("Initializing backend services...")
	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	scheduler := serverHandler.InitializeSchedules() //initialize all the cron jobs
	defer scheduler.Stop()
	Logger.Info("Backend services initialized")

	addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	Logger.Info("Starting Backend API Server", "address", addr)
	fmt.Printf("\n✅  Backend API Server running on %s\n", addr)
	fmt.Printf("📡  API endpoints available at http://%s/api/\n", addr)
	fmt.Printf("🏥  Health check: http://%s/api/health\n\n", addr)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
