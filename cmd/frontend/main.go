package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/localpdf/config"
	"github.com/drummonds/localpdf/webapp"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

func main() {
	// Parse command-line flags
	port := flag.String("port", "3000", "Port to run frontend server on")
	backend := flag.String("api", "http://localhost:8000", "Backend server that /api and /convert are proxied to")
	browserAPI := flag.String("browser-api", "", "API URL the browser calls directly (default: through this server's proxy)")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🎨  LocalPDF Frontend Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• WASM application server")
	fmt.Println("• Proxies API calls to backend")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	Logger = config.SetupLogging()
	config.Logger = Logger

	backendURL, err := url.Parse(*backend)
	if err != nil || backendURL.Host == "" {
		Logger.Error("Invalid backend URL", "api", *backend, "error", err)
		return
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())

	Logger.Info("Setting up WASM application...")
	appHandler := webapp.Handler()

	// Serve wasm_exec.js
	e.GET("/wasm_exec.js", func(c echo.Context) error {
		return c.File("web/wasm_exec.js")
	})

	// Register go-app specific resources
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	// Serve static assets
	e.Static("/web", "web")
	e.File("/webapp/webapp.css", "webapp/webapp.css")

	// Inject backend API URL into the page
	e.GET("/config.js", func(c echo.Context) error {
		apiURL, _ := json.Marshal(*browserAPI)
		configJS := fmt.Sprintf("window.localpdfConfig = { apiURL: %s };\n", apiURL)
		return c.Blob(http.StatusOK, "application/javascript", []byte(configJS))
	})

	// Forward the JSON API and conversions to the backend
	proxy := middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{
			{URL: backendURL},
		}),
	})
	e.Group("/api", proxy)
	e.POST("/convert", echo.NotFoundHandler, proxy)

	// Serve go-app handler for all other routes (must be last)
	e.Any("/*", echo.WrapHandler(appHandler))

	addr := fmt.Sprintf(":%s", *port)
	Logger.Info("Starting Frontend Server", "address", addr, "backendAPI", backendURL.String())
	fmt.Printf("\n✅  Frontend Server running on %s\n", addr)
	fmt.Printf("🎨  Open http://localhost:%s in your browser\n", *port)
	fmt.Printf("📡  API proxied to: %s\n\n", backendURL)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
	}
}
