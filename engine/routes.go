package engine

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/drummonds/localpdf/config"
	"github.com/drummonds/localpdf/converter"
	"github.com/drummonds/localpdf/database"
	"github.com/drummonds/localpdf/internal/build"
	"github.com/drummonds/localpdf/metrics"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Dispatcher   *converter.Dispatcher
	LandingPage  []byte // served at / when set
	NotFoundPage []byte // served for unknown non-API paths when set

	allowedExtensions map[string]bool
}

// NewServerHandler builds the handler for one server. db may be nil, in which case conversions are not logged.
func NewServerHandler(e *echo.Echo, serverConfig config.ServerConfig, db database.Repository, dispatcher *converter.Dispatcher) *ServerHandler {
	return &ServerHandler{
		DB:                db,
		Echo:              e,
		ServerConfig:      serverConfig,
		Dispatcher:        dispatcher,
		allowedExtensions: serverConfig.AllowedExtensionSet(),
	}
}

// RegisterRoutes adds the conversion endpoint and the JSON API to the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo
	e.HTTPErrorHandler = serverHandler.HTTPErrorHandler

	e.POST("/convert", serverHandler.Convert, middleware.BodyLimit(serverHandler.ServerConfig.MaxUploadSize))

	if serverHandler.LandingPage != nil {
		e.GET("/", func(c echo.Context) error {
			return c.HTMLBlob(http.StatusOK, serverHandler.LandingPage)
		})
	}

	api := e.Group("/api")
	api.GET("/tools", serverHandler.GetTools)
	api.GET("/about", serverHandler.GetAboutInfo)
	api.GET("/health", serverHandler.GetHealth)

	// Job tracking API routes
	api.GET("/jobs", serverHandler.GetRecentJobs)
	api.GET("/jobs/active", serverHandler.GetActiveJobs)
	api.GET("/jobs/:id", serverHandler.GetJob)

	if serverHandler.ServerConfig.MetricsEnabled {
		e.GET("/metrics", metrics.Handler())
	}
}

// errorMessage is the client-facing text for err. Broken internal invariants get a generic message.
func errorMessage(err error) string {
	var failed *converter.ConversionFailedError
	switch {
	case converter.IsValidation(err):
		return err.Error()
	case errors.As(err, &failed):
		return failed.Message()
	default:
		return "Internal server error"
	}
}

// HTTPErrorHandler maps errors to JSON responses, or to an HTML page for unknown non-API paths
func (serverHandler *ServerHandler) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := errorMessage(err)

	var httpErr *echo.HTTPError
	switch {
	case converter.IsValidation(err):
		code = http.StatusBadRequest
	case errors.As(err, &httpErr):
		code = httpErr.Code
		switch code {
		case http.StatusRequestEntityTooLarge:
			message = "File too large. Limit: " + serverHandler.ServerConfig.MaxUploadSize
		case http.StatusInternalServerError:
			message = "Internal server error"
		default:
			message = http.StatusText(code)
			if text, ok := httpErr.Message.(string); ok && text != "" {
				message = text
			}
		}
	}

	if code >= http.StatusInternalServerError {
		Logger.Error("Request failed", "path", c.Request().URL.Path, "status", code, "error", err)
	} else {
		Logger.Debug("Request rejected", "path", c.Request().URL.Path, "status", code, "error", err)
	}

	if code == http.StatusNotFound && !wantsJSON(c.Request().URL.Path) {
		if serverHandler.NotFoundPage != nil {
			c.HTMLBlob(http.StatusNotFound, serverHandler.NotFoundPage)
			return
		}
		c.HTML(http.StatusNotFound, `<!DOCTYPE html>
<html>
<head><title>404 - Not Found</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
	<h1>404 - Page Not Found</h1>
	<p>The page you're looking for doesn't exist.</p>
	<a href="/" style="color: #3498db; text-decoration: none; font-size: 18px;">← Go to Home Page</a>
</body>
</html>`)
		return
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
		return
	}
	c.JSON(code, map[string]string{"error": message})
}

func wantsJSON(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/convert" || path == "/metrics"
}

// GetTools lists the conversion tools
// @Summary List conversion tools
// @Description Every supported tool with its arity and the upload extensions it expects
// @Tags Conversion
// @Produce json
// @Success 200 {array} converter.ToolInfo "Conversion tools"
// @Router /tools [get]
func (serverHandler *ServerHandler) GetTools(c echo.Context) error {
	return c.JSON(http.StatusOK, serverHandler.Dispatcher.Registry().Tools())
}

// GetAboutInfo returns information about the application configuration
// @Summary Get application information
// @Description Retrieve information about the application configuration, version, and database
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	cfg := serverHandler.ServerConfig

	aboutInfo := map[string]interface{}{
		"name":                  "localpdf",
		"version":               build.Version,
		"databaseType":          cfg.DatabaseType,
		"databaseHost":          cfg.DatabaseHost,
		"databasePort":          cfg.DatabasePort,
		"databaseName":          cfg.DatabaseDbname,
		"jobLogEnabled":         serverHandler.DB != nil,
		"renderer":              cfg.RendererType,
		"renderDPI":             cfg.RenderDPI(),
		"ghostscriptConfigured": cfg.GhostscriptPath != "",
		"ghostscriptPath":       cfg.GhostscriptPath,
		"maxUploadSize":         cfg.MaxUploadSize,
		"allowedExtensions":     cfg.AllowedExtensions,
		"metricsEnabled":        cfg.MetricsEnabled,
	}

	return c.JSON(http.StatusOK, aboutInfo)
}

// GetHealth reports that the server is up
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string "healthy"
// @Router /health [get]
func (serverHandler *ServerHandler) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
