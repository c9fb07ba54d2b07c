package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// DefaultAllowedExtensions are the upload extensions accepted when ALLOWED_EXTENSIONS is unset
var DefaultAllowedExtensions = []string{"pdf", "docx", "txt", "xlsx", "jpg", "jpeg", "png"}

// ServerConfig contains all of the server settings. It is built once at startup and passed by value.
type ServerConfig struct {
	ListenAddrIP      string
	ListenAddrPort    string
	ReadTimeout       int // seconds, 0 disables
	WriteTimeout      int // seconds, 0 disables
	DatabaseType      string
	DatabaseHost      string
	DatabasePort      string
	DatabaseUser      string
	DatabasePassword  string `json:"-"`
	DatabaseDbname    string
	DatabaseSslmode   string
	JobRetentionHours int
	ConversionConfig
}

// ConversionConfig holds the settings consumed by the conversion pipeline
type ConversionConfig struct {
	MaxUploadSize        string // echo BodyLimit format, e.g. "100M"
	AllowedExtensions    []string
	ScratchPath          string
	ScratchMaxAge        int // minutes
	SweepInterval        int // minutes
	GhostscriptPath      string
	RendererType         string
	ResolutionMultiplier float64
	MetricsEnabled       bool
}

// RenderDPI is the resolution pdf-to-images rasterizes at
func (c ConversionConfig) RenderDPI() float64 {
	return 72 * c.ResolutionMultiplier
}

// AllowedExtensionSet returns the allow-set as a lookup map of lower case extensions without the dot
func (c ConversionConfig) AllowedExtensionSet() map[string]bool {
	set := make(map[string]bool, len(c.AllowedExtensions))
	for _, ext := range c.AllowedExtensions {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return set
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil || floatVal <= 0 {
		return defaultValue
	}
	return floatVal
}

// getEnvList gets a comma separated environment variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return list
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := SetupLogging()
	Logger = logger

	serverConfigLive := LoadServerConfig()

	fmt.Println("\n========================================")
	fmt.Println("   LocalPDF - File Conversion Gateway")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Upload limit: %s\n", serverConfigLive.MaxUploadSize)
	fmt.Println("Initializing...")

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)
	logger.Info("Conversion configuration loaded",
		"scratchPath", serverConfigLive.ScratchPath,
		"renderer", serverConfigLive.RendererType,
		"dpi", serverConfigLive.RenderDPI(),
		"allowedExtensions", strings.Join(serverConfigLive.AllowedExtensions, ","))

	if serverConfigLive.GhostscriptPath == "" {
		logger.Warn("Ghostscript executable not found, pdf-to-pdfa will fail until it is installed")
	} else if err := checkExecutables(serverConfigLive.GhostscriptPath, logger); err != nil {
		serverConfigLive.GhostscriptPath = ""
	}

	return serverConfigLive, logger
}

// LoadServerConfig reads the server configuration from the environment without any side effects
func LoadServerConfig() ServerConfig {
	serverConfigLive := ServerConfig{}
	conversionConfigLive := ConversionConfig{}

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")
	serverConfigLive.ReadTimeout = getEnvInt("READ_TIMEOUT", 0)
	serverConfigLive.WriteTimeout = getEnvInt("WRITE_TIMEOUT", 0)

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "localpdf")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "localpdf")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")
	serverConfigLive.JobRetentionHours = getEnvInt("JOB_RETENTION_HOURS", 168)

	// Conversion configuration
	conversionConfigLive.MaxUploadSize = getEnv("MAX_UPLOAD_SIZE", "100M")
	conversionConfigLive.AllowedExtensions = getEnvList("ALLOWED_EXTENSIONS", DefaultAllowedExtensions)

	scratchDir := filepath.ToSlash(getEnv("SCRATCH_PATH", filepath.Join(os.TempDir(), "localpdf")))
	scratchDirAbs, err := filepath.Abs(scratchDir)
	if err != nil {
		scratchDirAbs = scratchDir
	}
	conversionConfigLive.ScratchPath = scratchDirAbs
	conversionConfigLive.ScratchMaxAge = getEnvInt("SCRATCH_MAX_AGE", 60)
	conversionConfigLive.SweepInterval = getEnvInt("SWEEP_INTERVAL", 10)

	conversionConfigLive.GhostscriptPath = getEnv("GHOSTSCRIPT_PATH", "")
	if conversionConfigLive.GhostscriptPath == "" {
		if gsPath, err := exec.LookPath("gs"); err == nil {
			conversionConfigLive.GhostscriptPath = gsPath
		}
	}

	conversionConfigLive.RendererType = strings.ToLower(getEnv("PDF_RENDERER", "pdfium"))
	conversionConfigLive.ResolutionMultiplier = getEnvFloat("PDF_RESOLUTION_MULTIPLIER", 2)
	conversionConfigLive.MetricsEnabled = getEnvBool("METRICS_ENABLED", true)

	serverConfigLive.ConversionConfig = conversionConfigLive
	return serverConfigLive
}

// SetupLogging configures the application logger from LOG_LEVEL, LOG_OUTPUT and LOG_FILE
func SetupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "stdout")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "localpdf.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// checkExecutables verifies that an executable exists at the given path
func checkExecutables(executablePath string, logger *slog.Logger) error {
	info, err := os.Stat(executablePath)
	if err != nil {
		logger.Error("Cannot find executable at location specified", "path", executablePath)
		return err
	}
	if info.IsDir() {
		logger.Error("Executable path is a directory", "path", executablePath)
		return fmt.Errorf("executable path is a directory: %s", executablePath)
	}
	logger.Debug("Executable found", "path", executablePath)
	return nil
}
