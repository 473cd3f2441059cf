package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iwvelando/bigmac-dashboard/internal/config"
	"github.com/iwvelando/bigmac-dashboard/internal/insight"
	"github.com/iwvelando/bigmac-dashboard/internal/server"
	"github.com/iwvelando/bigmac-dashboard/internal/session"
	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/events"
	"github.com/iwvelando/bigmac-dashboard/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zc zap.Config
	switch format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Fail early if the file cannot be written.
		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zc.OutputPaths = []string{loggingConfig.OutputFile}
		zc.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zc.Build()
}

// loadConfiguration reads path. When allowMissing is set a missing file
// yields the defaults.
func loadConfiguration(path string, allowMissing bool) (*config.Configuration, error) {
	if allowMissing {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.LoadConfiguration(path)
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	serve := flag.Bool("serve", false, "start the HTTP API instead of running a single analysis")
	serverConfig := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	exportPath := flag.String("export", "", "write the analysis workbook (xlsx) to this path")
	insightKind := flag.String("insight", "", "request a narrative: metrics, trend, changepoints, report")
	percentile := flag.Float64("percentile", 0, "change-point percentile override, in (0, 100)")
	envFile := flag.String("env-file", ".env", "dotenv file with credentials such as "+constants.APIKeyEnvVar)
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// Credentials from the dotenv file must be in the environment before the
	// configuration binds them.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file %s\", \"error\": \"%v\"}\n", *envFile, err)
		os.Exit(1)
	}

	conf, err := loadConfiguration(*configLocation, *serve)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	if *serve {
		os.Exit(runServer(conf, *serverConfig, *logLevel))
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over config
	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(conf.Output.Format); err != nil {
		logger.Fatal(err.Error(), zap.String("op", "main"))
	}
	if *percentile != 0 {
		if err := validation.ValidatePercentile(*percentile); err != nil {
			logger.Fatal(err.Error(), zap.String("op", "main"))
		}
		conf.Analysis.Percentile = *percentile
	}
	if *exportPath != "" {
		conf.Output.ExportPath = *exportPath
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	var kind insight.Kind
	if *insightKind != "" {
		if kind, err = insight.ParseKind(*insightKind); err != nil {
			logger.Fatal("invalid insight kind",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runAnalysis(ctx, logger, conf, kind); err != nil {
		logger.Fatal("analysis failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

// runServer serves the API until interrupted and returns the exit code.
func runServer(conf *config.Configuration, serverConfigPath, logLevel string) int {
	srvCfg, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", serverConfigPath, err)
		return 1
	}

	loggingConfig := conf.Logging
	if srvCfg.Logging != (config.LoggingConfig{}) {
		loggingConfig = srvCfg.Logging
	}
	logger, err := initializeLogger(loggingConfig, logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runServer"),
		)
	}

	narrator, err := insight.NewNarrator(conf.Insight, logger)
	if err != nil {
		logger.Error("failed to build narrator", zap.String("op", "main.runServer"), zap.Error(err))
		return 1
	}
	catalog, err := events.Load(conf.Insight.EventsFile)
	if err != nil {
		logger.Error("failed to load events", zap.String("op", "main.runServer"), zap.Error(err))
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := session.NewStore()
	handler, err := server.NewHandler(server.Dependencies{
		Logger:        logger,
		Store:         store,
		Narrator:      narrator,
		Catalog:       catalog,
		Settings:      conf,
		Registry:      registry,
		MaxUploadSize: srvCfg.UploadSizeBytes(),
		Version:       version,
	})
	if err != nil {
		logger.Error("failed to build handler", zap.String("op", "main.runServer"), zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, srvCfg, handler, store, logger); err != nil {
		logger.Error("server stopped", zap.String("op", "main.runServer"), zap.Error(err))
		return 1
	}
	return 0
}
