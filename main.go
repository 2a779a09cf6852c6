package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sammcj/mcp-excel/internal/config"
	"github.com/sammcj/mcp-excel/internal/registry"
	"github.com/sammcj/mcp-excel/internal/telemetry"
	"github.com/sammcj/mcp-excel/internal/tools"
	"github.com/sammcj/mcp-excel/internal/tools/excel"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	// Import all tool packages to register them
	_ "github.com/sammcj/mcp-excel/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup
// Using atomic operations to prevent race conditions between signal handlers and cleanup
var (
	debugLogFile atomic.Pointer[os.File]
	isStdioMode  atomic.Bool
	shutdownFns  atomic.Pointer[[]func() error]
)

const (
	// DefaultMemoryLimit is the default memory limit for the Go application (2GB)
	DefaultMemoryLimit = 2 * 1024 * 1024 * 1024
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the appropriate logrus level.
// Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// setMemoryLimit configures the Go runtime memory limit
func setMemoryLimit() {
	var memLimit int64 = DefaultMemoryLimit
	if parsed, err := strconv.ParseInt(os.Getenv("MCP_EXCEL_MEMORY_LIMIT"), 10, 64); err == nil && parsed > 0 {
		memLimit = parsed
	}
	debug.SetMemoryLimit(memLimit)
}

func main() {
	setMemoryLimit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initially discard output - reconfigured once the command knows its transport
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	registry.Init(logger)

	defer performCleanup(logger)

	app := &cli.Command{
		Name:    "mcp-excel",
		Usage:   "MCP server exposing Excel workbooks as tools",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   "stdio",
				Usage:   "Transport type (stdio, sse, or http)",
			},
			&cli.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for HTTP transports (SSE and Streamable HTTP)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Value: "http://localhost",
				Usage: "Base URL for HTTP transports",
			},
			&cli.StringFlag{
				Name:    "auth-token",
				Usage:   "Bearer token required by the Streamable HTTP transport (optional)",
				Sources: cli.EnvVars("MCP_EXCEL_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:  "endpoint-path",
				Value: "/http",
				Usage: "Endpoint path for Streamable HTTP transport",
			},
			&cli.DurationFlag{
				Name:  "session-timeout",
				Value: 30 * time.Minute,
				Usage: "Idle session timeout for Streamable HTTP transport",
			},
			&cli.FloatFlag{
				Name:    "rate-limit",
				Value:   0,
				Usage:   "Maximum requests per second for the HTTP transports (0 disables)",
				Sources: cli.EnvVars("MCP_EXCEL_RATE_LIMIT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("mcp-excel version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			cliCommand(logger),
			demoCommand(logger),
			integrationCommand(logger),
			configCommand(),
		},
		Action: func(cliCtx context.Context, cmd *cli.Command) error {
			return serve(cliCtx, cmd, logger)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// In stdio mode nothing may be written to stdout or stderr
		if !isStdioMode.Load() {
			logger.SetOutput(os.Stderr)
			logger.Fatalf("Error: %v", err)
		}
		os.Exit(1)
	}
}

// serve runs the MCP server on the selected transport
func serve(ctx context.Context, cmd *cli.Command, logger *logrus.Logger) error {
	transport := cmd.String("transport")
	port := cmd.String("port")
	baseURL := cmd.String("base-url")

	isStdioMode.Store(transport == "stdio")
	configureLogging(logger, transport)
	initRuntime(logger, transport != "stdio")

	if transport != "stdio" {
		logger.Infof("Starting mcp-excel version %s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}

	mcpSrv := newMCPServer(logger, transport)

	sessionID := telemetry.GenerateSessionID()
	started := time.Now()
	telemetry.StartSessionSpan(ctx, sessionID, transport)
	telemetry.RecordSessionStart(ctx, transport)
	defer func() {
		telemetry.RecordSessionEnd(context.Background(), transport, time.Since(started).Seconds())
		telemetry.EndSessionSpan()
	}()

	logger.WithField("transport", transport).Debug("Starting server")
	switch transport {
	case "stdio":
		return mcpserver.ServeStdio(mcpSrv)
	case "sse":
		logger.WithField("port", port).Debug("Starting SSE server")
		sseServer := mcpserver.NewSSEServer(mcpSrv, mcpserver.WithBaseURL(fmt.Sprintf("%s:%s", baseURL, port)))
		return runHTTPServer(ctx, logger, &http.Server{
			Addr:              ":" + port,
			Handler:           telemetry.WrapHandler(guardHandler(cmd.String("auth-token"), cmd.Float("rate-limit"), logger, sseServer)),
			ReadHeaderTimeout: 10 * time.Second,
			MaxHeaderBytes:    1 << 20,
		})
	case "http":
		logger.WithField("port", port).Debug("Starting HTTP server")
		return startStreamableHTTPServer(ctx, cmd, mcpSrv, logger)
	default:
		return fmt.Errorf("unsupported transport: %s", transport)
	}
}

// newMCPServer creates the MCP server and registers every enabled tool
func newMCPServer(logger *logrus.Logger, transport string) *mcpserver.MCPServer {
	logger.Debug("Creating MCP server")
	mcpSrv := mcpserver.NewMCPServer("mcp-excel", Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	enabledTools := registry.GetEnabledTools()
	logger.WithField("tool_count", len(enabledTools)).Debug("MCP server created, registering tools")

	for name, tool := range enabledTools {
		if transport != "stdio" {
			logger.Infof("Registering tool: %s", name)
		}
		mcpSrv.AddTool(tool.Definition(), toolHandler(name, logger, transport))
	}
	return mcpSrv
}

// toolHandler adapts a registered tool to an MCP handler with tracing,
// metrics and error logging
func toolHandler(name string, logger *logrus.Logger, transport string) mcpserver.ToolHandlerFunc {
	return func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		currentTool, ok := registry.GetTool(name)
		if !ok {
			return nil, fmt.Errorf("tool not found: %s", name)
		}

		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			if request.Params.Arguments != nil {
				return nil, fmt.Errorf("invalid arguments type: expected map[string]any, got %T", request.Params.Arguments)
			}
			args = map[string]any{}
		}

		spanCtx, span := telemetry.StartToolSpan(toolCtx, name, args)
		started := time.Now()
		result, err := currentTool.Execute(spanCtx, registry.GetLogger(), registry.GetCache(), args)
		telemetry.EndToolSpan(span, err)
		telemetry.RecordToolCall(spanCtx, name, transport, err == nil && (result == nil || !result.IsError), float64(time.Since(started).Milliseconds()))

		if err != nil {
			telemetry.RecordToolError(spanCtx, name, telemetry.CategoriseToolError(err))
			if transport != "stdio" {
				logger.WithError(err).Errorf("Tool execution failed: %s", name)
			}
			if errorLogger := tools.GetGlobalErrorLogger(); errorLogger.IsEnabled() {
				errorLogger.LogToolError(name, args, err, transport)
			}
			return nil, fmt.Errorf("tool execution failed: %w", err)
		}
		return result, nil
	}
}

// initRuntime loads the configuration and starts the error logger and
// telemetry. Problems are logged and never stop the server.
func initRuntime(logger *logrus.Logger, verbose bool) {
	warn := func(err error, msg string) {
		if verbose {
			logger.WithError(err).Warn(msg)
		} else {
			logger.WithError(err).Debug(msg)
		}
	}

	if err := config.LoadError(); err != nil {
		warn(err, "Configuration loaded with errors, using defaults for invalid values")
	}
	logger.WithField("path", config.Path()).Debug("Configuration loaded")

	if err := tools.InitGlobalErrorLogger(logger, logDir()); err != nil {
		warn(err, "Failed to initialise tool error logger")
	}

	var fns []func() error
	if shutdown, err := telemetry.InitTracer(logger, Version); err != nil {
		warn(err, "Failed to initialise tracing")
	} else if shutdown != nil {
		fns = append(fns, shutdown)
	}
	if shutdown, err := telemetry.InitMetrics(logger, Version); err != nil {
		warn(err, "Failed to initialise metrics")
	} else if shutdown != nil {
		fns = append(fns, shutdown)
	}
	shutdownFns.Store(&fns)
}

func logDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mcp-excel", "logs")
	}
	return filepath.Join(homeDir, config.AppDirName, "logs")
}

// configureLogging sends logs to ~/.mcp-excel/logs/mcp-excel.log. Logs never
// go to stdout in stdio mode, since that would break the protocol.
func configureLogging(logger *logrus.Logger, transport string) {
	logLevel := parseLogLevel()
	// stdio mode logs at warn level at minimum
	if transport == "stdio" && logLevel < logrus.WarnLevel {
		logLevel = logrus.WarnLevel
	}
	logger.SetLevel(logLevel)
	logrus.SetLevel(logLevel)

	var out io.Writer = os.Stderr
	if transport == "stdio" {
		out = io.Discard
	}

	dir := logDir()
	if err := os.MkdirAll(dir, 0700); err == nil {
		logFile := filepath.Join(dir, "mcp-excel.log")
		if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			debugLogFile.Store(file)
			out = file
		}
	}

	logger.SetOutput(out)
	logrus.SetOutput(out)
	logger.WithField("level", logLevel.String()).Debug("Logging configured")
}

// performCleanup handles cleanup of resources on shutdown
func performCleanup(logger *logrus.Logger) {
	// Unsaved workbook changes are discarded, as with close_active_workbook
	if err := excel.Shutdown(registry.GetCache()); err != nil {
		logger.WithError(err).Warn("Failed to close workbooks")
	}

	if fns := shutdownFns.Load(); fns != nil {
		for _, fn := range *fns {
			if err := fn(); err != nil {
				logger.WithError(err).Debug("Telemetry shutdown failed")
			}
		}
	}

	if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil {
		if err := errorLogger.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}

	// Closed last, the logger might write to it until here
	if file := debugLogFile.Load(); file != nil {
		_ = file.Close()
	}
}
