package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sammcj/mcp-excel/internal/telemetry"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// startStreamableHTTPServer configures and starts the Streamable HTTP server with graceful shutdown
func startStreamableHTTPServer(ctx context.Context, cmd *cli.Command, mcpServer *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	authToken := cmd.String("auth-token")
	endpointPath := cmd.String("endpoint-path")
	sessionTimeout := cmd.Duration("session-timeout")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	opts := []mcpserver.StreamableHTTPOption{
		mcpserver.WithEndpointPath(endpointPath),
		mcpserver.WithLogger(&logrusAdapter{logger: logger}),
	}

	heartbeatInterval := 30 * time.Second
	if sessionTimeout > 0 {
		opts = append(opts, mcpserver.WithSessionIdManager(NewTimeoutSessionManager(sessionTimeout, logger)))
		heartbeatInterval = sessionTimeout / 4
	}
	opts = append(opts, mcpserver.WithHeartbeatInterval(heartbeatInterval))
	logger.Infof("Heartbeat interval: %v", heartbeatInterval)

	handler := guardHandler(authToken, cmd.Float("rate-limit"), logger, mcpserver.NewStreamableHTTPServer(mcpServer, opts...))

	mux := http.NewServeMux()
	mux.Handle(endpointPath, telemetry.WrapHandler(handler))

	return runHTTPServer(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	})
}

// guardHandler applies the request checks and rate limit shared by the HTTP transports
func guardHandler(authToken string, rateLimit float64, logger *logrus.Logger, next http.Handler) http.Handler {
	if authToken != "" {
		logger.Info("Bearer token authentication enabled")
	}
	return rateLimited(rateLimit, logger, requestChecks(authToken, logger, next))
}

// runHTTPServer serves until ctx is cancelled, then shuts down gracefully
func runHTTPServer(ctx context.Context, logger *logrus.Logger, server *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
		return err
	}
	logger.Info("HTTP server stopped gracefully")
	return nil
}

// requestChecks rejects requests from foreign origins, with an unsupported
// protocol version or, when expectedToken is set, without the bearer token
func requestChecks(expectedToken string, logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if protocolVersion := req.Header.Get("MCP-Protocol-Version"); protocolVersion != "" && !isValidProtocolVersion(protocolVersion) {
			logger.Warnf("Unsupported MCP Protocol Version: %s", protocolVersion)
			http.Error(w, "unsupported MCP protocol version", http.StatusBadRequest)
			return
		}

		// DNS rebinding protection
		if origin := req.Header.Get("Origin"); origin != "" && !isValidOrigin(origin) {
			logger.Warnf("Invalid Origin header: %s", origin)
			http.Error(w, "forbidden origin", http.StatusForbidden)
			return
		}

		if expectedToken != "" {
			const bearerPrefix = "Bearer "
			authHeader := req.Header.Get("Authorization")
			token, found := strings.CutPrefix(authHeader, bearerPrefix)
			if !found || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.Warn("Request with missing or invalid bearer token")
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorised", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, req)
	})
}

// rateLimited rejects requests beyond perSecond with 429. A non-positive
// limit returns next unchanged.
func rateLimited(perSecond float64, logger *logrus.Logger, next http.Handler) http.Handler {
	if perSecond <= 0 {
		return next
	}
	burst := max(1, int(perSecond))
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	logger.Infof("Rate limiting HTTP requests to %.2f/s (burst %d)", perSecond, burst)

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !limiter.Allow() {
			logger.Debug("Request rejected by rate limiter")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// isValidProtocolVersion checks if the MCP protocol version is supported
func isValidProtocolVersion(version string) bool {
	supportedVersions := []string{
		"2025-06-18",
		"2025-03-26",
		"2024-11-05",
	}
	return slices.Contains(supportedVersions, version)
}

// isValidOrigin allows local origins only
func isValidOrigin(origin string) bool {
	allowedOrigins := []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	}
	for _, allowed := range allowedOrigins {
		if origin == allowed || strings.HasPrefix(origin, allowed+":") {
			return true
		}
	}
	return false
}

// TimeoutSessionManager issues UUID session IDs and expires sessions that
// have been idle for longer than the timeout
type TimeoutSessionManager struct {
	timeout time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewTimeoutSessionManager creates a session manager with the given idle timeout
func NewTimeoutSessionManager(timeout time.Duration, logger *logrus.Logger) *TimeoutSessionManager {
	return &TimeoutSessionManager{
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
}

// Generate starts a new session
func (t *TimeoutSessionManager) Generate() string {
	id := uuid.New().String()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()
	t.lastSeen[id] = t.now()
	return id
}

// Validate reports whether the session has been terminated or has expired.
// A live session has its idle timer reset.
func (t *TimeoutSessionManager) Validate(sessionID string) (bool, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return false, fmt.Errorf("invalid session ID: %s", sessionID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen, ok := t.lastSeen[sessionID]
	if !ok {
		return true, nil
	}
	if t.now().Sub(seen) > t.timeout {
		delete(t.lastSeen, sessionID)
		t.logger.Debugf("Session expired: %s", sessionID)
		return true, nil
	}
	t.lastSeen[sessionID] = t.now()
	return false, nil
}

// Terminate ends a session. Clients may always terminate their own session.
func (t *TimeoutSessionManager) Terminate(sessionID string) (bool, error) {
	t.mu.Lock()
	delete(t.lastSeen, sessionID)
	t.mu.Unlock()

	t.logger.Debugf("Session terminated: %s", sessionID)
	return false, nil
}

func (t *TimeoutSessionManager) pruneLocked() {
	now := t.now()
	for id, seen := range t.lastSeen {
		if now.Sub(seen) > t.timeout {
			delete(t.lastSeen, id)
		}
	}
}

// logrusAdapter adapts logrus.Logger to the mcp-go util.Logger interface
type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
