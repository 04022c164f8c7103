package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var db *sqlx.DB
var devMode bool

func disableCaching(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Cache-Control", "no-cache")

		next.ServeHTTP(w, r)
	})
}

// shouldCompress determines if a content type should be gzip compressed
func shouldCompress(contentType string) bool {
	for _, prefix := range []string{"text/", "application/json"} {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// responseWriter wraps http.ResponseWriter to handle conditional gzip compression
type responseWriter struct {
	http.ResponseWriter
	gz         *gzip.Writer
	acceptGzip bool
	headerSent bool
}

// WriteHeader checks content type and sets up compression if appropriate
func (w *responseWriter) WriteHeader(statusCode int) {
	if w.headerSent {
		return
	}
	w.headerSent = true

	if w.acceptGzip && shouldCompress(w.Header().Get("Content-Type")) {
		w.gz = gzip.NewWriter(w.ResponseWriter)
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

// Write writes to gzip writer if it exists, otherwise to original writer
func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.headerSent {
		w.WriteHeader(http.StatusOK)
	}

	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// Flush flushes both gzip and response writer
func (w *responseWriter) Flush() {
	if w.gz != nil {
		w.gz.Flush()
	}
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Close closes the gzip writer if it exists
func (w *responseWriter) Close() error {
	if w.gz != nil {
		return w.gz.Close()
	}
	return nil
}

// compress adds gzip compression to compressible responses
func compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{
			ResponseWriter: w,
			acceptGzip:     strings.Contains(r.Header.Get("Accept-Encoding"), "gzip"),
		}
		defer wrapped.Close()

		next.ServeHTTP(wrapped, r)
	})
}

func handleWSMessage(client *Client, message []byte) {
	playerName := getPlayerName(client.roomCode, client.playerID)

	var msg WSMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		appLogger.Warnf("WebSocket unmarshal error for player %s: %v", client.playerID, err)
		return
	}

	LogWSMessage("IN", playerName, string(message))

	switch msg.Action {
	case "start_game":
		handleWSStartGame(client, msg)
	case "night_action":
		handleWSNightAction(client, msg)
	case "vote":
		handleWSVote(client, msg)
	case "advance_phase":
		handleWSAdvancePhase(client)
	case "toggle_life":
		handleWSToggleLife(client, msg)
	case "new_game":
		handleWSNewGame(client)
	default:
		appLogger.Warnf("Unknown action: %s for player %s (%s) in room %s", msg.Action, client.playerID, playerName, client.roomCode)
	}
}

// newRouter wires every endpoint. The websocket route skips compression
// since the upgrade needs the raw connection.
func newRouter() http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, disableCaching(compress(handler)))
	}
	handle("POST /rooms", handleCreateRoom)
	handle("POST /rooms/{code}/join", handleJoinRoom)
	handle("GET /rooms/{code}", handleGetRoom)
	handle("GET /presets", handlePresets)
	handle("POST /logout", handleLogout)
	mux.HandleFunc("GET /ws", handleWebSocket)

	if appLogger.logRequests {
		return &LoggingHandler{Handler: mux, Logger: appLogger}
	}
	return mux
}

func main() {
	flags := registerFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := loadConfig(*flags.configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	flags.applyTo(&cfg)

	logger, err := NewAppLogger(cfg.toLogConfig())
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	appLogger = logger
	defer CloseAppLogger()

	devMode = cfg.Dev
	if _, err := findPreset(cfg.DefaultPreset); err != nil {
		appLogger.Fatalw("Invalid default preset", "error", err)
	}
	defaultPreset = cfg.DefaultPreset

	if appLogger.IsEnabled() {
		appLogger.Info("Extended logging enabled")
	}

	db, err = sqlx.Connect("sqlite3", cfg.DB)
	if err != nil {
		appLogger.Fatalw("Failed to connect to database", "db", cfg.DB, "error", err)
	}
	defer db.Close()

	if err := initDB(); err != nil {
		appLogger.Fatalw("Failed to initialize database", "error", err)
	}
	LogDBState("after initDB")

	initStoryteller(cfg)

	go hub.run()

	server := &http.Server{Addr: cfg.Addr, Handler: newRouter()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		appLogger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	appLogger.Infof("Server starting on %s", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Errorw("Server stopped", "error", err)
	}
	hub.stop()
	storyWG.Wait()
}
