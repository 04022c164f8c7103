package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppLogger provides logging utilities for the application.
// Used by both the server and tests.
type AppLogger struct {
	*zap.SugaredLogger
	base        *zap.Logger
	logRequests bool
	logDB       bool
	logWS       bool
	debug       bool

	mu             sync.Mutex
	requestCount   int
	wsMessageCount int
}

// Global application logger (used by server). Never nil.
var appLogger = wrapLogger(zap.NewNop(), LogConfig{})

// LogConfig holds logging configuration
type LogConfig struct {
	OutputDir   string
	Level       string
	MaxSizeMB   int
	MaxBackups  int
	LogRequests bool
	LogDB       bool
	LogWS       bool
	Debug       bool
	Dev         bool
}

// NewAppLogger builds a console logger and, when OutputDir is set, tees a JSON
// copy into a size-rotated file.
func NewAppLogger(cfg LogConfig) (*AppLogger, error) {
	lvl := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	if cfg.Debug {
		lvl = zapcore.DebugLevel
	}
	level := zap.NewAtomicLevelAt(lvl)

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level)

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		fileCfg := encoderCfg
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.OutputDir, "werewolf.log"),
			MaxSize:    max(1, cfg.MaxSizeMB),
			MaxBackups: max(0, cfg.MaxBackups),
			Compress:   true,
		}
		core = zapcore.NewTee(core, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Dev {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return wrapLogger(zap.New(core, opts...).Named("werewolf"), cfg), nil
}

func wrapLogger(l *zap.Logger, cfg LogConfig) *AppLogger {
	return &AppLogger{
		SugaredLogger: l.Sugar(),
		base:          l,
		logRequests:   cfg.LogRequests,
		logDB:         cfg.LogDB,
		logWS:         cfg.LogWS,
		debug:         cfg.Debug,
	}
}

// Close flushes buffered entries.
func (al *AppLogger) Close() {
	_ = al.base.Sync()
}

// LogRequest logs an HTTP request and response
func (al *AppLogger) LogRequest(method, url string, status int, reqBody, respBody []byte) {
	if !al.logRequests {
		return
	}

	al.mu.Lock()
	al.requestCount++
	n := al.requestCount
	al.mu.Unlock()

	al.base.Info("http request",
		zap.Int("n", n),
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", status),
		zap.ByteString("request", truncate(reqBody, 2000)),
		zap.ByteString("response", truncate(respBody, 5000)),
	)
}

// LogWebSocket logs a WebSocket message
func (al *AppLogger) LogWebSocket(direction, player, message string) {
	if !al.logWS {
		return
	}

	al.mu.Lock()
	al.wsMessageCount++
	n := al.wsMessageCount
	al.mu.Unlock()

	al.base.Info("websocket",
		zap.Int("n", n),
		zap.String("dir", direction),
		zap.String("player", player),
		zap.String("message", message),
	)
}

// LogDB dumps the current database state
func (al *AppLogger) LogDB(context string) {
	if !al.logDB || db == nil {
		return
	}
	al.base.Info("database dump", zap.String("context", context), zap.String("dump", dumpDB()))
}

// Debug logs a debug message if debug mode is enabled
func (al *AppLogger) Debug(context, format string, args ...any) {
	if !al.debug {
		return
	}
	al.base.Debug(fmt.Sprintf(format, args...), zap.String("context", context))
}

// IsEnabled returns true if any extended logging is enabled
func (al *AppLogger) IsEnabled() bool {
	return al.logRequests || al.logDB || al.logWS || al.debug
}

func truncate(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}
	return append(b[:limit:limit], fmt.Sprintf("... (truncated, %d bytes total)", len(b))...)
}

// dumpDB renders every table in a plain text form.
func dumpDB() string {
	var buf bytes.Buffer

	var tables []string
	if err := db.Select(&tables, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"); err != nil {
		fmt.Fprintf(&buf, "Error getting tables: %v\n", err)
		return buf.String()
	}

	for _, table := range tables {
		fmt.Fprintf(&buf, "--- Table: %s ---\n", table)

		rows, err := db.Query("SELECT * FROM " + table)
		if err != nil {
			fmt.Fprintf(&buf, "Error: %v\n\n", err)
			continue
		}

		cols, err := rows.Columns()
		if err != nil {
			fmt.Fprintf(&buf, "Error getting columns: %v\n\n", err)
			rows.Close()
			continue
		}
		fmt.Fprintf(&buf, "Columns: %s\n", strings.Join(cols, " | "))

		rowCount := 0
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		for rows.Next() {
			rowCount++
			if err := rows.Scan(valuePtrs...); err != nil {
				fmt.Fprintf(&buf, "Error scanning row: %v\n", err)
				continue
			}

			var rowStr []string
			for _, v := range values {
				switch val := v.(type) {
				case nil:
					rowStr = append(rowStr, "NULL")
				case []byte:
					rowStr = append(rowStr, string(val))
				default:
					rowStr = append(rowStr, fmt.Sprintf("%v", val))
				}
			}
			fmt.Fprintf(&buf, "Row %d: %s\n", rowCount, strings.Join(rowStr, " | "))
		}
		rows.Close()

		if rowCount == 0 {
			buf.WriteString("(empty)\n")
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// LoggingHandler wraps http.Handler to log requests/responses.
// WebSocket requests (/ws) are passed through without recording
// because they require http.Hijacker which ResponseRecorder doesn't support.
type LoggingHandler struct {
	Handler http.Handler
	Logger  *AppLogger
}

func (l *LoggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		l.Logger.LogRequest(r.Method, r.URL.String(), http.StatusSwitchingProtocols, nil, []byte("[WebSocket upgrade]"))
		l.Handler.ServeHTTP(w, r)
		return
	}

	var reqBody []byte
	if r.Body != nil {
		reqBody, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	rec := httptest.NewRecorder()
	l.Handler.ServeHTTP(rec, r)

	for k, v := range rec.Header() {
		w.Header()[k] = v
	}
	w.WriteHeader(rec.Code)
	respBody := rec.Body.Bytes()
	w.Write(respBody)

	l.Logger.LogRequest(r.Method, r.URL.String(), rec.Code, reqBody, respBody)
}

// LogWSMessage logs a WebSocket message using the global logger
func LogWSMessage(direction, player, message string) {
	appLogger.LogWebSocket(direction, player, message)
}

// LogDBState logs the database state using the global logger
func LogDBState(context string) {
	appLogger.LogDB(context)
}

// DebugLog logs a debug message using the global logger
func DebugLog(context, format string, args ...any) {
	appLogger.Debug(context, format, args...)
}

// logError logs an error with context and dumps the database in dev mode
func logError(context string, err error) {
	appLogger.Errorw("request failed", "context", context, "error", err)
	if devMode && db != nil {
		appLogger.Errorw("database dump", "context", context, "dump", dumpDB())
	}
}

// CloseAppLogger closes the global application logger
func CloseAppLogger() {
	appLogger.Close()
}
