package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// AppConfig holds all server configuration.
// Priority (lowest → highest): defaults < env vars < JSON config file < CLI flags.
type AppConfig struct {
	// Server
	DB            string `json:"db" env:"DB"`                         // database connection string
	Dev           bool   `json:"dev" env:"DEV"`                       // dev mode: verbose logging, db dumps on errors
	Addr          string `json:"addr" env:"ADDR"`                     // HTTP listen address
	DefaultPreset string `json:"default_preset" env:"DEFAULT_PRESET"` // preset dealt when start_game names none

	// Logging
	LogOutputDir  string `json:"log_output_dir" env:"LOG_OUTPUT_DIR"`
	LogLevel      string `json:"log_level" env:"LOG_LEVEL"`
	LogMaxSizeMB  int    `json:"log_max_size_mb" env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `json:"log_max_backups" env:"LOG_MAX_BACKUPS"`
	LogRequests   bool   `json:"log_requests" env:"LOG_REQUESTS"`
	LogDB         bool   `json:"log_db" env:"LOG_DB"`
	LogWS         bool   `json:"log_ws" env:"LOG_WS"`
	LogDebug      bool   `json:"log_debug" env:"LOG_DEBUG"`

	// AI Storyteller
	StorytellerProvider    string `json:"storyteller_provider" env:"STORYTELLER_PROVIDER"`       // ollama | openai | claude | gemini | groq | openai-compatible
	StorytellerModel       string `json:"storyteller_model" env:"STORYTELLER_MODEL"`             // model name
	StorytellerOllamaURL   string `json:"storyteller_ollama_url" env:"STORYTELLER_OLLAMA_URL"`   // Ollama server URL
	StorytellerURL         string `json:"storyteller_url" env:"STORYTELLER_URL"`                 // base URL for openai-compatible
	StorytellerAPIKey      string `json:"storyteller_api_key" env:"STORYTELLER_API_KEY"`         // API key for openai-compatible
	StorytellerTemperature string `json:"storyteller_temperature" env:"STORYTELLER_TEMPERATURE"` // float 0-1 as string
	StorytellerThinking    string `json:"storyteller_thinking" env:"STORYTELLER_THINKING"`       // none | low | medium | high | auto
	GroqAPIKey             string `json:"groq_api_key" env:"GROQ_API_KEY"`                       // API key for groq provider
}

func (cfg AppConfig) toLogConfig() LogConfig {
	return LogConfig{
		OutputDir:   cfg.LogOutputDir,
		Level:       cfg.LogLevel,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		LogRequests: cfg.LogRequests,
		LogDB:       cfg.LogDB,
		LogWS:       cfg.LogWS,
		Debug:       cfg.LogDebug,
		Dev:         cfg.Dev,
	}
}

func defaultConfig() AppConfig {
	return AppConfig{
		DB:                   "file::memory:?cache=shared",
		Addr:                 ":8080",
		DefaultPreset:        "classic",
		LogLevel:             "info",
		LogMaxSizeMB:         10,
		LogMaxBackups:        3,
		StorytellerOllamaURL: "http://localhost:11434",
	}
}

// loadConfig builds a config by layering: defaults → env vars → JSON config file.
// CLI flag overrides are applied separately by flagValues.applyTo after parsing.
// env.Parse only touches fields whose variable is set, so defaults survive.
func loadConfig(configPath string) (AppConfig, error) {
	cfg := defaultConfig()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", configPath, err)
	}

	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configPath, err)
	}
	if err := applyJSONOverlay(&cfg, overlay); err != nil {
		return cfg, fmt.Errorf("apply %s: %w", configPath, err)
	}
	return cfg, nil
}

// applyJSONOverlay only sets fields that are explicitly present in the JSON map.
func applyJSONOverlay(cfg *AppConfig, m map[string]json.RawMessage) error {
	var errs []error
	set := func(key string, dst any) {
		if v, ok := m[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	set("db", &cfg.DB)
	set("dev", &cfg.Dev)
	set("addr", &cfg.Addr)
	set("default_preset", &cfg.DefaultPreset)
	set("log_output_dir", &cfg.LogOutputDir)
	set("log_level", &cfg.LogLevel)
	set("log_max_size_mb", &cfg.LogMaxSizeMB)
	set("log_max_backups", &cfg.LogMaxBackups)
	set("log_requests", &cfg.LogRequests)
	set("log_db", &cfg.LogDB)
	set("log_ws", &cfg.LogWS)
	set("log_debug", &cfg.LogDebug)
	set("storyteller_provider", &cfg.StorytellerProvider)
	set("storyteller_model", &cfg.StorytellerModel)
	set("storyteller_ollama_url", &cfg.StorytellerOllamaURL)
	set("storyteller_url", &cfg.StorytellerURL)
	set("storyteller_api_key", &cfg.StorytellerAPIKey)
	set("storyteller_temperature", &cfg.StorytellerTemperature)
	set("storyteller_thinking", &cfg.StorytellerThinking)
	set("groq_api_key", &cfg.GroqAPIKey)
	return errors.Join(errs...)
}

// flagValues holds pointers to all registered CLI flags.
type flagValues struct {
	fs                     *flag.FlagSet
	configPath             *string
	db                     *string
	dev                    *bool
	addr                   *string
	defaultPreset          *string
	logOutputDir           *string
	logLevel               *string
	logMaxSizeMB           *int
	logMaxBackups          *int
	logRequests            *bool
	logDB                  *bool
	logWS                  *bool
	logDebug               *bool
	storytellerProvider    *string
	storytellerModel       *string
	storytellerOllamaURL   *string
	storytellerURL         *string
	storytellerAPIKey      *string
	storytellerTemperature *string
	storytellerThinking    *string
	groqAPIKey             *string
}

// registerFlags registers all CLI flags on fs and returns pointers to their values.
// Call fs.Parse after this, then applyTo to layer them over the loaded config.
func registerFlags(fs *flag.FlagSet) flagValues {
	return flagValues{
		fs:                     fs,
		configPath:             fs.String("config", "config.json", "path to JSON config file"),
		db:                     fs.String("db", "", "database connection string"),
		dev:                    fs.Bool("dev", false, "enable development mode (verbose logging, db dumps on error)"),
		addr:                   fs.String("addr", "", "HTTP listen address (e.g. :8080)"),
		defaultPreset:          fs.String("default-preset", "", "preset dealt when the host does not pick one"),
		logOutputDir:           fs.String("log-output-dir", "", "directory for the rotated JSON log file"),
		logLevel:               fs.String("log-level", "", "log level (debug|info|warn|error)"),
		logMaxSizeMB:           fs.Int("log-max-size-mb", 0, "rotate the log file after this many megabytes"),
		logMaxBackups:          fs.Int("log-max-backups", 0, "rotated log files to keep"),
		logRequests:            fs.Bool("log-requests", false, "log HTTP requests and responses"),
		logDB:                  fs.Bool("log-db", false, "log database dumps"),
		logWS:                  fs.Bool("log-ws", false, "log WebSocket messages"),
		logDebug:               fs.Bool("log-debug", false, "enable debug logging"),
		storytellerProvider:    fs.String("storyteller-provider", "", "AI storyteller provider (ollama|openai|claude|gemini|groq|openai-compatible)"),
		storytellerModel:       fs.String("storyteller-model", "", "AI storyteller model name"),
		storytellerOllamaURL:   fs.String("storyteller-ollama-url", "", "Ollama server URL"),
		storytellerURL:         fs.String("storyteller-url", "", "base URL for openai-compatible provider"),
		storytellerAPIKey:      fs.String("storyteller-api-key", "", "API key for storyteller provider"),
		storytellerTemperature: fs.String("storyteller-temperature", "", "sampling temperature 0-1"),
		storytellerThinking:    fs.String("storyteller-thinking", "", "thinking mode: none|low|medium|high|auto"),
		groqAPIKey:             fs.String("groq-api-key", "", "Groq API key"),
	}
}

// applyTo overlays any CLI flags that were explicitly set onto cfg.
// Flags that were not passed on the command line are ignored (env/JSON values win).
func (fv flagValues) applyTo(cfg *AppConfig) {
	fv.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DB = *fv.db
		case "dev":
			cfg.Dev = *fv.dev
		case "addr":
			cfg.Addr = *fv.addr
		case "default-preset":
			cfg.DefaultPreset = *fv.defaultPreset
		case "log-output-dir":
			cfg.LogOutputDir = *fv.logOutputDir
		case "log-level":
			cfg.LogLevel = *fv.logLevel
		case "log-max-size-mb":
			cfg.LogMaxSizeMB = *fv.logMaxSizeMB
		case "log-max-backups":
			cfg.LogMaxBackups = *fv.logMaxBackups
		case "log-requests":
			cfg.LogRequests = *fv.logRequests
		case "log-db":
			cfg.LogDB = *fv.logDB
		case "log-ws":
			cfg.LogWS = *fv.logWS
		case "log-debug":
			cfg.LogDebug = *fv.logDebug
		case "storyteller-provider":
			cfg.StorytellerProvider = *fv.storytellerProvider
		case "storyteller-model":
			cfg.StorytellerModel = *fv.storytellerModel
		case "storyteller-ollama-url":
			cfg.StorytellerOllamaURL = *fv.storytellerOllamaURL
		case "storyteller-url":
			cfg.StorytellerURL = *fv.storytellerURL
		case "storyteller-api-key":
			cfg.StorytellerAPIKey = *fv.storytellerAPIKey
		case "storyteller-temperature":
			cfg.StorytellerTemperature = *fv.storytellerTemperature
		case "storyteller-thinking":
			cfg.StorytellerThinking = *fv.storytellerThinking
		case "groq-api-key":
			cfg.GroqAPIKey = *fv.groqAPIKey
		}
	})
}
