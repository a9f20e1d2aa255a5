package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const DefaultGreeting = "Hello! I'm your assistant. I'm here to help you with anything you need. How can I assist you today?"

type Config struct {
	Mode Mode `toml:"mode"`

	Port     string `toml:"port"`
	LogLevel string `toml:"log_level"`

	GCPProjectID string `toml:"gcp_project"`
	GCPLocation  string `toml:"gcp_location"`
	ModelName    string `toml:"model_name"`

	CompletionBackend string `toml:"completion_backend"` // "mock", "openrouter" or "vertex"
	OpenRouterAPIKey  string `toml:"openrouter_api_key"`
	OpenRouterBaseURL string `toml:"openrouter_base_url"`
	OpenRouterModel   string `toml:"openrouter_model"`

	StorageBackend string `toml:"storage_backend"` // "memory", "sqlite" or "firestore"
	SQLitePath     string `toml:"sqlite_path"`
	AccountsPath   string `toml:"accounts_path"`

	WriteQueueSize int     `toml:"write_queue_size"`
	ChatRateLimit  float64 `toml:"chat_rate_limit"` // requests per second per client
	ChatRateBurst  int     `toml:"chat_rate_burst"`
	HistoryLimit   int     `toml:"history_limit"` // turns sent to the completion backend

	Greeting    string `toml:"greeting"`
	VoiceOutput bool   `toml:"voice_output"`
	CodeStyle   string `toml:"code_style"` // chroma style served at /code.css
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getFloatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Mode:              ModeLocal,
		Port:              "8080",
		LogLevel:          "info",
		GCPLocation:       "us-central1",
		ModelName:         "gemini-2.5-flash-lite",
		CompletionBackend: "mock",
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		OpenRouterModel:   "meta-llama/llama-3.1-8b-instruct:free",
		StorageBackend:    "memory",
		SQLitePath:        "data/assistant.db",
		AccountsPath:      "data/accounts.bolt",
		WriteQueueSize:    256,
		ChatRateLimit:     2,
		ChatRateBurst:     5,
		HistoryLimit:      20,
		Greeting:          DefaultGreeting,
		CodeStyle:         "github",
	}
}

// Load builds the config: defaults, then the TOML file named by
// ASSISTANT_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ASSISTANT_CONFIG"); path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a TOML file over cfg. Keys absent from the file keep their value.
func LoadFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with ASSISTANT_* environment variables.
func (c *Config) ApplyEnv() {
	switch getEnv("ASSISTANT_MODE", string(c.Mode)) {
	case "gcp":
		c.Mode = ModeGCP
	default:
		c.Mode = ModeLocal
	}

	c.Port = getEnv("ASSISTANT_PORT", getEnv("PORT", c.Port))
	c.LogLevel = getEnv("ASSISTANT_LOG_LEVEL", c.LogLevel)

	c.GCPProjectID = getEnv("ASSISTANT_GCP_PROJECT", c.GCPProjectID)
	c.GCPLocation = getEnv("ASSISTANT_GCP_LOCATION", c.GCPLocation)
	c.ModelName = getEnv("ASSISTANT_MODEL_NAME", c.ModelName)

	c.CompletionBackend = getEnv("ASSISTANT_COMPLETION_BACKEND", c.CompletionBackend)
	if getBoolEnv("ASSISTANT_USE_MOCK_LLM", false) {
		c.CompletionBackend = "mock"
	}
	c.OpenRouterAPIKey = getEnv("OPENROUTER_API_KEY", c.OpenRouterAPIKey)
	c.OpenRouterBaseURL = getEnv("ASSISTANT_OPENROUTER_BASE_URL", c.OpenRouterBaseURL)
	c.OpenRouterModel = getEnv("ASSISTANT_OPENROUTER_MODEL", c.OpenRouterModel)

	c.StorageBackend = getEnv("ASSISTANT_STORAGE_BACKEND", c.StorageBackend)
	c.SQLitePath = getEnv("ASSISTANT_SQLITE_PATH", c.SQLitePath)
	c.AccountsPath = getEnv("ASSISTANT_ACCOUNTS_PATH", c.AccountsPath)

	c.WriteQueueSize = getIntEnv("ASSISTANT_WRITE_QUEUE_SIZE", c.WriteQueueSize)
	c.ChatRateLimit = getFloatEnv("ASSISTANT_CHAT_RATE_LIMIT", c.ChatRateLimit)
	c.ChatRateBurst = getIntEnv("ASSISTANT_CHAT_RATE_BURST", c.ChatRateBurst)
	c.HistoryLimit = getIntEnv("ASSISTANT_HISTORY_LIMIT", c.HistoryLimit)

	c.Greeting = getEnv("ASSISTANT_GREETING", c.Greeting)
	c.VoiceOutput = getBoolEnv("ASSISTANT_VOICE_OUTPUT", c.VoiceOutput)
	c.CodeStyle = getEnv("ASSISTANT_CODE_STYLE", c.CodeStyle)
}

// Validate checks the combinations the backends need.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case "memory", "sqlite", "firestore":
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	switch c.CompletionBackend {
	case "mock", "openrouter", "vertex":
	default:
		errs = append(errs, fmt.Errorf("unknown completion backend %q", c.CompletionBackend))
	}

	needsProject := c.Mode == ModeGCP || c.StorageBackend == "firestore" || c.CompletionBackend == "vertex"
	if needsProject && c.GCPProjectID == "" {
		errs = append(errs, errors.New("ASSISTANT_GCP_PROJECT must be set for gcp mode, firestore or vertex"))
	}
	if c.CompletionBackend == "openrouter" && c.OpenRouterAPIKey == "" {
		errs = append(errs, errors.New("OPENROUTER_API_KEY must be set for the openrouter backend"))
	}
	if c.WriteQueueSize <= 0 {
		errs = append(errs, errors.New("write_queue_size must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
