// ABOUTME: Configuration loading and parsing for the chat-core widget runtime
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete widget core configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Storage StorageConfig `yaml:"storage"`
	Lead    LeadConfig    `yaml:"lead"`
	Support SupportConfig `yaml:"support"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds collaborator endpoint configuration
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// Key, when set, is sent as X-Api-Key on chat and history requests
	// (embedded/cross-origin deployments).
	Key          string `yaml:"key"`
	ChatPath     string `yaml:"chat_path"`
	HistoryPath  string `yaml:"history_path"`
	FeedbackPath string `yaml:"feedback_path"`
	LeadsPath    string `yaml:"leads_path"`
	SupportPath  string `yaml:"support_path"`
}

// SessionConfig holds session identity configuration
type SessionConfig struct {
	IDKey        string `yaml:"id_key"`
	CreatedAtKey string `yaml:"created_at_key"`

	TTL time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TTLRaw string `yaml:"ttl"`
}

// StorageConfig holds the durable local key-value store configuration
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LeadConfig holds lead capture flow configuration
type LeadConfig struct {
	// Confirmation enables the explicit-consent sub-step before the lead
	// form opens. When false, intent "lead" opens the form directly.
	Confirmation  bool   `yaml:"confirmation"`
	Source        string `yaml:"source"`
	ConfirmPrompt string `yaml:"confirm_prompt"`
	ConfirmAck    string `yaml:"confirm_ack"`
	DeclineAck    string `yaml:"decline_ack"`
	SubmitAck     string `yaml:"submit_ack"`
	TitlePrefix   string `yaml:"title_prefix"`
	TitleFallback string `yaml:"title_fallback"`
}

// SupportConfig holds support ticket flow configuration
type SupportConfig struct {
	SubmitAck     string `yaml:"submit_ack"`
	HistoryLines  int    `yaml:"history_lines"`
	TitlePrompt   string `yaml:"title_prompt"`
	TitleFallback string `yaml:"title_fallback"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the canonical configuration carried by the shipped
// widget: storage key names, the 48 hour session TTL, endpoint paths and
// the user-facing acknowledgement texts.
func Default() *Config {
	return &Config{
		API: APIConfig{
			ChatPath:     "/api/chat",
			HistoryPath:  "/api/history",
			FeedbackPath: "/api/feedback",
			LeadsPath:    "/api/leads",
			SupportPath:  "/api/support",
		},
		Session: SessionConfig{
			IDKey:        "yjar_chat_session_id",
			CreatedAtKey: "yjar_chat_session_created_at",
			TTL:          48 * time.Hour,
		},
		Lead: LeadConfig{
			Confirmation:  true,
			Source:        "website-chat",
			ConfirmPrompt: "Dürfen wir Ihre Kontaktdaten aufnehmen, damit sich unser Team bei Ihnen meldet?",
			ConfirmAck:    "Super! Bitte füllen Sie kurz das Formular aus.",
			DeclineAck:    "Kein Problem. Wie kann ich sonst weiterhelfen?",
			SubmitAck:     "Vielen Dank! Unser Team meldet sich schnellstmöglich bei Ihnen.",
			TitlePrefix:   "Lead: ",
			TitleFallback: "Lead aus Website-Chat",
		},
		Support: SupportConfig{
			SubmitAck:     "Support-Ticket wurde erstellt. Unser Team meldet sich.",
			HistoryLines:  10,
			TitlePrompt:   "Erstelle einen kurzen Ticket-Titel für folgendes Anliegen: ",
			TitleFallback: "Support-Anfrage aus Website-Chat",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config merged over the defaults. Environment variables in the format
// ${VAR_NAME} are expanded. Duration strings are parsed into time.Duration
// values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}

	if c.Session.IDKey == "" {
		return fmt.Errorf("session.id_key is required")
	}
	if c.Session.CreatedAtKey == "" {
		return fmt.Errorf("session.created_at_key is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	if c.Support.HistoryLines < 0 {
		return fmt.Errorf("support.history_lines must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Session.TTLRaw != "" {
		ttl, err := time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session ttl %q: %w", cfg.Session.TTLRaw, err)
		}
		cfg.Session.TTL = ttl
	}

	return nil
}
