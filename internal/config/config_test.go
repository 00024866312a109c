// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, defaults, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
api:
  base_url: "https://chat.example.com"
  key: "widget-key-1"

session:
  ttl: "48h"

storage:
  path: "./chat.db"

lead:
  confirmation: false
  source: "landing-page"

support:
  history_lines: 6

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "https://chat.example.com" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://chat.example.com")
	}
	if cfg.API.Key != "widget-key-1" {
		t.Errorf("API.Key = %q, want %q", cfg.API.Key, "widget-key-1")
	}
	if cfg.Session.TTL != 48*time.Hour {
		t.Errorf("Session.TTL = %v, want %v", cfg.Session.TTL, 48*time.Hour)
	}
	if cfg.Storage.Path != "./chat.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "./chat.db")
	}
	if cfg.Lead.Confirmation {
		t.Error("Lead.Confirmation = true, want false")
	}
	if cfg.Lead.Source != "landing-page" {
		t.Errorf("Lead.Source = %q, want %q", cfg.Lead.Source, "landing-page")
	}
	if cfg.Support.HistoryLines != 6 {
		t.Errorf("Support.HistoryLines = %d, want 6", cfg.Support.HistoryLines)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_DefaultsPreserved(t *testing.T) {
	// A minimal file keeps the canonical widget defaults
	configPath := writeConfig(t, `
api:
  base_url: "https://chat.example.com"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.IDKey != "yjar_chat_session_id" {
		t.Errorf("Session.IDKey = %q, want %q", cfg.Session.IDKey, "yjar_chat_session_id")
	}
	if cfg.Session.CreatedAtKey != "yjar_chat_session_created_at" {
		t.Errorf("Session.CreatedAtKey = %q, want %q", cfg.Session.CreatedAtKey, "yjar_chat_session_created_at")
	}
	if cfg.Session.TTL != 48*time.Hour {
		t.Errorf("Session.TTL = %v, want 48h", cfg.Session.TTL)
	}
	if cfg.API.ChatPath != "/api/chat" {
		t.Errorf("API.ChatPath = %q, want %q", cfg.API.ChatPath, "/api/chat")
	}
	if !cfg.Lead.Confirmation {
		t.Error("Lead.Confirmation = false, want true by default")
	}
	if cfg.Lead.Source != "website-chat" {
		t.Errorf("Lead.Source = %q, want %q", cfg.Lead.Source, "website-chat")
	}
	if cfg.Support.HistoryLines != 10 {
		t.Errorf("Support.HistoryLines = %d, want 10", cfg.Support.HistoryLines)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_WIDGET_KEY", "secret-from-env")

	configPath := writeConfig(t, `
api:
  base_url: "https://chat.example.com"
  key: "${TEST_WIDGET_KEY}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Key != "secret-from-env" {
		t.Errorf("API.Key = %q, want %q", cfg.API.Key, "secret-from-env")
	}
}

func TestLoad_UnsetEnvVarExpandsEmpty(t *testing.T) {
	configPath := writeConfig(t, `
api:
  base_url: "https://chat.example.com"
  key: "${TEST_WIDGET_KEY_DOES_NOT_EXIST}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Key != "" {
		t.Errorf("API.Key = %q, want empty", cfg.API.Key)
	}
}

func TestLoad_MissingBaseURL(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "info"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "api.base_url") {
		t.Errorf("error = %v, want mention of api.base_url", err)
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	configPath := writeConfig(t, `
api:
  base_url: "https://chat.example.com"
session:
  ttl: "two days"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() error = nil, want duration parse error")
	}
	if !strings.Contains(err.Error(), "ttl") {
		t.Errorf("error = %v, want mention of ttl", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want read error")
	}
}

func TestValidate_NegativeHistoryLines(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "https://chat.example.com"
	cfg.Support.HistoryLines = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() error = nil, want error")
	}
}
