package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the user's persistent configuration preferences.
type Config struct {
	Provider     string  `json:"provider,omitempty"`      // openai, anthropic, ollama
	APIKey       string  `json:"api_key,omitempty"`       // The API key for the selected provider
	Model        string  `json:"model,omitempty"`         // Default model name
	BaseURL      string  `json:"base_url,omitempty"`      // Optional override for API base URL
	SystemPrompt string  `json:"system_prompt,omitempty"` // Default system prompt for new sessions
	WindowSize   *int    `json:"window_size,omitempty"`   // Messages attached per request; negative means all
	Stream       *bool   `json:"stream,omitempty"`        // Whether to stream responses
	Temperature  float32 `json:"temperature,omitempty"`   // Sampling temperature (0 = provider default)
	MaxTokens    int     `json:"max_tokens,omitempty"`    // Output token cap (0 = provider default)
	HistoryDir   string  `json:"history_dir,omitempty"`   // Optional override for session storage
}

// WindowSizeOr returns the configured window size or def when unset.
func (c *Config) WindowSizeOr(def int) int {
	if c.WindowSize == nil {
		return def
	}
	return *c.WindowSize
}

// StreamOr returns the configured stream flag or def when unset.
func (c *Config) StreamOr(def bool) bool {
	if c.Stream == nil {
		return def
	}
	return *c.Stream
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}

	return &Manager{
		configDir: filepath.Join(configDir, "sidechat"),
	}, nil
}

// NewManagerAt creates a manager rooted at an explicit directory.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk.
// If the file does not exist, it returns an empty Config and no error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := m.GetConfigPath()
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}
