package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration
type Config struct {
	// API Keys
	GeminiKey    string `json:"gemini_api_key,omitempty"`
	AnthropicKey string `json:"anthropic_api_key,omitempty"`

	// Models
	GeminiModel    string `json:"gemini_model,omitempty"`
	AnthropicModel string `json:"anthropic_model,omitempty"`

	// Research
	MaxSteps int    `json:"max_steps,omitempty"`
	DataFile string `json:"data_file,omitempty"`

	// Server
	HTTPAddr string `json:"http_addr,omitempty"`

	// Events (optional NATS publishing)
	NATSURL string `json:"nats_url,omitempty"`
}

var (
	configDir  string
	configFile string
	current    *Config
)

func init() {
	// Use ~/.config/bookshelf for config
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	configDir = filepath.Join(home, ".config", "bookshelf")
	configFile = filepath.Join(configDir, "config.json")
}

// Load reads the config from disk
func Load() (*Config, error) {
	if current != nil {
		return current, nil
	}

	current = &Config{
		DataFile: "data.csv",
		HTTPAddr: ":5000",
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return current, nil // Return default config
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, current); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if current.DataFile == "" {
		current.DataFile = "data.csv"
	}
	if current.HTTPAddr == "" {
		current.HTTPAddr = ":5000"
	}

	return current, nil
}

// Save writes the config to disk
func Save(cfg *Config) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	current = cfg
	return nil
}

// Get returns the current config, loading if necessary
func Get() *Config {
	if current == nil {
		_, _ = Load()
	}
	return current
}

// Set updates a config value by key
func Set(key, value string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	switch key {
	case "gemini_api_key", "gemini":
		cfg.GeminiKey = value
	case "anthropic_api_key", "anthropic":
		cfg.AnthropicKey = value
	case "gemini_model":
		cfg.GeminiModel = value
	case "anthropic_model":
		cfg.AnthropicModel = value
	case "data_file", "data":
		cfg.DataFile = value
	case "http_addr", "addr":
		cfg.HTTPAddr = value
	case "nats_url", "nats":
		cfg.NATSURL = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return Save(cfg)
}

// Delete removes a config value
func Delete(key string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	switch key {
	case "gemini_api_key", "gemini":
		cfg.GeminiKey = ""
	case "anthropic_api_key", "anthropic":
		cfg.AnthropicKey = ""
	case "gemini_model":
		cfg.GeminiModel = ""
	case "anthropic_model":
		cfg.AnthropicModel = ""
	case "data_file", "data":
		cfg.DataFile = ""
	case "http_addr", "addr":
		cfg.HTTPAddr = ""
	case "nats_url", "nats":
		cfg.NATSURL = ""
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return Save(cfg)
}

// GetGeminiKey returns the Gemini API key (config or env)
func GetGeminiKey() string {
	cfg := Get()
	if cfg.GeminiKey != "" {
		return cfg.GeminiKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

// GetAnthropicKey returns the Anthropic API key (config or env)
func GetAnthropicKey() string {
	cfg := Get()
	if cfg.AnthropicKey != "" {
		return cfg.AnthropicKey
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return configFile
}

// ListKeys returns configured keys (masked for display)
func ListKeys() map[string]string {
	cfg := Get()
	result := make(map[string]string)

	if cfg.GeminiKey != "" {
		result["gemini_api_key"] = maskKey(cfg.GeminiKey)
	} else if os.Getenv("GEMINI_API_KEY") != "" {
		result["gemini_api_key"] = maskKey(os.Getenv("GEMINI_API_KEY")) + " (env)"
	}

	if cfg.AnthropicKey != "" {
		result["anthropic_api_key"] = maskKey(cfg.AnthropicKey)
	} else if os.Getenv("ANTHROPIC_API_KEY") != "" {
		result["anthropic_api_key"] = maskKey(os.Getenv("ANTHROPIC_API_KEY")) + " (env)"
	}

	if cfg.GeminiModel != "" {
		result["gemini_model"] = cfg.GeminiModel
	}
	if cfg.AnthropicModel != "" {
		result["anthropic_model"] = cfg.AnthropicModel
	}
	if cfg.DataFile != "" {
		result["data_file"] = cfg.DataFile
	}
	if cfg.HTTPAddr != "" {
		result["http_addr"] = cfg.HTTPAddr
	}
	if cfg.NATSURL != "" {
		result["nats_url"] = cfg.NATSURL
	}

	return result
}

// maskKey shows only first 4 and last 4 characters
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
