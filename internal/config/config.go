// Package config handles configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/sahtech/config.yaml, /etc/sahtech/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sahtech", "config.yaml"))
	}

	paths = append(paths, "/etc/sahtech/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all service configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Groq     GroqConfig    `yaml:"groq"`
	Models   ModelsConfig  `yaml:"models"`
	Agent    AgentConfig   `yaml:"agent"`
	Service  ServiceConfig `yaml:"service"`
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// GroqConfig defines the Groq API connection.
type GroqConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // defaults to the public endpoint
}

// ModelsConfig defines model selection settings.
type ModelsConfig struct {
	Default     string  `yaml:"default"`
	Temperature float64 `yaml:"temperature"`
}

// AgentConfig defines agent loop settings.
type AgentConfig struct {
	// MaxIterations is the reason/act iteration ceiling per session.
	MaxIterations int `yaml:"max_iterations"`
}

// ServiceConfig defines the inbound service boundary.
type ServiceConfig struct {
	// APIKey is required in the X-API-Key header of authenticated requests.
	APIKey string `yaml:"api_key"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Models: ModelsConfig{
			Default:     "llama-3.3-70b-versatile",
			Temperature: 0.3,
		},
		Agent: AgentConfig{
			MaxIterations: 10,
		},
		DataDir: "data",
	}
}
