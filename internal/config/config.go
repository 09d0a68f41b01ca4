package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Backend  BackendConfig  `yaml:"backend"`
	Assist   AssistConfig   `yaml:"assist"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the durable KV driver: "sqlite", "postgres", or
// "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // sqlite file path
	DSN    string `yaml:"dsn"`  // postgres connection string
}

// RealtimeConfig selects the event channel: "memory" for the in-process
// bus, "amqp" for a broker-backed channel.
type RealtimeConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type AssistConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment
// variables. Environment values override file values.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "workspace.db",
		},
		Realtime: RealtimeConfig{
			Driver:   "memory",
			Exchange: "enquiro.events",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000/api",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("ENQUIRO_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("ENQUIRO_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("ENQUIRO_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENQUIRO_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if driver := os.Getenv("ENQUIRO_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if path := os.Getenv("ENQUIRO_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if dsn := os.Getenv("ENQUIRO_STORAGE_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if driver := os.Getenv("ENQUIRO_REALTIME_DRIVER"); driver != "" {
		cfg.Realtime.Driver = driver
	}
	if url := os.Getenv("ENQUIRO_AMQP_URL"); url != "" {
		cfg.Realtime.URL = url
	}
	if exchange := os.Getenv("ENQUIRO_AMQP_EXCHANGE"); exchange != "" {
		cfg.Realtime.Exchange = exchange
	}
	if baseURL := os.Getenv("ENQUIRO_BACKEND_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if token := os.Getenv("ENQUIRO_BACKEND_TOKEN"); token != "" {
		cfg.Backend.Token = token
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Assist.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.Assist.Model = model
	}
	if level := os.Getenv("ENQUIRO_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
