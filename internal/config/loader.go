package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses the daemon configuration from a YAML file.
// ${VAR} references are expanded from the environment before parsing, so
// secrets like database passwords stay out of the file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", absPath, err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// expandEnv replaces ${VAR} references with environment values. Unset
// variables expand to the empty string.
func expandEnv(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envVarPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// applyDefaults fills fields the file left zero-valued.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Service.Name == "" {
		cfg.Service.Name = def.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = def.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = def.Service.LogFormat
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.PIDFile == "" {
		cfg.Server.PIDFile = def.Server.PIDFile
	}
	if cfg.Server.MaxBacklog == 0 {
		cfg.Server.MaxBacklog = def.Server.MaxBacklog
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = def.Database.Driver
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = def.Database.DSN
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	switch cfg.Database.Driver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("database.driver %q not supported (want pgx or sqlite)", cfg.Database.Driver)
	}
	switch cfg.Service.LogFormat {
	case "", "json", "text":
	default:
		return fmt.Errorf("service.log_format %q not supported (want json or text)", cfg.Service.LogFormat)
	}
	return nil
}
