package config

import "time"

// Config is the complete nmmdd daemon configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file,omitempty"`
}

// ServerConfig defines the TCP command listener. MaxBacklog caps concurrent
// client connections; extra clients get a busy reply and are disconnected.
type ServerConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	PIDFile     string        `yaml:"pid_file"`
	MaxBacklog  int           `yaml:"max_backlog,omitempty"`
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty"`
}

// DatabaseConfig defines the message-log database. Driver is "pgx" for
// PostgreSQL or "sqlite" for an embedded file database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// APIConfig defines the optional HTTP status API.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Defaults returns the configuration used when a field is absent.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "nmmdd",
			LogLevel:  "INFO",
			LogFormat: "json",
		},
		Server: ServerConfig{
			Host:        "localhost",
			Port:        1507,
			PIDFile:     "/tmp/nmmdd.pid",
			MaxBacklog:  1,
			ReadTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "nmmdd.db",
		},
		API: APIConfig{
			Listen: "127.0.0.1:8171",
		},
	}
}
