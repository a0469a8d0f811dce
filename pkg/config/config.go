// Package config loads gridwatch settings from YAML, .env and the process
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SinkNone   = "none"
	SinkSQLite = "sqlite"
	SinkMySQL  = "mysql"
)

type Config struct {
	Endpoint string         `yaml:"endpoint"`
	HTTPAddr string         `yaml:"http_addr"`
	Window   int            `yaml:"window"`
	EventLog EventLogConfig `yaml:"event_log"`
	Display  DisplayConfig  `yaml:"display"`
}

// EventLogConfig controls the in-memory tail and the optional durable sink.
// A negative Capacity keeps every line in memory.
type EventLogConfig struct {
	Capacity      int           `yaml:"capacity"`
	Sink          string        `yaml:"sink"`
	SQLitePath    string        `yaml:"sqlite_path"`
	SQLiteMaxRows int           `yaml:"sqlite_max_rows"`
	MySQLDSN      string        `yaml:"mysql_dsn"`
	Retention     time.Duration `yaml:"retention"`
}

type DisplayConfig struct {
	Enabled bool          `yaml:"enabled"`
	Refresh time.Duration `yaml:"refresh"`
}

// Load reads path (optional), overlays .env and GRIDWATCH_* variables, then
// applies defaults and validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	_ = loadDotEnv()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GRIDWATCH_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("GRIDWATCH_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("GRIDWATCH_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRIDWATCH_WINDOW: %w", err)
		}
		c.Window = n
	}
	if v := os.Getenv("GRIDWATCH_LOG_SINK"); v != "" {
		c.EventLog.Sink = v
	}
	if v := os.Getenv("GRIDWATCH_SQLITE_PATH"); v != "" {
		c.EventLog.SQLitePath = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		c.EventLog.MySQLDSN = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "ws://localhost:8000/stream"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8090"
	}
	if c.Window == 0 {
		c.Window = 100
	}
	if c.EventLog.Capacity == 0 {
		c.EventLog.Capacity = 5000
	}
	if c.EventLog.Sink == "" {
		c.EventLog.Sink = SinkNone
	}
	if c.EventLog.SQLitePath == "" {
		c.EventLog.SQLitePath = "./data/events.db"
	}
	if c.EventLog.SQLiteMaxRows == 0 {
		c.EventLog.SQLiteMaxRows = 100_000
	}
	if c.EventLog.Retention == 0 {
		c.EventLog.Retention = 7 * 24 * time.Hour
	}
	if c.Display.Refresh == 0 {
		c.Display.Refresh = time.Second
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("endpoint must be a ws:// or wss:// url, got %q", c.Endpoint)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %d", c.Window)
	}
	switch c.EventLog.Sink {
	case SinkNone, SinkSQLite:
	case SinkMySQL:
		if c.EventLog.MySQLDSN == "" {
			return fmt.Errorf("event_log.mysql_dsn is required for the mysql sink")
		}
	default:
		return fmt.Errorf("unknown event_log.sink %q", c.EventLog.Sink)
	}
	if c.Display.Refresh < 0 {
		return fmt.Errorf("display.refresh must not be negative")
	}
	return nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
