// Package config loads the server configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Restaurant RestaurantConfig `yaml:"restaurant"`
	Menu       MenuConfig       `yaml:"menu"`
	Orders     OrdersConfig     `yaml:"orders"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Agent      AgentConfig      `yaml:"agent"`
	Relay      RelayConfig      `yaml:"relay"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	KitchenAddr string `yaml:"kitchen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	PublicHost  string `yaml:"public_host"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type RestaurantConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

type MenuConfig struct {
	SeedFile string `yaml:"seed_file"`
}

type OrdersConfig struct {
	StrictTransitions bool `yaml:"strict_transitions"`
}

type TwilioConfig struct {
	AccountSID  string        `yaml:"account_sid"`
	AuthToken   string        `yaml:"auth_token"`
	HangupGrace time.Duration `yaml:"hangup_grace"`
}

type AgentConfig struct {
	Model         string `yaml:"model"`
	OpenAIKey     string `yaml:"openai_key"`
	BaseURL       string `yaml:"base_url"`
	MaxToolRounds int    `yaml:"max_tool_rounds"`
}

type RelayConfig struct {
	AMQPURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":3000",
			KitchenAddr: ":8080",
			MetricsAddr: ":9090",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "fareast.db",
		},
		Restaurant: RestaurantConfig{
			Name:     "Far East Chinese Restaurant",
			Timezone: "America/New_York",
		},
		Twilio: TwilioConfig{
			HangupGrace: 5 * time.Second,
		},
		Agent: AgentConfig{
			Model:         "gpt-4o-mini",
			MaxToolRounds: 4,
		},
		Relay: RelayConfig{
			Queue: "orders.events",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file leaves
// the defaults in place. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to open config %s: %w", path, err)
		default:
			defer f.Close()
			if err := cfg.decode(f); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Parse reads YAML over the defaults without touching the environment
func Parse(data string) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(strings.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and deployment-specific values from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set("OPENAI_API_KEY", &c.Agent.OpenAIKey)
	set("TWILIO_ACCOUNT_SID", &c.Twilio.AccountSID)
	set("TWILIO_AUTH_TOKEN", &c.Twilio.AuthToken)
	set("DATABASE_DSN", &c.Database.DSN)
	set("PUBLIC_HOST", &c.Server.PublicHost)
	set("AMQP_URL", &c.Relay.AMQPURL)
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if _, err := time.LoadLocation(c.Restaurant.Timezone); err != nil {
		return fmt.Errorf("invalid restaurant timezone %q: %w", c.Restaurant.Timezone, err)
	}
	if c.Twilio.HangupGrace < 0 {
		return fmt.Errorf("twilio hangup_grace must not be negative")
	}
	if c.Agent.MaxToolRounds < 0 {
		return fmt.Errorf("agent max_tool_rounds must not be negative")
	}
	return nil
}

// Location returns the restaurant's time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Restaurant.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
