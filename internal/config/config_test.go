package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Twilio.HangupGrace)
	assert.Equal(t, "orders.events", cfg.Relay.Queue)
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
server:
  addr: ":4000"
  public_host: example.ngrok.app
database:
  driver: postgres
  dsn: postgres://localhost/fareast?sslmode=disable
orders:
  strict_transitions: true
twilio:
  hangup_grace: 2s
agent:
  max_tool_rounds: 6
`)
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.Server.Addr)
	assert.Equal(t, ":8080", cfg.Server.KitchenAddr)
	assert.Equal(t, "example.ngrok.app", cfg.Server.PublicHost)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, 2*time.Second, cfg.Twilio.HangupGrace)
	assert.Equal(t, 6, cfg.Agent.MaxToolRounds)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.Model)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse("server:\n  adress: \":4000\"\n")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"OPENAI_API_KEY":     "sk-test",
		"TWILIO_ACCOUNT_SID": "AC123",
		"TWILIO_AUTH_TOKEN":  "secret",
		"DATABASE_DSN":       "/tmp/orders.db",
		"PUBLIC_HOST":        "example.ngrok.app",
		"AMQP_URL":           "",
	}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "sk-test", cfg.Agent.OpenAIKey)
	assert.Equal(t, "AC123", cfg.Twilio.AccountSID)
	assert.Equal(t, "secret", cfg.Twilio.AuthToken)
	assert.Equal(t, "/tmp/orders.db", cfg.Database.DSN)
	assert.Equal(t, "example.ngrok.app", cfg.Server.PublicHost)
	assert.Empty(t, cfg.Relay.AMQPURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"dsn", func(c *Config) { c.Database.DSN = "" }},
		{"timezone", func(c *Config) { c.Restaurant.Timezone = "Mars/Olympus_Mons" }},
		{"grace", func(c *Config) { c.Twilio.HangupGrace = -time.Second }},
		{"rounds", func(c *Config) { c.Agent.MaxToolRounds = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("restaurant:\n  name: Test Kitchen\n  timezone: UTC\n"), 0o644))

	t.Setenv("PUBLIC_HOST", "kitchen.example.com")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Kitchen", cfg.Restaurant.Name)
	assert.Equal(t, "kitchen.example.com", cfg.Server.PublicHost)

	cfg, err = Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Far East Chinese Restaurant", cfg.Restaurant.Name)

	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
