package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
service_name = "shortrate"
environment = "staging"

[http]
port = 8100
scenario_qps = 5

[grpc]
port = 50061
scenario_qps = 2

[database]
driver = "mysql"
dsn = "user:pass@tcp(localhost:3306)/rates?parseTime=true"

[engine]
workers = 4
max_paths = 500
max_steps = 2400
max_cells = 120000

[history]
bond_type = "KTB"
cache_ttl_seconds = 60
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "shortrate", cfg.ServiceName)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 8100, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:8100", cfg.HTTP.Addr())
	assert.Equal(t, 5.0, cfg.HTTP.ScenarioQPS)
	assert.Equal(t, 50061, cfg.GRPC.Port)
	assert.True(t, cfg.GRPC.Enabled)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, 500, cfg.Engine.MaxPaths)
	assert.Equal(t, 2400, cfg.Engine.MaxSteps)
	assert.Equal(t, 120000, cfg.Engine.MaxCells)
	assert.Equal(t, 2.0, cfg.GRPC.ScenarioQPS)
	assert.Equal(t, 40, cfg.GRPC.ScenarioBurst)
	assert.Equal(t, 60, cfg.History.CacheTTLSeconds)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "9100")
	t.Setenv("APP_ENGINE_MAX_PATHS", "42")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTP.Port)
	assert.Equal(t, 42, cfg.Engine.MaxPaths)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadWithDefaults_MissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "shortrate", cfg.ServiceName)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Empty(t, cfg.Database.Driver)
	assert.Equal(t, "KTB", cfg.History.BondType)
	assert.Equal(t, 10000, cfg.Engine.MaxPaths)
	assert.Equal(t, 20000000, cfg.Engine.MaxCells)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }},
		{name: "bad http port", mutate: func(c *Config) { c.HTTP.Port = 70000 }},
		{name: "bad grpc port", mutate: func(c *Config) { c.GRPC.Port = 0 }},
		{name: "dsn required", mutate: func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle"; c.Database.DSN = "x" }},
		{name: "max paths", mutate: func(c *Config) { c.Engine.MaxPaths = 0 }},
		{name: "max steps", mutate: func(c *Config) { c.Engine.MaxSteps = 0 }},
		{name: "max cells", mutate: func(c *Config) { c.Engine.MaxCells = 0 }},
		{name: "bond type", mutate: func(c *Config) { c.History.BondType = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, validConfig().Validate())
}

func validConfig() *Config {
	return &Config{
		ServiceName: "shortrate",
		HTTP:        HTTPConfig{Port: 8000},
		GRPC:        GRPCConfig{Enabled: true, Port: 50051},
		Engine:      EngineConfig{MaxPaths: 10, MaxSteps: 10, MaxCells: 100},
		History:     HistoryConfig{BondType: "KTB"},
	}
}
