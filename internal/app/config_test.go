package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:        "0.0.0.0:8080",
		DatabaseURL: "postgres://localhost/store",
		Storage:     StorageConfig{Driver: DriverPostgres},
		Auth:        AuthConfig{JWTSecret: "secret"},
		Orders:      OrdersConfig{ReturnWindow: 336 * time.Hour},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(*Config) {}},
		{
			name:   "MemoryWithoutDatabase",
			mutate: func(c *Config) { c.Storage.Driver = DriverMemory; c.DatabaseURL = "" },
		},
		{
			name:    "PostgresWithoutDatabase",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: "database URL is required",
		},
		{
			name:    "UnknownDriver",
			mutate:  func(c *Config) { c.Storage.Driver = "sqlite" },
			wantErr: `unknown storage driver "sqlite"`,
		},
		{
			name:    "MissingSecret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "JWT secret is required",
		},
		{
			name:    "ZeroReturnWindow",
			mutate:  func(c *Config) { c.Orders.ReturnWindow = 0 },
			wantErr: "return window must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: "0.0.0.0:8080"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	explicit := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	explicit.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/db", explicit.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", explicit.Addr)
}
