package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			CORS: CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		},
		Storage: StorageConfig{
			Driver:    StorageDriverYAML,
			Directory: filepath.Join("data", "schedules"),
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     3306,
			Database: "spacedrep",
			Username: "user",
		},
		Postgres: PostgresConfig{
			MaxConns:        10,
			MaxConnLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			LockTTL:  5 * time.Second,
			LockWait: 2 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Review: ReviewConfig{MaxRetries: 3},
		Reports: ReportsConfig{
			Directory: filepath.Join("outputs", "reports"),
		},
	}
}

func TestConfigLoader_Load(t *testing.T) {
	tests := []struct {
		name              string
		configContent     string
		useExplicitPath   bool
		env               map[string]string
		want              func() *Config
		wantErrorContains []string
	}{
		{
			name:          "no config file uses defaults",
			configContent: "",
			want:          defaultConfig,
		},
		{
			name: "valid config file with custom values",
			configContent: `server:
  port: 9090
storage:
  driver: mysql
database:
  host: db.internal
  port: 3307
  database: reviews
  username: app
log:
  level: debug
  format: json
review:
  max_retries: 5
`,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Server.Port = 9090
				cfg.Storage.Driver = StorageDriverMySQL
				cfg.Database.Host = "db.internal"
				cfg.Database.Port = 3307
				cfg.Database.Database = "reviews"
				cfg.Database.Username = "app"
				cfg.Log.Level = "debug"
				cfg.Log.Format = "json"
				cfg.Review.MaxRetries = 5
				return cfg
			},
		},
		{
			name: "explicit config file path with durations",
			configContent: `storage:
  driver: postgres
postgres:
  max_conns: 4
  max_conn_lifetime: 90s
redis:
  lock_ttl: 10s
`,
			useExplicitPath: true,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Storage.Driver = StorageDriverPostgres
				cfg.Postgres.MaxConns = 4
				cfg.Postgres.MaxConnLifetime = 90 * time.Second
				cfg.Redis.LockTTL = 10 * time.Second
				return cfg
			},
		},
		{
			name:          "secrets come from environment variables",
			configContent: "",
			env: map[string]string{
				"DB_PASSWORD":  "secret",
				"POSTGRES_URL": "postgres://u:p@localhost:5432/db",
				"REDIS_URL":    "redis://localhost:6379/0",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Database.Password = "secret"
				cfg.Postgres.URL = "postgres://u:p@localhost:5432/db"
				cfg.Redis.URL = "redis://localhost:6379/0"
				return cfg
			},
		},
		{
			name: "invalid YAML format",
			configContent: `storage:
  driver: yaml
  invalid yaml format here [[[
`,
			wantErrorContains: []string{
				"configuration file found but could not be read",
				"Please check the file format and permissions",
			},
		},
		{
			name: "unknown storage driver",
			configContent: `storage:
  driver: sqlite
`,
			wantErrorContains: []string{
				"invalid configuration",
				"driver must be one of [yaml mysql postgres]",
			},
		},
		{
			name: "missing TLS certificate file",
			configContent: `server:
  tls:
    cert_file: /nonexistent/cert.pem
    key_file: /nonexistent/key.pem
`,
			wantErrorContains: []string{
				"server.tls.cert_file must name a readable file",
			},
		},
		{
			name: "zero retries is rejected",
			configContent: `review:
  max_retries: 0
`,
			wantErrorContains: []string{"max_retries"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tempDir := t.TempDir()

			var configPath string
			if tt.useExplicitPath {
				configPath = filepath.Join(tempDir, "spacedrep.yml")
				require.NoError(t, os.WriteFile(configPath, []byte(tt.configContent), 0644))
			} else {
				if tt.configContent != "" {
					require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(tt.configContent), 0644))
				}
				t.Chdir(tempDir)
			}

			loader, err := NewConfigLoader(configPath)
			require.NoError(t, err)
			got, err := loader.Load()

			if len(tt.wantErrorContains) > 0 {
				require.Error(t, err)
				assert.Nil(t, got)
				for _, wantMsg := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), wantMsg)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestTLSConfig_Enabled(t *testing.T) {
	assert.False(t, TLSConfig{}.Enabled())
	assert.False(t, TLSConfig{CertFile: "cert.pem"}.Enabled())
	assert.True(t, TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}.Enabled())
}
