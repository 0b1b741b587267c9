package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Users.Type)
	assert.Equal(t, DriverSQLite, cfg.Inventory.Type)
	assert.Equal(t, DriverSQLite, cfg.Preferences.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, time.Hour, cfg.Admin.TokenTTL)
	assert.False(t, cfg.Admin.RequireToken)
	assert.False(t, cfg.Server.TLSEnabled())
}

func TestLoadPerStorePrefixes(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("USERS_DB_TYPE", "postgres")
	t.Setenv("USERS_DB_DSN", "postgres://robot:pw@db:5432/prstocks?sslmode=disable")
	t.Setenv("INVENTORY_DB_PATH", "/var/lib/prstocks/parts.db")
	t.Setenv("PREFERENCES_DB_TYPE", "mongodb")
	t.Setenv("PREFERENCES_DB_DSN", "mongodb://mongo:27017")
	t.Setenv("PREFERENCES_DB_MONGO_DATABASE", "team")
	t.Setenv("ADMIN_TOKEN_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9100", cfg.Server.Address())
	assert.Equal(t, DriverPostgres, cfg.Users.Type)
	assert.Equal(t, "postgres://robot:pw@db:5432/prstocks?sslmode=disable", cfg.Users.DSN)
	assert.Equal(t, DriverSQLite, cfg.Inventory.Type)
	assert.Equal(t, "/var/lib/prstocks/parts.db", cfg.Inventory.SQLitePath(cfg.Storage.DataDir, "inventory"))
	assert.Equal(t, DriverMongoDB, cfg.Preferences.Type)
	assert.Equal(t, "team", cfg.Preferences.MongoDatabase)
	assert.Equal(t, "user_preferences", cfg.Preferences.MongoCollection)
	assert.Equal(t, 15*time.Minute, cfg.Admin.TokenTTL)
}

func TestLoadRejectsInvalidStores(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"sql store without dsn", map[string]string{"USERS_DB_TYPE": "mysql"}},
		{"mongodb outside preferences", map[string]string{"INVENTORY_DB_TYPE": "mongodb", "INVENTORY_DB_DSN": "mongodb://x"}},
		{"mongodb without uri", map[string]string{"PREFERENCES_DB_TYPE": "mongodb"}},
		{"unknown driver", map[string]string{"USERS_DB_TYPE": "oracle"}},
		{"unknown cache", map[string]string{"CACHE_TYPE": "memcached"}},
		{"half a tls pair", map[string]string{"SERVER_TLS_CERT": "/etc/tls/cert.pem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSQLitePathDefault(t *testing.T) {
	s := StoreConfig{}
	assert.Equal(t, filepath.Join("data", "users.db"), s.SQLitePath("data", "users"))
}
