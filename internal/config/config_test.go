package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN, "root:secret@tcp(localhost:3306)/clinic")
	assert.Equal(t, 900*time.Second, cfg.Booking.CacheTTL)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, "ATL", cfg.Registration.AtlasIDPrefix)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_Postgres(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN, "host=db port=5432")
	assert.Contains(t, cfg.Database.DSN, "sslmode=disable")
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown driver", key: "DB_DRIVER", val: "oracle"},
		{name: "bad int", key: "JWT_EXPIRATION_MINUTES", val: "soon"},
		{name: "bad duration", key: "BOOKING_CACHE_TTL", val: "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_S3RequiresBucket(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "S3_BUCKET")
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TTL_SECONDS", "120")
	t.Setenv("TTL_TEXT", "2m30s")

	d, err := getEnvAsDuration("TTL_SECONDS", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	d, err = getEnvAsDuration("TTL_TEXT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 150*time.Second, d)

	d, err = getEnvAsDuration("TTL_MISSING", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}
