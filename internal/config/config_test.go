package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "IMPORT_INTERVAL", "CACHE_TTL", "CORS_ORIGINS", "IMPORT_SOURCE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8082", cfg.Server.Port)
	assert.Equal(t, "pihole_logs.db", cfg.Database.Path)
	assert.Equal(t, SourceFTL, cfg.Import.Source)
	assert.Equal(t, time.Duration(0), cfg.Import.Interval)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Empty(t, cfg.ClickHouse.Addr)
	assert.Len(t, cfg.Server.CORSOrigins, 2)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("IMPORT_INTERVAL", "120")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("CORS_ORIGINS", "http://a, ,http://b")
	t.Setenv("IMPORT_SOURCE", "LOG")
	t.Setenv("TIMEZONE", "America/Sao_Paulo")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Import.Interval)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, SourceLog, cfg.Import.Source)
	assert.Equal(t, "America/Sao_Paulo", cfg.Server.Timezone.String())
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	t.Setenv("X_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("X_DURATION", time.Second))
}

func TestLoad_Pihole(t *testing.T) {
	t.Setenv("PIHOLE_LOG_LINES", "500")
	t.Setenv("PIHOLE_SSH_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, 500, cfg.Pihole.LogLines)
	assert.Equal(t, 30*time.Second, cfg.Pihole.Timeout)
	assert.Equal(t, "/etc/pihole/pihole-FTL.db", cfg.Pihole.FTLDB)

	t.Setenv("PIHOLE_LOG_LINES", "many")
	assert.Equal(t, 20000, Load().Pihole.LogLines)
}
