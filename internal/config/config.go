package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Pihole     PiholeConfig
	Import     ImportConfig
	Alerts     AlertsConfig
	Cache      CacheConfig
	ClickHouse ClickHouseConfig
	JWT        JWTConfig
	Telegram   TelegramConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
	Timezone    *time.Location
}

type DatabaseConfig struct {
	Path         string
	SettingsFile string
}

// PiholeConfig locates the appliance the importer reads from
type PiholeConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	KeyFile        string
	KnownHostsFile string // empty accepts any host key
	FTLDB          string
	LogPath        string
	LogLines       int
	Timeout        time.Duration
}

type ImportConfig struct {
	Source   string
	Interval time.Duration
}

type AlertsConfig struct {
	Interval time.Duration
}

type CacheConfig struct {
	TTL      time.Duration
	RedisURL string
}

// ClickHouseConfig is optional; an empty Addr disables the archive
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

type JWTConfig struct {
	Secret string
}

type TelegramConfig struct {
	APIURL string
}

// Import sources
const (
	SourceFTL = "ftl"
	SourceLog = "log"
)

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8082"),
			CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:8082"}),
			Timezone:    getEnvLocation("TIMEZONE", time.Local),
		},
		Database: DatabaseConfig{
			Path:         getEnv("DB_PATH", "pihole_logs.db"),
			SettingsFile: getEnv("SETTINGS_FILE", "alert_settings.json"),
		},
		Pihole: PiholeConfig{
			Host:           getEnv("PIHOLE_SSH_HOST", ""),
			Port:           getEnv("PIHOLE_SSH_PORT", "22"),
			User:           getEnv("PIHOLE_SSH_USER", "pi"),
			Password:       getEnv("PIHOLE_SSH_PASSWORD", ""),
			KeyFile:        getEnv("PIHOLE_SSH_KEY_FILE", ""),
			KnownHostsFile: getEnv("PIHOLE_SSH_KNOWN_HOSTS", ""),
			FTLDB:          getEnv("PIHOLE_FTL_DB", "/etc/pihole/pihole-FTL.db"),
			LogPath:        getEnv("PIHOLE_LOG_PATH", "/var/log/pihole/pihole.log"),
			LogLines:       getEnvInt("PIHOLE_LOG_LINES", 20000),
			Timeout:        getEnvDuration("PIHOLE_SSH_TIMEOUT", 30*time.Second),
		},
		Import: ImportConfig{
			Source:   strings.ToLower(getEnv("IMPORT_SOURCE", SourceFTL)),
			Interval: getEnvDuration("IMPORT_INTERVAL", 0),
		},
		Alerts: AlertsConfig{
			Interval: getEnvDuration("ALERT_INTERVAL", 5*time.Minute),
		},
		Cache: CacheConfig{
			TTL:      getEnvDuration("CACHE_TTL", 30*time.Second),
			RedisURL: getEnv("CACHE_REDIS_URL", ""),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("CLICKHOUSE_ADDR", ""),
			Database: getEnv("CLICKHOUSE_DATABASE", "pihole"),
			Username: getEnv("CLICKHOUSE_USER", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Telegram: TelegramConfig{
			APIURL: getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvLocation(key string, defaultValue *time.Location) *time.Location {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		return defaultValue
	}
	return loc
}
