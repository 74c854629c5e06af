package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SIGNALDESK_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SIGNALDESK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "SIGNALDESK_PROVIDER_BASE_URL")
	setStr(&cfg.Provider.Name, "SIGNALDESK_PROVIDER_NAME")
	setStr(&cfg.Provider.Token, "SIGNALDESK_PROVIDER_TOKEN")

	// ── Database ──
	setStr(&cfg.Database.DSN, "SIGNALDESK_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "SIGNALDESK_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "SIGNALDESK_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SIGNALDESK_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SIGNALDESK_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "SIGNALDESK_DATABASE_USER")
	setStr(&cfg.Database.Password, "SIGNALDESK_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SIGNALDESK_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SIGNALDESK_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SIGNALDESK_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SIGNALDESK_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SIGNALDESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SIGNALDESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SIGNALDESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SIGNALDESK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SIGNALDESK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SIGNALDESK_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SIGNALDESK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SIGNALDESK_S3_REGION")
	setStr(&cfg.S3.Bucket, "SIGNALDESK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SIGNALDESK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SIGNALDESK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SIGNALDESK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SIGNALDESK_S3_FORCE_PATH_STYLE")

	// ── Quotes ──
	setInt(&cfg.Quotes.BudgetLimit, "SIGNALDESK_QUOTES_BUDGET_LIMIT")
	setDuration(&cfg.Quotes.BudgetWindow, "SIGNALDESK_QUOTES_BUDGET_WINDOW")

	// ── Analytics ──
	setDuration(&cfg.Analytics.RefreshInterval, "SIGNALDESK_ANALYTICS_REFRESH_INTERVAL")
	setFloat64(&cfg.Analytics.StartBalance, "SIGNALDESK_ANALYTICS_START_BALANCE")
	setFloat64(&cfg.Analytics.RiskPercent, "SIGNALDESK_ANALYTICS_RISK_PERCENT")

	// ── Monitor ──
	setBool(&cfg.Monitor.Enabled, "SIGNALDESK_MONITOR_ENABLED")
	setDuration(&cfg.Monitor.Interval, "SIGNALDESK_MONITOR_INTERVAL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SIGNALDESK_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SIGNALDESK_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "SIGNALDESK_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SIGNALDESK_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SIGNALDESK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SIGNALDESK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SIGNALDESK_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SIGNALDESK_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "SIGNALDESK_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SIGNALDESK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SIGNALDESK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SIGNALDESK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SIGNALDESK_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SIGNALDESK_MODE")
	setStr(&cfg.LogLevel, "SIGNALDESK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
