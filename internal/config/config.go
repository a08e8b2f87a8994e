// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	Bot         BotConfig         `mapstructure:"bot"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Identity    IdentityConfig    `mapstructure:"identity"`
	Log         LogConfig         `mapstructure:"log"`
}

// HTTPConfig holds the API listener configuration.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BotConfig holds Telegram bot configuration. An empty token disables the bot.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache connection. An empty address
// disables caching.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LedgerConfig holds point and challenge rules.
type LedgerConfig struct {
	ChallengeStake int64         `mapstructure:"challenge_stake"`
	ExpirySweep    time.Duration `mapstructure:"expiry_sweep"`
	Timezone       string        `mapstructure:"timezone"`
}

// LeaderboardConfig holds leaderboard query configuration.
type LeaderboardConfig struct {
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// IdentityConfig holds the secrets used to identify API callers.
type IdentityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	VoteSalt  string `mapstructure:"vote_salt"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode,
	)
}

// Location resolves the ledger timezone used for monthly epochs.
func (l *LedgerConfig) Location() (*time.Location, error) {
	if l.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger timezone %q: %w", l.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, IDENTITY_JWT_SECRET, LEDGER_TIMEZONE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Ledger.ChallengeStake <= 0 {
		return fmt.Errorf("ledger.challenge_stake must be positive, got %d", c.Ledger.ChallengeStake)
	}
	if c.Leaderboard.DefaultLimit <= 0 || c.Leaderboard.MaxLimit < c.Leaderboard.DefaultLimit {
		return fmt.Errorf("leaderboard limits invalid: default %d, max %d",
			c.Leaderboard.DefaultLimit, c.Leaderboard.MaxLimit)
	}
	if _, err := c.Ledger.Location(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "reproom")
	v.SetDefault("database.name", "reproom")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.db", 0)

	v.SetDefault("ledger.challenge_stake", 25)
	v.SetDefault("ledger.expiry_sweep", "5m")
	v.SetDefault("ledger.timezone", "UTC")

	v.SetDefault("leaderboard.default_limit", 50)
	v.SetDefault("leaderboard.max_limit", 200)
	v.SetDefault("leaderboard.cache_ttl", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// IsAdmin checks if a Telegram user ID is in the admin list.
func (c *Config) IsAdmin(telegramID int64) bool {
	return slices.Contains(c.Admin.IDs, telegramID)
}
