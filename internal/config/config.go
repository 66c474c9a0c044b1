package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Kosench/go-url-tracker/internal/expiry"
)

const envPrefix = "URLTRACKER"

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	App      AppConfig      `mapstructure:"app"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	// DSN overrides the individual connection fields when set.
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type AppConfig struct {
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Storage        string   `mapstructure:"storage"`
	MaxRetries     int      `mapstructure:"max_retries"`

	// DurationMode is "short" (ShortOffset, full precision) or "long"
	// (LongOffset, truncated to the day).
	DurationMode string        `mapstructure:"duration_mode"`
	ShortOffset  time.Duration `mapstructure:"short_offset"`
	LongOffset   time.Duration `mapstructure:"long_offset"`

	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	MaxRetries   int    `mapstructure:"max_retry"`
	CacheTTL     int    `mapstructure:"cache_ttl"`
	Namespace    string `mapstructure:"namespace"`
}

type TelegramConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BotToken          string        `mapstructure:"bot_token"`
	ChatID            string        `mapstructure:"chat_id"`
	APIBaseURL        string        `mapstructure:"api_base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

type WorkerConfig struct {
	// Schedule is a standard 5-field cron expression.
	Schedule     string        `mapstructure:"schedule"`
	Timezone     string        `mapstructure:"timezone"`
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`
	RunOnStart   bool          `mapstructure:"run_on_start"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads configuration from configFile (or config.yaml in ./configs or
// the working directory), a .env file and URLTRACKER_* environment variables,
// in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "urltracker")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "urltracker")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_max_idle_time", time.Minute)

	v.SetDefault("app.environment", "development")
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("app.storage", StoragePostgres)
	v.SetDefault("app.max_retries", 5)
	v.SetDefault("app.duration_mode", string(expiry.ModeShort))
	v.SetDefault("app.short_offset", expiry.DefaultShortOffset)
	v.SetDefault("app.long_offset", expiry.DefaultLongOffset)
	v.SetDefault("app.rate_limit_requests", 100)
	v.SetDefault("app.rate_limit_window", time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.max_retry", 3)
	v.SetDefault("redis.cache_ttl", 3600)
	v.SetDefault("redis.namespace", "urltracker")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", 10*time.Second)
	v.SetDefault("telegram.requests_per_second", 1.0)
	v.SetDefault("telegram.burst", 5)
	v.SetDefault("telegram.max_attempts", 2)
	v.SetDefault("telegram.retry_delay", 2*time.Second)

	v.SetDefault("worker.schedule", "* * * * *")
	v.SetDefault("worker.timezone", "UTC")
	v.SetDefault("worker.sweep_timeout", 5*time.Minute)
	v.SetDefault("worker.run_on_start", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func (c *Config) Validate() error {
	if _, err := expiry.ParseMode(c.App.DurationMode); err != nil {
		return fmt.Errorf("app.duration_mode: %w", err)
	}

	switch c.App.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("app.storage: unknown driver %q (expected %q or %q)", c.App.Storage, StoragePostgres, StorageMemory)
	}

	if c.App.MaxRetries <= 0 {
		return fmt.Errorf("app.max_retries must be positive, got %d", c.App.MaxRetries)
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id are required when telegram is enabled")
	}

	if _, err := time.LoadLocation(c.Worker.Timezone); err != nil {
		return fmt.Errorf("worker.timezone: %w", err)
	}

	return nil
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.App.Environment) == "production"
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.App.Environment) == "development"
}

func (c *Config) GetAllowedOrigins() []string {
	if len(c.App.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.App.AllowedOrigins
}

func (c *Config) DurationMode() expiry.Mode {
	mode, _ := expiry.ParseMode(c.App.DurationMode)
	return mode
}

// GetDSN returns the configured connection string, building a postgres URL
// from the individual fields when no explicit DSN is set.
func (d DatabaseConfig) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%s", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
