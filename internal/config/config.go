package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Logger    LoggerConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string `mapstructure:"migrations_dir"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster. Пустые Addrs и Addr отключают Redis.
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff / MaxRetryBackoff в миллисекундах
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// Enabled сообщает, задан ли хотя бы один адрес Redis
func (r RedisConfig) Enabled() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// AuthConfig содержит настройки токенов администраторов
type AuthConfig struct {
	AdminJWTSecret string `mapstructure:"admin_jwt_secret"`
	AdminJWTIssuer string `mapstructure:"admin_jwt_issuer"`
}

// LoggerConfig содержит настройки zap-логгера
type LoggerConfig struct {
	Level    string // debug, info, warn, error
	Encoding string // json или console
}

// CacheConfig содержит настройки кеша действующих политик
type CacheConfig struct {
	EffectivePolicyTTL time.Duration `mapstructure:"effective_policy_ttl"`
}

// RateLimitConfig содержит лимиты для отправки согласий
type RateLimitConfig struct {
	ConsentMaxRequests int           `mapstructure:"consent_max_requests"`
	ConsentWindow      time.Duration `mapstructure:"consent_window"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Отдельный экземпляр Viper, без глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 15)
	vip.SetDefault("server.writetimeout", 30)
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("database.migrations_dir", "migrations")
	vip.SetDefault("database.auto_migrate", true)
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("auth.admin_jwt_issuer", "policy-api")
	vip.SetDefault("logger.level", "info")
	vip.SetDefault("logger.encoding", "json")
	vip.SetDefault("cache.effective_policy_ttl", "5m")
	vip.SetDefault("ratelimit.consent_max_requests", 30)
	vip.SetDefault("ratelimit.consent_window", "1m")

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_dir", "DATABASE_MIGRATIONS_DIR")
	vip.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("auth.admin_jwt_secret", "ADMIN_JWT_SECRET")
	vip.BindEnv("auth.admin_jwt_issuer", "ADMIN_JWT_ISSUER")

	vip.BindEnv("logger.level", "LOG_LEVEL")
	vip.BindEnv("logger.encoding", "LOG_ENCODING")

	vip.BindEnv("cache.effective_policy_ttl", "POLICY_CACHE_TTL")

	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS") // через запятую
	vip.BindEnv("server.trusted_proxies", "SERVER_TRUSTED_PROXIES")
	vip.BindEnv("GIN_MODE")

	// 3. Файл конфигурации (не страшно, если его нет - есть env и умолчания)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				log.Printf("Config file '%s' not found, using environment/defaults", configPath)
			} else {
				log.Printf("Warning: failed to read config file '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и env)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(vip.GetString("GIN_MODE")); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate проверяет обязательные параметры.
// Вне debug-режима обязательны пароль БД и секрет токенов администратора.
func (c *Config) validate(ginMode string) error {
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if ginMode != "debug" {
		if c.Database.Password == "" {
			return fmt.Errorf("database password is required outside debug mode (check DATABASE_PASSWORD env var)")
		}
		if c.Auth.AdminJWTSecret == "" {
			return fmt.Errorf("admin JWT secret is required outside debug mode (check ADMIN_JWT_SECRET env var)")
		}
	}
	// cors.New паникует на пустом списке источников, поэтому проверяем заранее
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("server.allowed_origins must not be empty (check SERVER_ALLOWED_ORIGINS env var)")
	}
	if c.RateLimit.ConsentMaxRequests <= 0 {
		return fmt.Errorf("ratelimit.consent_max_requests must be positive")
	}
	if c.RateLimit.ConsentWindow <= 0 {
		return fmt.Errorf("ratelimit.consent_window must be positive")
	}
	return nil
}
