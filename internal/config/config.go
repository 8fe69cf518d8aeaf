// Package config loads the settings of the address book.
//
// Values are read in three layers: an optional YAML file named by CONFIG_FILE, then
// environment variables, which may come from a .env file in the working directory. A value
// set in a later layer wins.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

type ServerConfig struct {
	Port                 string   `yaml:"port"`
	GinLogging           string   `yaml:"gin_logging"`
	LogLevel             string   `yaml:"log_level"`
	Timezone             string   `yaml:"timezone"`
	CORSOrigins          []string `yaml:"cors_origins"`
	RateLimitPerMinute   int      `yaml:"rate_limit_per_minute"`
	RateLimitMePerMinute int      `yaml:"rate_limit_me_per_minute"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	UserCacheTTL time.Duration `yaml:"user_cache_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                 "8080",
			LogLevel:             "info",
			Timezone:             "UTC",
			CORSOrigins:          []string{"*"},
			RateLimitPerMinute:   120,
			RateLimitMePerMinute: 10,
		},
		Database: DatabaseConfig{
			Host: "localhost:3306",
			Name: "test",
		},
		Auth: AuthConfig{
			JWTTTL: 30 * time.Minute,
		},
		Redis: RedisConfig{
			UserCacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Topic: "contact-events",
		},
	}
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.GinLogging, "GIN_LOGGING")
	setString(&c.Server.LogLevel, "LOG_LEVEL")
	setString(&c.Server.Timezone, "TIMEZONE")
	setList(&c.Server.CORSOrigins, "CORS_ORIGINS")
	setString(&c.Database.Host, "DBHOST")
	setString(&c.Database.User, "DBUSER")
	setString(&c.Database.Password, "DBPWD")
	setString(&c.Database.Name, "DBNAME")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Redis.URL, "REDIS_URL")
	setList(&c.Kafka.Brokers, "KAFKA_BROKERS")
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")

	return errors.Join(
		setInt(&c.Server.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"),
		setInt(&c.Server.RateLimitMePerMinute, "RATE_LIMIT_ME_PER_MINUTE"),
		setDuration(&c.Auth.JWTTTL, "JWT_TTL"),
		setDuration(&c.Redis.UserCacheTTL, "USER_CACHE_TTL"),
	)
}

// Validate checks the settings needed to run the HTTP service.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.RateLimitPerMinute <= 0 || c.Server.RateLimitMePerMinute <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}

// Location returns the time zone in which birthdays are evaluated.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// LogLevel returns the configured slog level, info if the value is unknown.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Server.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// RequestLogging reports whether HTTP requests are logged. GIN_LOGGING=off turns it off.
func (c *Config) RequestLogging() bool {
	return !strings.EqualFold(c.Server.GinLogging, "off")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
