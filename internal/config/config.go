package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	HTTPAddr    string `yaml:"http_addr"`
	StoreDSN    string `yaml:"store_dsn"`

	Remote    RemoteConfig    `yaml:"remote"`
	JWTSecret string          `yaml:"jwt_secret"`
	AMQPURL   string          `yaml:"amqp_url"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	SeedDemoUsers      bool     `yaml:"seed_demo_users"`
	SentryDSN          string   `yaml:"sentry_dsn"`
	LogLevel           string   `yaml:"log_level"`
	LogFormat          string   `yaml:"log_format"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type SMTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func Default() Config {
	return Config{
		Environment: "development",
		HTTPAddr:    ":8080",
		StoreDSN:    "memory://",
		Remote:      RemoteConfig{Timeout: 5 * time.Second},
		SMTP:        SMTPConfig{Port: 587},
		Scheduler:   SchedulerConfig{Interval: time.Minute},
		LogLevel:    "info",
		LogFormat:   "text",
		CORSAllowedOrigins: []string{
			"http://localhost:5173",
		},
	}
}

// Load layers defaults, the optional YAML file at path, a .env file in the
// working directory and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnv(&cfg)

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.StoreDSN = getEnv("STORE_DSN", cfg.StoreDSN)
	cfg.Remote.BaseURL = getEnv("REMOTE_BASE_URL", cfg.Remote.BaseURL)
	cfg.Remote.Token = getEnv("REMOTE_TOKEN", cfg.Remote.Token)
	cfg.Remote.Timeout = getEnvAsDuration("REMOTE_TIMEOUT", cfg.Remote.Timeout)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvAsInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.User = getEnv("SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Pass = getEnv("SMTP_PASS", cfg.SMTP.Pass)
	cfg.SMTP.From = getEnv("MAIL_FROM", cfg.SMTP.From)
	cfg.Scheduler.Interval = getEnvAsDuration("SCHEDULER_INTERVAL", cfg.Scheduler.Interval)
	cfg.SeedDemoUsers = getEnvAsBool("SEED_DEMO_USERS", cfg.SeedDemoUsers)
	cfg.SentryDSN = getEnv("SENTRY_DSN", cfg.SentryDSN)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, errors.New("remote timeout must be positive"))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler interval must be positive"))
	}
	if c.Remote.BaseURL != "" {
		if u, err := url.Parse(c.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("remote base url %q is not absolute", c.Remote.BaseURL))
		}
	}
	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required in production"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

// getEnvAsDuration accepts Go durations ("5s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
