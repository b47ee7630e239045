// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	MinPasswordLength = 8
	ResetTokenTTL     = time.Hour
)

type Config struct {
	App      AppConfig      `koanf:"app"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	JWT      JWTConfig      `koanf:"jwt"`
	Password PasswordConfig `koanf:"password"`
	Reset    ResetConfig    `koanf:"reset"`
	Mail     MailConfig     `koanf:"mail"`
	CORS     CORSConfig     `koanf:"cors"`
	Log      LogConfig      `koanf:"log"`
	Otel     OtelConfig     `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	ConnectRetries  int           `koanf:"connect_retries"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

// PasswordConfig is the password strength policy applied to registration,
// reset and change-password requests.
type PasswordConfig struct {
	MinLength         int  `koanf:"min_length"`
	RequireComplexity bool `koanf:"require_complexity"`
}

// ResetConfig only carries the link target; the token lifetime is fixed
// at ResetTokenTTL.
type ResetConfig struct {
	URL string `koanf:"url"`
}

type MailConfig struct {
	Provider    string        `koanf:"provider"`
	APIKey      string        `koanf:"api_key"`
	From        string        `koanf:"from"`
	SendTimeout time.Duration `koanf:"send_timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	MailProviderLog    = "log"
	MailProviderResend = "resend"
)

// Load layers defaults, the optional YAML file at configPath and then
// environment variables. Every call returns a fresh value.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "User API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.connect_retries":    5,
		"database.auto_migrate":       true,

		"jwt.access_token_expire": "1h",
		"jwt.issuer":              "user-api",
		"jwt.audience":            "user-api",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"password.min_length":         MinPasswordLength,
		"password.require_complexity": false,

		"reset.url": "http://localhost:3000/reset-password",

		"mail.provider":     MailProviderLog,
		"mail.from":         "no-reply@localhost",
		"mail.send_timeout": "10s",

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"cors.allowed_headers": []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "user-api",
	}
}

// envKeys maps the supported environment variables onto config keys.
// Anything not listed is ignored.
var envKeys = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"PASSWORD_MIN_LENGTH":         "password.min_length",
	"PASSWORD_REQUIRE_COMPLEXITY": "password.require_complexity",
	"RESET_URL":                   "reset.url",
	"MAIL_PROVIDER":               "mail.provider",
	"MAIL_API_KEY":                "mail.api_key",
	"MAIL_FROM":                   "mail.from",
	"MAIL_SEND_TIMEOUT":           "mail.send_timeout",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKey(name string) string {
	return envKeys[name]
}

// validate reports every problem at once so a bad deployment can be
// fixed in one pass.
func validate(c *Config) error {
	var errs []error
	check := func(failed bool, format string, args ...any) {
		if failed {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Database.URL == "", "DATABASE_URL is required")
	check(c.Database.ConnectRetries < 1, "database.connect_retries must be at least 1")

	check(c.JWT.PrivateKeyPath == "", "JWT_PRIVATE_KEY_PATH is required")
	check(c.JWT.PublicKeyPath == "", "JWT_PUBLIC_KEY_PATH is required")
	check(c.JWT.AccessTokenExpire <= 0, "jwt.access_token_expire must be positive")

	check(c.Password.MinLength < MinPasswordLength,
		"password.min_length must be at least %d", MinPasswordLength)

	switch c.Mail.Provider {
	case MailProviderLog:
	case MailProviderResend:
		check(c.Mail.APIKey == "", "MAIL_API_KEY is required for the resend provider")
		check(c.Mail.From == "", "MAIL_FROM is required for the resend provider")
	default:
		check(true, "unsupported mail provider: %q", c.Mail.Provider)
	}
	check(c.Mail.SendTimeout <= 0, "mail.send_timeout must be positive")

	check(c.CORS.AllowCredentials && slices.Contains(c.CORS.AllowedOrigins, "*"),
		"CORS wildcard '*' cannot be used with allow_credentials")

	check(c.IsProduction() && c.Otel.Enabled && c.Otel.Insecure,
		"OTEL_INSECURE must be false in production")

	check(c.Server.ReadTimeout <= 0, "server.read_timeout must be positive")
	check(c.Server.WriteTimeout <= 0, "server.write_timeout must be positive")

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
