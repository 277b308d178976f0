package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"

	// BackendRedis moves reset codes (codes.backend) or rate-limit counters
	// (rate_limit.backend) into Redis.
	BackendRedis = "redis"

	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

type AppConfig struct {
	App             AppSettings             `mapstructure:"app"`
	Store           StoreSettings           `mapstructure:"store"`
	Codes           CodesSettings           `mapstructure:"codes"`
	Postgres        PostgresSettings        `mapstructure:"postgres"`
	Mongo           MongoSettings           `mapstructure:"mongo"`
	Redis           RedisSettings           `mapstructure:"redis"`
	Kafka           KafkaSettings           `mapstructure:"kafka"`
	Telemetry       TelemetrySettings       `mapstructure:"telemetry"`
	Mail            MailSettings            `mapstructure:"mail"`
	Reset           ResetSettings           `mapstructure:"reset"`
	RateLimit       RateLimitSettings       `mapstructure:"rate_limit"`
	Auth            AuthSettings            `mapstructure:"auth"`
	PasswordCommand PasswordCommandSettings `mapstructure:"password_command"`
	PasswordPolicy  PasswordPolicySettings  `mapstructure:"password_policy"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StoreSettings selects where users and codes live.
type StoreSettings struct {
	Driver string `mapstructure:"driver"`
}

// CodesSettings optionally moves reset codes to a different backend than users.
type CodesSettings struct {
	Backend string `mapstructure:"backend"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// DSN renders the connection URL used by pgxpool and golang-migrate.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

// MongoSettings configures the document store.
type MongoSettings struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// MailSettings configures outbound reset emails.
type MailSettings struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	From         string `mapstructure:"from"`
	Subject      string `mapstructure:"subject"`
	HTMLTemplate string `mapstructure:"html_template"`
}

// ResetSettings configures code issuance and retention.
type ResetSettings struct {
	ExpirySeconds   int           `mapstructure:"expiry_seconds"`
	CodeLength      int           `mapstructure:"code_length"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	SweepMultiplier int           `mapstructure:"sweep_multiplier"`
	MaxMismatches   int           `mapstructure:"max_mismatches"`
}

// Expiry returns the code validity window.
func (r ResetSettings) Expiry() time.Duration {
	return time.Duration(r.ExpirySeconds) * time.Second
}

// Retention returns how long a stale code may linger before the sweeper removes it.
func (r ResetSettings) Retention() time.Duration {
	multiplier := r.SweepMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return time.Duration(multiplier) * r.Expiry()
}

// RateLimitSettings configures the fixed-window limiter on code endpoints.
type RateLimitSettings struct {
	Backend       string        `mapstructure:"backend"`
	Limit         int           `mapstructure:"limit"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AuthSettings holds the shared secret guarding user provisioning.
type AuthSettings struct {
	Token string `mapstructure:"token"`
}

// PasswordCommandSettings describes the external program that applies new passwords.
type PasswordCommandSettings struct {
	Path          string        `mapstructure:"path"`
	Args          []string      `mapstructure:"args"`
	SuccessMarker string        `mapstructure:"success_marker"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type PasswordPolicySettings struct {
	MinLength int `mapstructure:"min_length"`
	MaxLength int `mapstructure:"max_length"`
	MinScore  int `mapstructure:"min_score"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("RESETD")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"store.driver",
		"codes.backend",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"mongo.uri",
		"mongo.database",
		"mongo.timeout",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"mail.driver",
		"mail.host",
		"mail.port",
		"mail.username",
		"mail.password",
		"mail.from",
		"mail.subject",
		"mail.html_template",
		"reset.expiry_seconds",
		"reset.code_length",
		"reset.sweep_interval",
		"reset.sweep_multiplier",
		"reset.max_mismatches",
		"rate_limit.backend",
		"rate_limit.limit",
		"rate_limit.window",
		"rate_limit.sweep_interval",
		"auth.token",
		"password_command.path",
		"password_command.args",
		"password_command.success_marker",
		"password_command.timeout",
		"password_policy.min_length",
		"password_policy.max_length",
		"password_policy.min_score",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every missing or invalid required key in a single error.
func (c *AppConfig) Validate() error {
	var missing []string

	if strings.TrimSpace(c.Auth.Token) == "" {
		missing = append(missing, "auth.token")
	}
	if c.Reset.ExpirySeconds <= 0 {
		missing = append(missing, "reset.expiry_seconds")
	}
	if strings.TrimSpace(c.PasswordCommand.Path) == "" {
		missing = append(missing, "password_command.path")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Postgres.Host == "" {
			missing = append(missing, "postgres.host")
		}
		if c.Postgres.Database == "" {
			missing = append(missing, "postgres.database")
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			missing = append(missing, "mongo.uri")
		}
	default:
		missing = append(missing, "store.driver")
	}

	switch c.Mail.Driver {
	case MailDriverSMTP:
		for key, value := range map[string]string{
			"mail.host":          c.Mail.Host,
			"mail.username":      c.Mail.Username,
			"mail.password":      c.Mail.Password,
			"mail.from":          c.Mail.From,
			"mail.subject":       c.Mail.Subject,
			"mail.html_template": c.Mail.HTMLTemplate,
		} {
			if strings.TrimSpace(value) == "" {
				missing = append(missing, key)
			}
		}
		if c.Mail.Port <= 0 {
			missing = append(missing, "mail.port")
		}
	case MailDriverLog:
	default:
		missing = append(missing, "mail.driver")
	}

	if c.Codes.Backend != "" && c.Codes.Backend != BackendRedis {
		missing = append(missing, "codes.backend")
	}
	if c.RateLimit.Backend != "" && c.RateLimit.Backend != BackendRedis {
		missing = append(missing, "rate_limit.backend")
	}

	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.New("missing or invalid configuration: " + strings.Join(missing, ", "))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "resetd")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 3000)

	v.SetDefault("store.driver", StoreDriverPostgres)
	v.SetDefault("codes.backend", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "resetd")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.database", "resetd")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "resetd")
	v.SetDefault("mongo.timeout", "5s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "resetd")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "resetd")

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "resetd")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("mail.driver", MailDriverSMTP)
	v.SetDefault("mail.port", 587)

	v.SetDefault("reset.expiry_seconds", 300)
	v.SetDefault("reset.code_length", 4)
	v.SetDefault("reset.sweep_interval", "30m")
	v.SetDefault("reset.sweep_multiplier", 3)
	v.SetDefault("reset.max_mismatches", 0)

	v.SetDefault("rate_limit.backend", "")
	v.SetDefault("rate_limit.limit", 5)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.sweep_interval", "30s")

	v.SetDefault("password_command.args", []string{})
	v.SetDefault("password_command.success_marker", "success")
	v.SetDefault("password_command.timeout", "0s")

	v.SetDefault("password_policy.min_length", 1)
	v.SetDefault("password_policy.max_length", 128)
	v.SetDefault("password_policy.min_score", 0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "RESETD_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
