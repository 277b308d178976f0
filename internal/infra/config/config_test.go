package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.App.Port)
	}
	if cfg.Reset.Expiry() != 300*time.Second {
		t.Fatalf("expected 300s expiry, got %s", cfg.Reset.Expiry())
	}
	if cfg.Reset.Retention() != 900*time.Second {
		t.Fatalf("expected 900s retention, got %s", cfg.Reset.Retention())
	}
	if cfg.RateLimit.Limit != 5 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
	if cfg.PasswordCommand.SuccessMarker != "success" {
		t.Fatalf("expected success marker default, got %q", cfg.PasswordCommand.SuccessMarker)
	}
	if cfg.Reset.CodeLength != 4 {
		t.Fatalf("expected four digit codes, got %d", cfg.Reset.CodeLength)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RESETD_APP_PORT", "8081")
	t.Setenv("AUTH_TOKEN", "s3cret")
	t.Setenv("RESETD_RESET_EXPIRY_SECONDS", "60")
	t.Setenv("RESETD_PASSWORD_COMMAND_TIMEOUT", "15s")
	t.Setenv("RESETD_STORE_DRIVER", "mongo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Port != 8081 {
		t.Fatalf("expected prefixed port override, got %d", cfg.App.Port)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Fatalf("expected unprefixed token binding, got %q", cfg.Auth.Token)
	}
	if cfg.Reset.Expiry() != time.Minute {
		t.Fatalf("expected 60s expiry, got %s", cfg.Reset.Expiry())
	}
	if cfg.PasswordCommand.Timeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.PasswordCommand.Timeout)
	}
	if cfg.Store.Driver != StoreDriverMongo {
		t.Fatalf("expected mongo store driver, got %q", cfg.Store.Driver)
	}
}

func TestValidateListsMissingKeys(t *testing.T) {
	cfg := &AppConfig{
		Store: StoreSettings{Driver: StoreDriverMongo},
		Mail:  MailSettings{Driver: MailDriverSMTP},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	for _, key := range []string{
		"auth.token",
		"reset.expiry_seconds",
		"password_command.path",
		"mongo.uri",
		"mail.host",
		"mail.port",
		"mail.username",
		"mail.password",
		"mail.from",
		"mail.subject",
		"mail.html_template",
	} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %q in error %q", key, err.Error())
		}
	}
}

func TestValidateRequiresSMTPCredentials(t *testing.T) {
	cfg := &AppConfig{
		Store:    StoreSettings{Driver: StoreDriverPostgres},
		Postgres: PostgresSettings{Host: "localhost", Database: "resetd"},
		Mail: MailSettings{
			Driver:       MailDriverSMTP,
			Host:         "smtp.example.com",
			Port:         587,
			Username:     "mailer",
			From:         "noreply@example.com",
			Subject:      "Password reset",
			HTMLTemplate: "<p>{{.Code}}</p>",
		},
		Reset:           ResetSettings{ExpirySeconds: 300},
		Auth:            AuthSettings{Token: "s3cret"},
		PasswordCommand: PasswordCommandSettings{Path: "/usr/local/bin/reset-password"},
	}

	err := cfg.Validate()
	if err == nil || err.Error() != "missing or invalid configuration: mail.password" {
		t.Fatalf("expected only mail.password to be reported, got %v", err)
	}

	cfg.Mail.Password = "hunter2"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected complete smtp config to pass, got %v", err)
	}
}

func TestValidateBackends(t *testing.T) {
	cfg := &AppConfig{
		Store:           StoreSettings{Driver: StoreDriverPostgres},
		Postgres:        PostgresSettings{Host: "localhost", Database: "resetd"},
		Mail:            MailSettings{Driver: MailDriverLog},
		Reset:           ResetSettings{ExpirySeconds: 300},
		Auth:            AuthSettings{Token: "s3cret"},
		PasswordCommand: PasswordCommandSettings{Path: "/usr/local/bin/reset-password"},
		Codes:           CodesSettings{Backend: BackendRedis},
		RateLimit:       RateLimitSettings{Backend: BackendRedis},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected redis backends to be accepted, got %v", err)
	}

	cfg.RateLimit.Backend = "memcached"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "rate_limit.backend") {
		t.Fatalf("expected rate_limit.backend to be rejected, got %v", err)
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := &AppConfig{
		Store:           StoreSettings{Driver: StoreDriverPostgres},
		Postgres:        PostgresSettings{Host: "localhost", Database: "resetd"},
		Mail:            MailSettings{Driver: MailDriverLog},
		Reset:           ResetSettings{ExpirySeconds: 300},
		Auth:            AuthSettings{Token: "s3cret"},
		PasswordCommand: PasswordCommandSettings{Path: "/usr/local/bin/reset-password"},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresSettings{User: "u", Password: "p", Host: "db", Port: 5432, Database: "resetd", SSLMode: "disable"}
	if got := p.DSN(); got != "postgres://u:p@db:5432/resetd?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}
}
