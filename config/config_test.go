package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	unset(t, "ENV", "PORT", "SERVER_PORT", "STORE_BACKEND", "MONGO_URI", "URI", "JWT_SECRET", "KEY",
		"MAIL_BACKEND", "SMTP_HOST", "SMTP_PORT", "CORS_ORIGINS",
		"PUBSUB_ACK_DEADLINE_SECONDS", "PUBSUB_MAX_OUTSTANDING", "COOKIE_CROSS_SITE")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StoreMongo, cfg.StoreBackend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, MailSMTP, cfg.Mail.Backend)
	assert.Equal(t, "smtp.gmail.com", cfg.Mail.SMTPHost)
	assert.Equal(t, 587, cfg.Mail.SMTPPort)
	assert.Equal(t, []string{"https://englix-client.vercel.app"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 60*time.Second, cfg.PubSub.AckDeadline)
	assert.Equal(t, 10, cfg.PubSub.MaxOutstanding)
	assert.True(t, cfg.CookieCrossSite)
}

func TestLoadConfig_LegacyNames(t *testing.T) {
	unset(t, "MONGO_URI", "JWT_SECRET", "SERVER_PORT")
	t.Setenv("URI", "mongodb://db:27017/englix")
	t.Setenv("KEY", "  legacy-secret ")
	t.Setenv("PORT", "5000")

	cfg := LoadConfig()

	assert.Equal(t, "mongodb://db:27017/englix", cfg.Mongo.URI)
	assert.Equal(t, "legacy-secret", cfg.JWTSecret)
	assert.Equal(t, 5000, cfg.ServerPort)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("MAIL_BACKEND", "RabbitMQ")
	t.Setenv("DB_SSL", "true")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("PUBSUB_ACK_DEADLINE_SECONDS", "120")
	t.Setenv("COOKIE_CROSS_SITE", "false")

	cfg := LoadConfig()

	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, MailRabbitMQ, cfg.Mail.Backend)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Minute, cfg.PubSub.AckDeadline)
	assert.False(t, cfg.CookieCrossSite)
}

// unset removes keys for the duration of the test; t.Setenv registers the restore.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}
