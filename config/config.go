package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	MailSMTP     = "smtp"
	MailRabbitMQ = "rabbitmq"
	MailPubSub   = "pubsub"
	MailLog      = "log"
)

type Config struct {
	ServerPort   int
	StoreBackend string
	JWTSecret    string
	ResetURLBase string
	CORSOrigins  []string
	Log          LogConfig
	Mongo        MongoConfig
	Database     DatabaseConfig
	Mail         MailConfig
	RabbitMQ     RabbitMQConfig
	PubSub       PubSubConfig

	// CookieCrossSite marks the session cookie SameSite=None; Secure so a
	// browser sends it from a client on another site.
	CookieCrossSite bool
}

type LogConfig struct {
	Level  string
	Format string
}

type MongoConfig struct {
	URI      string
	Database string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type MailConfig struct {
	Backend  string
	Queue    string
	User     string
	Password string
	SMTPHost string
	SMTPPort int
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
	AckDeadline        time.Duration
	MaxOutstanding     int
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "englix"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "englix_db"),
		UseSSL:   getEnvBool("DB_SSL", false),
	}

	mongoConfig := MongoConfig{
		// URI is the variable name the original deployment used.
		URI:      getEnv("MONGO_URI", getEnv("URI", "mongodb://localhost:27017")),
		Database: getEnv("MONGO_DATABASE", "englix"),
	}

	mailConfig := MailConfig{
		Backend:  strings.ToLower(getEnv("MAIL_BACKEND", MailSMTP)),
		Queue:    getEnv("MAIL_QUEUE", "mail.outbound"),
		User:     getEnv("EMAIL_USER", ""),
		Password: getEnv("EMAIL_PASS", ""),
		SMTPHost: getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
	}

	return Config{
		ServerPort:   getEnvInt("PORT", getEnvInt("SERVER_PORT", 8080)),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreMongo)),
		JWTSecret:    strings.TrimSpace(getEnv("JWT_SECRET", getEnv("KEY", ""))),
		ResetURLBase: getEnv("RESET_URL_BASE", "https://englix-client.vercel.app/user/reset-password"),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"https://englix-client.vercel.app"}),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Mongo:    mongoConfig,
		Database: dbConfig,
		Mail:     mailConfig,
		RabbitMQ: RabbitMQConfig{
			URL:           getEnv("RABBITMQ_URL", ""),
			QueueDurable:  getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			PrefetchCount: getEnvInt("RABBITMQ_PREFETCH", 10),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			AckDeadline:        time.Duration(getEnvInt("PUBSUB_ACK_DEADLINE_SECONDS", 60)) * time.Second,
			MaxOutstanding:     getEnvInt("PUBSUB_MAX_OUTSTANDING", 10),
		},
		CookieCrossSite: getEnvBool("COOKIE_CROSS_SITE", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
