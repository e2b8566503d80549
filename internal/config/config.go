package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	AuthJWTSecret string
	SeedDemo      bool

	Gateway      GatewayConfig
	Storage      StorageConfig
	Email        EmailConfig
	Notification NotificationConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Scheduler    SchedulerConfig
}

// GatewayConfig describes the hosted checkout the platform sells through.
type GatewayConfig struct {
	MerchantID     string
	MerchantSecret string
	Currency       string
	CheckoutURL    string
	ReturnURL      string
	CancelURL      string
	NotifyURL      string
	Sandbox        bool
}

type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	KeyPrefix       string
	UsePathStyle    bool
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type NotificationConfig struct {
	QueueSize int
	Workers   int
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	DeadLetterList string
}

// RateLimitConfig throttles checkout creation per student. Requires Redis.
type RateLimitConfig struct {
	Enabled       bool
	PurchaseRate  float64
	PurchaseBurst int
}

type SchedulerConfig struct {
	ArtifactBackfillInterval time.Duration
	ArtifactBackfillBatch    int
	JobLockTTL               time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "academy"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		NodeID:       getenvInt("SNOWFLAKE_NODE_ID", 1),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "academy"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		SeedDemo:      getenvBool("SEED_DEMO", false),

		Gateway: GatewayConfig{
			MerchantID:     strings.TrimSpace(getenv("PAYHERE_MERCHANT_ID", "")),
			MerchantSecret: strings.TrimSpace(getenv("PAYHERE_MERCHANT_SECRET", "")),
			Currency:       strings.ToUpper(getenv("PAYHERE_CURRENCY", "LKR")),
			CheckoutURL:    getenv("PAYHERE_CHECKOUT_URL", "https://sandbox.payhere.lk/pay/checkout"),
			ReturnURL:      getenv("PAYHERE_RETURN_URL", "http://localhost:3000/payment/success"),
			CancelURL:      getenv("PAYHERE_CANCEL_URL", "http://localhost:3000/payment/cancel"),
			NotifyURL:      getenv("PAYHERE_NOTIFY_URL", "http://localhost:8080/api/payments/webhook"),
			Sandbox:        getenvBool("PAYHERE_SANDBOX", true),
		},
		Storage: StorageConfig{
			Bucket:          getenv("S3_BUCKET", "academy-certificates"),
			Region:          getenv("S3_REGION", "us-east-1"),
			Endpoint:        strings.TrimSpace(getenv("S3_ENDPOINT", "")),
			AccessKeyID:     strings.TrimSpace(getenv("S3_ACCESS_KEY_ID", "")),
			SecretAccessKey: strings.TrimSpace(getenv("S3_SECRET_ACCESS_KEY", "")),
			KeyPrefix:       getenv("S3_KEY_PREFIX", "certificates"),
			UsePathStyle:    getenvBool("S3_USE_PATH_STYLE", true),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: strings.TrimSpace(getenv("SMTP_USERNAME", "")),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			FromEmail:    getenv("SMTP_FROM_EMAIL", "no-reply@academy.local"),
			FromName:     getenv("SMTP_FROM_NAME", "Academy"),
		},
		Notification: NotificationConfig{
			QueueSize: getenvInt("NOTIFICATION_QUEUE_SIZE", 256),
			Workers:   getenvInt("NOTIFICATION_WORKERS", 2),
		},
		Redis: RedisConfig{
			Addr:           strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:       getenv("REDIS_PASSWORD", ""),
			DB:             getenvInt("REDIS_DB", 0),
			DeadLetterList: getenv("REDIS_DEAD_LETTER_LIST", "academy:dispatch:dead_letter"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			PurchaseRate:  getenvFloat("RATE_LIMIT_PURCHASE_RATE", 0.2),
			PurchaseBurst: getenvInt("RATE_LIMIT_PURCHASE_BURST", 5),
		},
		Scheduler: SchedulerConfig{
			ArtifactBackfillInterval: getenvDuration("ARTIFACT_BACKFILL_INTERVAL", 5*time.Minute),
			ArtifactBackfillBatch:    getenvInt("ARTIFACT_BACKFILL_BATCH", 25),
			JobLockTTL:               getenvDuration("SCHEDULER_JOB_LOCK_TTL", 4*time.Minute),
		},
	}

	return cfg
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
