package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// Service
	ServerPort  string `env:"SERVER_PORT" envDefault:"8880"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"mazraaty-notify"`

	// PostgreSQL
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"mazraaty"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`
	// Optional read replicas for the recipient directory, comma separated hosts.
	PostgreSQLReplicaHosts []string `env:"POSTGRESQL_REPLICA_HOSTS" envSeparator:","`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"mzr"`

	// RabbitMQ
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT: service-to-service tokens carrying the caller's tenant claim.
	JWTSecret        string `env:"JWT_SECRET"`
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`

	// Delivery pipeline tuning
	WorkerCount              int `env:"WORKER_COUNT" envDefault:"16"`
	TenantChannelConcurrency int `env:"TENANT_CHANNEL_CONCURRENCY" envDefault:"4"`
	RetryBaseMs              int `env:"RETRY_BASE_MS" envDefault:"500"`
	RetryCapMs               int `env:"RETRY_CAP_MS" envDefault:"60000"`
	DefaultTTLSeconds        int `env:"DEFAULT_TTL_SECONDS" envDefault:"3600"`
	MaxTTLSeconds            int `env:"MAX_TTL_SECONDS" envDefault:"86400"`
	AdapterTimeoutSeconds    int `env:"ADAPTER_TIMEOUT_SECONDS" envDefault:"10"`
	DrainTimeoutSeconds      int `env:"DRAIN_TIMEOUT_SECONDS" envDefault:"20"`
	MaxPayloadBytes          int `env:"MAX_PAYLOAD_BYTES" envDefault:"65536"`

	// Retention
	DedupRetentionSeconds int `env:"DEDUP_RETENTION_SECONDS" envDefault:"172800"`
	DLQRetentionSeconds   int `env:"DLQ_RETENTION_SECONDS" envDefault:"2592000"`
	AuditRetentionSeconds int `env:"AUDIT_RETENTION_SECONDS" envDefault:"604800"`

	// SMS provider (Aliyun). AccessKey comes from the SDK environment variables
	// ALIBABA_CLOUD_ACCESS_KEY_ID / ALIBABA_CLOUD_ACCESS_KEY_SECRET.
	SMSProvider    string `env:"SMS_PROVIDER" envDefault:"aliyun"`
	SMSSignName    string `env:"SMS_SIGN_NAME"`
	SMSConcurrency int    `env:"SMS_CONCURRENCY" envDefault:"8"`

	// Email provider (SMTP relay)
	SMTPHost         string `env:"SMTP_HOST"`
	SMTPPort         string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername     string `env:"SMTP_USERNAME"`
	SMTPPassword     string `env:"SMTP_PASSWORD"`
	SMTPFrom         string `env:"SMTP_FROM" envDefault:"no-reply@mazraaty.app"`
	EmailConcurrency int    `env:"EMAIL_CONCURRENCY" envDefault:"8"`

	// Push provider (HTTP gateway)
	PushGatewayURL  string `env:"PUSH_GATEWAY_URL"`
	PushGatewayKey  string `env:"PUSH_GATEWAY_KEY"`
	PushConcurrency int    `env:"PUSH_CONCURRENCY" envDefault:"16"`

	// Encryption for contact endpoints at rest, 32 bytes AES-256.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
	PhoneHashSalt string `env:"PHONEHASH_SALT"`

	// Snowflake ID generator
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// Logging
	LoggerLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"json"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// Tracing
	OTLPEndpoint string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	TraceSampler float64 `env:"TRACE_SAMPLER" envDefault:"0.1"`

	// Ingress rate limiting
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"`
}

// Load parses the environment into Cfg. It returns an error instead of exiting
// so main can map configuration failures to exit code 64.
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		return err
	}

	return Cfg.Validate()
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return &ValidationError{Field: "JWT_SECRET", Reason: "required"}
	}
	if c.EncryptionKey != "" && len(c.EncryptionKey) != 32 {
		return &ValidationError{Field: "ENCRYPTION_KEY", Reason: "must be exactly 32 bytes for AES-256"}
	}
	if c.WorkerCount <= 0 {
		return &ValidationError{Field: "WORKER_COUNT", Reason: "must be positive"}
	}
	if c.TenantChannelConcurrency <= 0 {
		return &ValidationError{Field: "TENANT_CHANNEL_CONCURRENCY", Reason: "must be positive"}
	}
	if c.RetryBaseMs <= 0 || c.RetryCapMs < c.RetryBaseMs {
		return &ValidationError{Field: "RETRY_BASE_MS", Reason: "base must be positive and RETRY_CAP_MS >= base"}
	}
	// A dedup record must outlive any request it suppresses.
	if c.DedupRetentionSeconds < c.MaxTTLSeconds {
		return &ValidationError{Field: "DEDUP_RETENTION_SECONDS", Reason: "must be >= MAX_TTL_SECONDS"}
	}

	if c.SMSSignName == "" {
		log.Printf("WARN: SMS_SIGN_NAME is not set, the SMS channel will use the mock client")
	}
	if c.SMTPHost == "" {
		log.Printf("WARN: SMTP_HOST is not set, the email channel will use the mock client")
	}
	if c.PushGatewayURL == "" {
		log.Printf("WARN: PUSH_GATEWAY_URL is not set, the push channel will use the mock client")
	}

	return nil
}

// ValidationError reports a rejected configuration value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Field + " " + e.Reason
}

func (c *Config) GetDSN() string {
	return c.dsnForHost(c.PostgreSQLHost)
}

// GetReplicaDSNs returns DSNs for the configured read replicas, if any.
func (c *Config) GetReplicaDSNs() []string {
	dsns := make([]string, 0, len(c.PostgreSQLReplicaHosts))
	for _, host := range c.PostgreSQLReplicaHosts {
		if host == "" {
			continue
		}
		dsns = append(dsns, c.dsnForHost(host))
	}
	return dsns
}

func (c *Config) dsnForHost(host string) string {
	return "host=" + host +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseMs) * time.Millisecond
}

func (c *Config) RetryCap() time.Duration {
	return time.Duration(c.RetryCapMs) * time.Millisecond
}

func (c *Config) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSeconds) * time.Second
}

func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutSeconds) * time.Second
}

func (c *Config) DedupRetention() time.Duration {
	return time.Duration(c.DedupRetentionSeconds) * time.Second
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
