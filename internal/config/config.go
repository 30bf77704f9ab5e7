package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Worker   WorkerConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
	Upload   UploadConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	TempDir         string        `envconfig:"WORKER_TEMP_DIR" default:"/tmp/atelier"`
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
	ThumbnailWidth  int           `envconfig:"WORKER_THUMBNAIL_WIDTH" default:"480"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"atelier"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"atelier"`
	DBName   string `envconfig:"POSTGRES_DB" default:"atelier"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint       string        `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string        `envconfig:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string        `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string        `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string        `envconfig:"MINIO_BUCKET" default:"media"`
	UseSSL         bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	PublicBaseURL  string        `envconfig:"MINIO_PUBLIC_BASE_URL" default:"http://localhost:9000/media"`
	PresignExpiry  time.Duration `envconfig:"MINIO_PRESIGN_EXPIRY" default:"15m"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"atelier"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"atelier"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
	Enabled  bool   `envconfig:"RABBITMQ_ENABLED" default:"true"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	// Disabled switches the studio to the in-process mirror.
	Disabled bool `envconfig:"REDIS_DISABLED" default:"false"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret string        `envconfig:"AUTH_JWT_SECRET" default:"change-me"`
	TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"12h"`
}

type GatewayConfig struct {
	BaseURL string        `envconfig:"GATEWAY_BASE_URL" default:"http://localhost:8080"`
	Token   string        `envconfig:"GATEWAY_TOKEN"`
	Timeout time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"30s"`
}

type UploadConfig struct {
	Concurrency   int           `envconfig:"UPLOAD_CONCURRENCY" default:"6"`
	FileTimeout   time.Duration `envconfig:"UPLOAD_FILE_TIMEOUT" default:"60s"`
	MaxImageBytes int64         `envconfig:"UPLOAD_MAX_IMAGE_BYTES" default:"26214400"`
	MaxVideoBytes int64         `envconfig:"UPLOAD_MAX_VIDEO_BYTES" default:"2147483648"`
}

type EngineConfig struct {
	SlugRetries   int           `envconfig:"ENGINE_SLUG_RETRIES" default:"1"`
	DeleteTimeout time.Duration `envconfig:"ENGINE_DELETE_TIMEOUT" default:"15s"`
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
