// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Model, Diagnosis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Model     ModelConfig     `yaml:"model"`
	Diagnosis DiagnosisConfig `yaml:"diagnosis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows
	// any origin.
	CORSOrigins []string `yaml:"corsOrigins"`
	// RateLimitPerMinute caps prediction requests per client address. Zero
	// disables the limit.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AssessmentEvents string `yaml:"assessmentEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ModelConfig points at the trained classifier artifacts. Any missing file
// leaves the classifier unavailable; the service still answers from the
// rule table.
type ModelConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ModelPath         string `yaml:"modelPath"`
	FeaturesPath      string `yaml:"featuresPath"`
	LabelsPath        string `yaml:"labelsPath"`
	SharedLibraryPath string `yaml:"sharedLibraryPath"`
	InputName         string `yaml:"inputName"`
	OutputName        string `yaml:"outputName"`
}

// DiagnosisConfig controls the prediction request flow.
type DiagnosisConfig struct {
	PersistTimeout time.Duration `yaml:"persistTimeout"`
	HistoryLimit   int           `yaml:"historyLimit"`
}

// AnalyticsConfig controls the event collector buffer and snapshot cadence.
type AnalyticsConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	SnapshotInterval  time.Duration `yaml:"snapshotInterval"`
	SnapshotRetention time.Duration `yaml:"snapshotRetention"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rateLimitPerMinute must not be negative")
	}
	if c.Diagnosis.HistoryLimit < 0 {
		return fmt.Errorf("diagnosis.historyLimit must not be negative")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "diagnosis",
			User:            "diagnosis",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "diagnosis-group",
			Topics: KafkaTopics{
				AssessmentEvents: "assessment-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Model: ModelConfig{
			Enabled:      true,
			ModelPath:    "dataset/trained_model.onnx",
			FeaturesPath: "dataset/symptom_columns.json",
			LabelsPath:   "dataset/labels.json",
			InputName:    "float_input",
			OutputName:   "probabilities",
		},
		Diagnosis: DiagnosisConfig{
			PersistTimeout: 3 * time.Second,
			HistoryLimit:   100,
		},
		Analytics: AnalyticsConfig{
			BufferSize:        10000,
			SnapshotInterval:  time.Minute,
			SnapshotRetention: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides lets SD_* environment variables win over the file.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	envInt("SD_SERVER_PORT", &cfg.Server.Port)
	envInt("SD_RATE_LIMIT_PER_MINUTE", &cfg.Server.RateLimitPerMinute)
	envList("SD_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	envString("SD_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("SD_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("SD_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("SD_POSTGRES_USER", &cfg.Postgres.User)
	envString("SD_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("SD_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)

	envList("SD_KAFKA_BROKERS", &cfg.Kafka.Brokers)
	envString("SD_REDIS_ADDR", &cfg.Redis.Addr)
	envString("SD_REDIS_PASSWORD", &cfg.Redis.Password)
	envDuration("SD_REDIS_CACHE_TTL", &cfg.Redis.CacheTTL)

	envBool("SD_MODEL_ENABLED", &cfg.Model.Enabled)
	envString("SD_MODEL_PATH", &cfg.Model.ModelPath)
	envString("SD_MODEL_FEATURES_PATH", &cfg.Model.FeaturesPath)
	envString("SD_MODEL_LABELS_PATH", &cfg.Model.LabelsPath)
	envString("SD_ONNXRUNTIME_LIB", &cfg.Model.SharedLibraryPath)

	envDuration("SD_PERSIST_TIMEOUT", &cfg.Diagnosis.PersistTimeout)
	envString("SD_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("SD_LOGGING_FORMAT", &cfg.Logging.Format)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envList(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func envInt(key string, dst *int) {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = n
	}
}

func envBool(key string, dst *bool) {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		*dst = b
	}
}

func envDuration(key string, dst *time.Duration) {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		*dst = d
	}
}
