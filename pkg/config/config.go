package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"5000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps" default:"20"`
			Burst int     `yaml:"burst" default:"40"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Predictor struct {
		// Mode selects the market predictor: "http" calls the model service,
		// "static" serves the fixed assessment below.
		Mode          string        `yaml:"mode" default:"http"`
		URL           string        `yaml:"url" default:"http://localhost:5001"`
		Timeout       time.Duration `yaml:"timeout" default:"5s"`
		RetryAttempts int           `yaml:"retry_attempts" default:"2"`
		// Serialize is one of none, local or redis.
		Serialize string        `yaml:"serialize" default:"local"`
		LockTTL   time.Duration `yaml:"lock_ttl" default:"10s"`
		Breaker   struct {
			ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"5"`
			Interval            time.Duration `yaml:"interval" default:"60s"`
			OpenTimeout         time.Duration `yaml:"open_timeout" default:"30s"`
		} `yaml:"breaker"`
		Static struct {
			RiskScore      float64 `yaml:"risk_score"`
			LiquidityScore float64 `yaml:"liquidity_score"`
			Confidence     float64 `yaml:"confidence"`
		} `yaml:"static"`
	} `yaml:"predictor"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"veritas"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		SnapshotsTopic string   `yaml:"snapshots_topic" default:"veritas.snapshots"`
		VerdictsTopic  string   `yaml:"verdicts_topic" default:"veritas.verdicts"`
		LogsTopic      string   `yaml:"logs_topic" default:"veritas.logs"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1"`
		Compression    string   `yaml:"compression" default:"gzip"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"veritas-risk"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"veritas.snapshots.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Realtime struct {
		Enabled    bool `yaml:"enabled" default:"true"`
		MaxClients int  `yaml:"max_clients" default:"1000"`
	} `yaml:"realtime"`
	Risk RiskConfig `yaml:"risk"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies default tags, decodes YAML bytes over them and validates.
// Defaults go first so an explicit false or zero in the file is kept.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration built only from default tags.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("ML_API_ENDPOINT"); v != "" {
		c.Predictor.URL = v
	}
	if v := os.Getenv("PREDICTOR_MODE"); v != "" {
		c.Predictor.Mode = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Predictor.Mode {
	case "http":
		if c.Predictor.URL == "" {
			return fmt.Errorf("predictor.url is required in http mode")
		}
	case "static":
		for name, v := range map[string]float64{
			"risk_score":      c.Predictor.Static.RiskScore,
			"liquidity_score": c.Predictor.Static.LiquidityScore,
			"confidence":      c.Predictor.Static.Confidence,
		} {
			if v < 0 || v > 1 {
				return fmt.Errorf("predictor.static.%s must be within [0,1], got %v", name, v)
			}
		}
	default:
		return fmt.Errorf("predictor.mode must be 'http' or 'static', got '%s'", c.Predictor.Mode)
	}
	switch c.Predictor.Serialize {
	case "none", "local", "redis":
	default:
		return fmt.Errorf("predictor.serialize must be one of none, local, redis; got '%s'", c.Predictor.Serialize)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	return nil
}
