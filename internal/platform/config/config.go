package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
)

// Development defaults. Load refuses them when RegulatedMode is on.
const (
	devJWTSigningKey = "dev-secret-key-change-in-production"
	devSecretKey     = "dev-umid-sealing-key-change-in-production"
)

// Config is the full service configuration.
// Precedence: built-in defaults, then the YAML file named by UMID_CONFIG, then environment.
type Config struct {
	Server   Server      `yaml:"server"`
	Auth     Auth        `yaml:"auth"`
	Database Database    `yaml:"database"`
	Redis    RedisConfig `yaml:"redis"`
	Kafka    Kafka       `yaml:"kafka"`
	UMID     UMID        `yaml:"umid"`
	Throttle Throttle    `yaml:"throttle"`
	Outbox   Outbox      `yaml:"outbox"`
	Log      Log         `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	RegulatedMode   bool          `yaml:"regulatedMode"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Auth configures validation of identity-provider tokens.
type Auth struct {
	JWTSigningKey string `yaml:"jwtSigningKey"`
	Issuer        string `yaml:"issuer"`
}

// Database selects PostgreSQL persistence. Empty URL means in-memory stores.
type Database struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
	MaxIdleConns int           `yaml:"maxIdleConns"`
	TxTimeout    time.Duration `yaml:"txTimeout"`
}

// RedisConfig selects the distributed throttle store. Empty URL means in-memory.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"poolSize"`
	MinIdleConns int           `yaml:"minIdleConns"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// Kafka configures the access-log relay. No brokers disables the relay.
type Kafka struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	Partitions  int32    `yaml:"partitions"`
	Replication int16    `yaml:"replication"`
}

// UMID holds credential and code-verification parameters.
type UMID struct {
	// SecretKey seals TOTP secrets at rest.
	SecretKey                string        `yaml:"secretKey"`
	Issuer                   string        `yaml:"issuer"`
	StepSeconds              uint          `yaml:"stepSeconds"`
	DefaultToleranceSteps    uint          `yaml:"defaultToleranceSteps"`
	MaxToleranceSteps        uint          `yaml:"maxToleranceSteps"`
	ExpiredLookbackSteps     uint          `yaml:"expiredLookbackSteps"`
	QRRotation               time.Duration `yaml:"qrRotation"`
	DefaultEmergencyOverride bool          `yaml:"defaultEmergencyOverride"`
	DefaultLogLimit          int           `yaml:"defaultLogLimit"`
	MaxLogLimit              int           `yaml:"maxLogLimit"`
}

// Throttle bounds failed code attempts per (UMID, accessor) pair.
type Throttle struct {
	MaxFailures int           `yaml:"maxFailures"`
	Window      time.Duration `yaml:"window"`
}

// Outbox configures the access-log relay worker.
type Outbox struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	BatchSize    int           `yaml:"batchSize"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Default returns a configuration suitable for local development.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: Auth{
			JWTSigningKey: devJWTSigningKey,
			Issuer:        "umid-identity",
		},
		Database: Database{
			MaxOpenConns: 20,
			MaxIdleConns: 5,
			TxTimeout:    5 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Kafka: Kafka{
			Topic:       "umid.access-logs",
			Partitions:  3,
			Replication: 1,
		},
		UMID: UMID{
			SecretKey:             devSecretKey,
			Issuer:                "UMID",
			StepSeconds:           30,
			DefaultToleranceSteps: 1,
			MaxToleranceSteps:     3,
			ExpiredLookbackSteps:  10,
			QRRotation:            30 * time.Second,
			DefaultLogLimit:       50,
			MaxLogLimit:           500,
		},
		Throttle: Throttle{
			MaxFailures: 5,
			Window:      5 * time.Minute,
		},
		Outbox: Outbox{
			PollInterval: time.Second,
			BatchSize:    100,
		},
		Log: Log{Level: "info"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config file: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv loads the file named by UMID_CONFIG (if any) and the environment so main stays lean.
func FromEnv() (Config, error) {
	return Load(os.Getenv("UMID_CONFIG"))
}

func (c *Config) applyEnv() {
	c.Server.Addr = getenv("UMID_ADDR", c.Server.Addr)
	c.Server.RegulatedMode = getenvBool("REGULATED_MODE", c.Server.RegulatedMode)
	c.Server.ShutdownTimeout = getenvDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Auth.JWTSigningKey = getenv("JWT_SIGNING_KEY", c.Auth.JWTSigningKey)
	c.Auth.Issuer = getenv("JWT_ISSUER", c.Auth.Issuer)

	c.Database.URL = getenv("DATABASE_URL", c.Database.URL)
	c.Database.TxTimeout = getenvDuration("DATABASE_TX_TIMEOUT", c.Database.TxTimeout)

	c.Redis.URL = getenv("REDIS_URL", c.Redis.URL)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitCSV(brokers)
	}
	c.Kafka.Topic = getenv("KAFKA_TOPIC", c.Kafka.Topic)

	c.UMID.SecretKey = getenv("UMID_SECRET_KEY", c.UMID.SecretKey)
	c.UMID.Issuer = getenv("UMID_ISSUER", c.UMID.Issuer)
	c.UMID.DefaultToleranceSteps = uint(getenvInt("UMID_TOTP_TOLERANCE", int(c.UMID.DefaultToleranceSteps)))
	c.UMID.QRRotation = getenvDuration("UMID_QR_ROTATION", c.UMID.QRRotation)
	c.UMID.DefaultEmergencyOverride = getenvBool("UMID_DEFAULT_EMERGENCY_OVERRIDE", c.UMID.DefaultEmergencyOverride)

	c.Throttle.MaxFailures = getenvInt("THROTTLE_MAX_FAILURES", c.Throttle.MaxFailures)
	c.Throttle.Window = getenvDuration("THROTTLE_WINDOW", c.Throttle.Window)

	c.Outbox.PollInterval = getenvDuration("OUTBOX_POLL_INTERVAL", c.Outbox.PollInterval)

	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)
}

// Validate rejects configurations the service cannot run safely with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.RegulatedMode {
		if c.Auth.JWTSigningKey == devJWTSigningKey {
			errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in regulated mode"))
		}
		if c.UMID.SecretKey == devSecretKey {
			errs = append(errs, errors.New("UMID_SECRET_KEY must be set in regulated mode"))
		}
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set in regulated mode"))
		}
	}
	if c.UMID.StepSeconds == 0 {
		errs = append(errs, errors.New("umid.stepSeconds must be positive"))
	}
	if c.UMID.DefaultToleranceSteps > c.UMID.MaxToleranceSteps {
		errs = append(errs, fmt.Errorf("umid.defaultToleranceSteps must be at most %d", c.UMID.MaxToleranceSteps))
	}
	if c.UMID.DefaultLogLimit <= 0 || c.UMID.DefaultLogLimit > c.UMID.MaxLogLimit {
		errs = append(errs, errors.New("umid.defaultLogLimit must be within (0, maxLogLimit]"))
	}
	if c.Throttle.MaxFailures <= 0 || c.Throttle.Window <= 0 {
		errs = append(errs, errors.New("throttle.maxFailures and throttle.window must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevSecretKey reports whether the sealing key is the built-in development value.
func (u UMID) IsDevSecretKey() bool {
	return u.SecretKey == devSecretKey
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
