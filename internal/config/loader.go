package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/grabpic/grabpic-api/pkg/constants"
	"github.com/grabpic/grabpic-api/pkg/logger"
)

// EnvPrefix is prepended to every environment override, e.g. GRABPIC_REDIS_ADDRESSES.
const EnvPrefix = "GRABPIC"

// Loader reads configuration from file and environment and can watch the file for changes.
type Loader struct {
	v   *viper.Viper
	log logger.Logger
}

// NewLoader creates a loader that searches configPaths, falling back to /etc/grabpic and the
// working directory.
func NewLoader(log logger.Logger, configPaths ...string) *Loader {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("/etc/grabpic/")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, log: log}
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(log logger.Logger, configPaths ...string) (*Config, error) {
	return NewLoader(log, configPaths...).Load()
}

// Load reads the config file (a missing file is not an error), applies env overrides and validates.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		l.log.Debug(context.Background(), "no config file found, using defaults and environment")
	}
	return l.decode()
}

// Watch re-reads the config file whenever it changes and hands every valid result to onChange.
// Invalid edits are logged and ignored.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			l.log.Error(context.Background(), "ignoring invalid config change", err, logger.String("file", e.Name))
			return
		}
		l.log.Info(context.Background(), "config reloaded", logger.String("file", e.Name), logger.String("op", e.Op.String()))
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 60)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.max_body_bytes", constants.MaxRequestBodyBytes)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "grabpic")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "grabpic")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 30)
	v.SetDefault("database.max_conn_idle_time", 5)

	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.sentinel_master", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.read_timeout", "500ms")
	v.SetDefault("redis.write_timeout", "500ms")
	v.SetDefault("redis.enable_tls", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", string(constants.RateLimitBackendRedis))
	v.SetDefault("rate_limit.fail_open", true)
	v.SetDefault("rate_limit.store_timeout", constants.DefaultStoreTimeout.String())
	v.SetDefault("rate_limit.key_prefix", constants.DefaultBucketKeyPrefix)

	v.SetDefault("storage.endpoint", "s3.amazonaws.com")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "grabpic-photos")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.photo_topic", "photo-processing")
	v.SetDefault("kafka.write_timeout", "5s")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.required_acks", 1)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.public_key_pem", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")

	v.SetDefault("turnstile.secret_key", "")
	v.SetDefault("turnstile.verify_url", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("turnstile.allowed_hostnames", []string{})
	v.SetDefault("turnstile.timeout", "5s")

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "http://127.0.0.1:8200")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.secret_path", "secret/data/grabpic")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", constants.ServiceName)
	v.SetDefault("tracing.sample_ratio", 1.0)
}
