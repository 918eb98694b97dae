package config

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/grabpic/grabpic-api/pkg/constants"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Turnstile TurnstileConfig `mapstructure:"turnstile"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int      `mapstructure:"idle_timeout"`  // in seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For is honored by the edge resolver.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes"`
}

// Address returns the listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TrustedProxyPrefixes parses TrustedProxies. Validate guarantees it cannot fail afterwards.
func (c *ServerConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes, nil
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"`  // in minutes
	MaxConnIdleTime int    `mapstructure:"max_conn_idle_time"` // in minutes
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Mode           string        `mapstructure:"mode"` // standalone, cluster, sentinel
	Addresses      []string      `mapstructure:"addresses"`
	SentinelMaster string        `mapstructure:"sentinel_master"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	MinIdleConns   int           `mapstructure:"min_idle_conns"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	EnableTLS      bool          `mapstructure:"enable_tls"`
}

type RateLimitConfig struct {
	Enabled bool                       `mapstructure:"enabled"`
	Backend constants.RateLimitBackend `mapstructure:"backend"`
	// FailOpen admits requests when the bucket store errors or times out.
	FailOpen     bool          `mapstructure:"fail_open"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	PhotoTopic   string        `mapstructure:"photo_topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

type JWTConfig struct {
	// Secret enables HS256 verification when set.
	Secret string `mapstructure:"secret"`
	// PublicKeyPEM enables RS256/ES256 verification when set.
	PublicKeyPEM string `mapstructure:"public_key_pem"`
	Issuer       string `mapstructure:"issuer"`
	Audience     string `mapstructure:"audience"`
}

type TurnstileConfig struct {
	SecretKey        string        `mapstructure:"secret_key"`
	VerifyURL        string        `mapstructure:"verify_url"`
	AllowedHostnames []string      `mapstructure:"allowed_hostnames"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	SecretPath string `mapstructure:"secret_path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 || c.Server.MaxBodyBytes > constants.MaxRequestBodyBytes {
		return fmt.Errorf("server.max_body_bytes must be in (0, %d]", constants.MaxRequestBodyBytes)
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}

	switch c.RateLimit.Backend {
	case constants.RateLimitBackendRedis, constants.RateLimitBackendMemory:
	default:
		return fmt.Errorf("rate_limit.backend must be redis or memory, got %q", c.RateLimit.Backend)
	}
	if c.RateLimit.StoreTimeout <= 0 {
		return fmt.Errorf("rate_limit.store_timeout must be positive")
	}

	switch c.Redis.Mode {
	case "standalone", "cluster", "sentinel":
	default:
		return fmt.Errorf("redis.mode must be standalone, cluster or sentinel, got %q", c.Redis.Mode)
	}
	if len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("redis.addresses is required")
	}
	if c.Redis.Mode == "sentinel" && c.Redis.SentinelMaster == "" {
		return fmt.Errorf("redis.sentinel_master is required in sentinel mode")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Vault.Enabled && c.Vault.SecretPath == "" {
		return fmt.Errorf("vault.secret_path is required when vault is enabled")
	}
	return nil
}
