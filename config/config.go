package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the consent proxy. Values come
// from an optional config.yaml and from environment variables.
type ServerConfig struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	BaseURL   string `mapstructure:"BASE_URL"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Upstream identity provider credentials. Both are required.
	UpstreamClientID     string `mapstructure:"UPSTREAM_CLIENT_ID"`
	UpstreamClientSecret string `mapstructure:"UPSTREAM_CLIENT_SECRET"`

	// ForwardPKCE makes the proxy send its own PKCE challenge upstream.
	ForwardPKCE bool `mapstructure:"FORWARD_PKCE"`

	// Flow timing knobs, in minutes and seconds respectively.
	TransactionTTLMin  int `mapstructure:"TRANSACTION_TTL_MIN"`
	ConsentTTLMin      int `mapstructure:"CONSENT_TTL_MIN"`
	ProxyCodeTTLMin    int `mapstructure:"PROXY_CODE_TTL_MIN"`
	ExchangeTimeoutSec int `mapstructure:"EXCHANGE_TIMEOUT_SEC"`
	ShutdownTimeoutSec int `mapstructure:"SHUTDOWN_TIMEOUT_SEC"`

	// FlowStoreBackend selects where transactions and proxy codes live:
	// "memory" or "redis".
	FlowStoreBackend string `mapstructure:"FLOW_STORE_BACKEND"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisKeyPrefix   string `mapstructure:"REDIS_KEY_PREFIX"`

	// PreferenceBackend selects the durable preference store: "memory"
	// or "mongodb".
	PreferenceBackend string `mapstructure:"PREFERENCE_BACKEND"`
	MongoURI          string `mapstructure:"MONGO_URI"`
	MongoDBName       string `mapstructure:"MONGO_DB_NAME"`
}

// TransactionTTL returns the pending-transaction lifetime.
func (c *ServerConfig) TransactionTTL() time.Duration {
	return time.Duration(c.TransactionTTLMin) * time.Minute
}

// ConsentTTL returns how long a staged transaction waits for the consent
// submission before it is treated as abandoned.
func (c *ServerConfig) ConsentTTL() time.Duration {
	return time.Duration(c.ConsentTTLMin) * time.Minute
}

// ProxyCodeTTL returns the lifetime of minted proxy codes.
func (c *ServerConfig) ProxyCodeTTL() time.Duration {
	return time.Duration(c.ProxyCodeTTLMin) * time.Minute
}

// ExchangeTimeout bounds the upstream token-endpoint call.
func (c *ServerConfig) ExchangeTimeout() time.Duration {
	return time.Duration(c.ExchangeTimeoutSec) * time.Second
}

// ShutdownTimeout bounds graceful shutdown before the force-exit timer fires.
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/consentproxy/")
	v.AddConfigPath("$HOME/.consentproxy")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8000")
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "consent-proxy")
	v.SetDefault("FORWARD_PKCE", false)
	v.SetDefault("TRANSACTION_TTL_MIN", 15)
	v.SetDefault("CONSENT_TTL_MIN", 10)
	v.SetDefault("PROXY_CODE_TTL_MIN", 5)
	v.SetDefault("EXCHANGE_TIMEOUT_SEC", 30)
	v.SetDefault("SHUTDOWN_TIMEOUT_SEC", 60)
	v.SetDefault("FLOW_STORE_BACKEND", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_KEY_PREFIX", "consentproxy")
	v.SetDefault("PREFERENCE_BACKEND", "memory")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/consentproxy_dev")
	v.SetDefault("MONGO_DB_NAME", "consentproxy_dev")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults apply.
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.UpstreamClientID == "" || cfg.UpstreamClientSecret == "" {
		return nil, fmt.Errorf("UPSTREAM_CLIENT_ID and UPSTREAM_CLIENT_SECRET must be set")
	}

	return &cfg, nil
}
