package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderStripe = "stripe"
	ProviderMock   = "mock"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	// RateLimitPerMinute caps requests per client IP; 0 disables the limit.
	RateLimitPerMinute int        `mapstructure:"rate_limit_per_minute"`
	CORS               CORSConfig `mapstructure:"cors"`
	Auth               AuthConfig `mapstructure:"auth"`
}

// AuthConfig enables bearer authentication on the payment routes when
// JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type PaymentConfig struct {
	Provider       string               `mapstructure:"provider"`
	Stripe         StripeConfig         `mapstructure:"stripe"`
	Mock           MockConfig           `mapstructure:"mock"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	// BaseURL overrides the API endpoint, e.g. for stripe-mock.
	BaseURL           string        `mapstructure:"base_url"`
	MaxNetworkRetries int64         `mapstructure:"max_network_retries"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
}

type MockConfig struct {
	Latency     time.Duration `mapstructure:"latency"`
	FailureRate float64       `mapstructure:"failure_rate"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// PAYGATE_PAYMENT_STRIPE_SECRET_KEY -> payment.stripe.secret_key
	v.SetEnvPrefix("PAYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paygate")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit_per_minute must not be negative"))
	}

	switch c.Payment.Provider {
	case ProviderStripe:
		if c.Payment.Stripe.SecretKey == "" {
			errs = append(errs, fmt.Errorf("payment.stripe.secret_key is required for the stripe provider"))
		}
		if c.Payment.Stripe.MaxNetworkRetries < 0 {
			errs = append(errs, fmt.Errorf("payment.stripe.max_network_retries must not be negative"))
		}
		if c.Payment.Stripe.HTTPTimeout < 0 {
			errs = append(errs, fmt.Errorf("payment.stripe.http_timeout must not be negative"))
		}
	case ProviderMock:
		if c.Payment.Mock.FailureRate < 0 || c.Payment.Mock.FailureRate > 1 {
			errs = append(errs, fmt.Errorf("payment.mock.failure_rate must be between 0 and 1"))
		}
	default:
		errs = append(errs, fmt.Errorf("payment.provider must be one of %q, %q, got %q", ProviderStripe, ProviderMock, c.Payment.Provider))
	}

	if cb := c.Payment.CircuitBreaker; cb.Enabled {
		if cb.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("payment.circuit_breaker.timeout must be positive"))
		}
		if cb.FailureRatio <= 0 || cb.FailureRatio > 1 {
			errs = append(errs, fmt.Errorf("payment.circuit_breaker.failure_ratio must be in (0, 1]"))
		}
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Payment.Provider == ProviderMock {
			errs = append(errs, fmt.Errorf("payment.provider mock is not allowed in production"))
		}
		if strings.HasPrefix(c.Payment.Stripe.SecretKey, "sk_test_") {
			errs = append(errs, fmt.Errorf("payment.stripe.secret_key is a test key in production"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.rate_limit_per_minute", 0)
	v.SetDefault("server.auth.jwt_secret", "")

	// Payment defaults
	v.SetDefault("payment.provider", ProviderStripe)
	v.SetDefault("payment.stripe.secret_key", "")
	v.SetDefault("payment.stripe.base_url", "")
	v.SetDefault("payment.stripe.max_network_retries", 2)
	v.SetDefault("payment.stripe.http_timeout", "80s")
	v.SetDefault("payment.mock.latency", "50ms")
	v.SetDefault("payment.mock.failure_rate", 0.0)
	v.SetDefault("payment.circuit_breaker.enabled", false)
	v.SetDefault("payment.circuit_breaker.max_requests", 5)
	v.SetDefault("payment.circuit_breaker.interval", "60s")
	v.SetDefault("payment.circuit_breaker.timeout", "30s")
	v.SetDefault("payment.circuit_breaker.min_requests", 10)
	v.SetDefault("payment.circuit_breaker.failure_ratio", 0.6)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	v.SetDefault("instance_id", "paygate-1")
}
