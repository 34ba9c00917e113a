// Package config provides configuration management for the SDK binaries
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alexbotov/commsdk/pkg/auth"
	"github.com/alexbotov/commsdk/pkg/client"
	"github.com/alexbotov/commsdk/pkg/signing"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the webhook receiver and commsctl
type Config struct {
	Server  ServerConfig
	API     APIConfig
	Auth    AuthConfig
	Webhook WebhookConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `env:"COMMS_PORT,default=8080"`
	ReadTimeout  time.Duration `env:"COMMS_READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"COMMS_WRITE_TIMEOUT,default=30s"`
}

// APIConfig holds outbound API client configuration
type APIConfig struct {
	APIBaseURL  string        `env:"COMMS_API_BASE_URL,default=https://api.nexmo.com"`
	RESTBaseURL string        `env:"COMMS_REST_BASE_URL,default=https://rest.nexmo.com"`
	Timeout     time.Duration `env:"COMMS_API_TIMEOUT,default=30s"`
	RetryCount  int           `env:"COMMS_API_RETRY_COUNT,default=3"`
}

// AuthConfig holds account and application credentials
type AuthConfig struct {
	APIKey          string `env:"COMMS_API_KEY"`
	APISecret       string `env:"COMMS_API_SECRET"`
	SignatureSecret string `env:"COMMS_SIGNATURE_SECRET"`
	// SignatureMethod is a dashboard name such as md5hash or sha256.
	SignatureMethod string        `env:"COMMS_SIGNATURE_METHOD,default=md5hash"`
	ApplicationID   string        `env:"COMMS_APPLICATION_ID"`
	PrivateKeyPath  string        `env:"COMMS_PRIVATE_KEY_PATH"`
	TokenTTL        time.Duration `env:"COMMS_TOKEN_TTL,default=15m"`
}

// WebhookConfig holds inbound callback verification settings
type WebhookConfig struct {
	MaxAge time.Duration `env:"COMMS_WEBHOOK_MAX_AGE,default=5m"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level    string `env:"COMMS_LOG_LEVEL,default=info"`
	Encoding string `env:"COMMS_LOG_ENCODING,default=json"`
}

// Load reads a .env file when one exists, then decodes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that credentials come in usable combinations.
func (c *Config) Validate() error {
	a := c.Auth
	if (a.APISecret != "" || a.SignatureSecret != "") && a.APIKey == "" {
		return errors.New("COMMS_API_KEY is required with COMMS_API_SECRET or COMMS_SIGNATURE_SECRET")
	}
	if (a.ApplicationID == "") != (a.PrivateKeyPath == "") {
		return errors.New("COMMS_APPLICATION_ID and COMMS_PRIVATE_KEY_PATH must be set together")
	}
	if _, err := a.Hash(); err != nil {
		return err
	}
	if c.API.RetryCount < 0 {
		return fmt.Errorf("COMMS_API_RETRY_COUNT must not be negative, got %d", c.API.RetryCount)
	}
	if c.Webhook.MaxAge < 0 {
		return fmt.Errorf("COMMS_WEBHOOK_MAX_AGE must not be negative, got %s", c.Webhook.MaxAge)
	}
	return nil
}

// Hash parses SignatureMethod.
func (a AuthConfig) Hash() (signing.HashType, error) {
	h, err := signing.ParseHashType(a.SignatureMethod)
	if err != nil {
		return 0, fmt.Errorf("COMMS_SIGNATURE_METHOD: %w", err)
	}
	return h, nil
}

// Methods builds every authentication method the credentials allow.
func (a AuthConfig) Methods() ([]auth.Method, error) {
	var methods []auth.Method
	if a.APIKey != "" && a.APISecret != "" {
		methods = append(methods, auth.NewAPIKeyHeader(a.APIKey, a.APISecret), auth.NewAPIKeyQuery(a.APIKey, a.APISecret))
	}
	if a.APIKey != "" && a.SignatureSecret != "" {
		h, err := a.Hash()
		if err != nil {
			return nil, err
		}
		methods = append(methods, auth.NewSignature(a.APIKey, a.SignatureSecret, h))
	}
	if a.ApplicationID != "" && a.PrivateKeyPath != "" {
		key, err := os.ReadFile(a.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		var opts []auth.JWTOption
		if a.TokenTTL > 0 {
			opts = append(opts, auth.WithTokenTTL(a.TokenTTL))
		}
		j, err := auth.NewJWT(a.ApplicationID, key, opts...)
		if err != nil {
			return nil, err
		}
		methods = append(methods, j)
	}
	return methods, nil
}

// ClientConfig converts the API settings for client.NewClient.
func (c *Config) ClientConfig() *client.Config {
	cfg := client.DefaultConfig()
	cfg.APIBaseURL = c.API.APIBaseURL
	cfg.RESTBaseURL = c.API.RESTBaseURL
	cfg.Timeout = c.API.Timeout
	cfg.RetryCount = c.API.RetryCount
	return cfg
}

// Verifier builds the inbound signature verifier.
func (c *Config) Verifier() (*signing.Verifier, error) {
	h, err := c.Auth.Hash()
	if err != nil {
		return nil, err
	}
	return &signing.Verifier{
		Secret: c.Auth.SignatureSecret,
		MaxAge: c.Webhook.MaxAge,
		Hash:   h,
	}, nil
}
