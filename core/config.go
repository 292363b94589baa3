package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultWebhookPath      = "/api/webhook/clerk"
	DefaultCommunityBio     = "org bio"
	DefaultMaxBodyBytes     = 1 << 20
	DefaultHTTPAddress      = ":8080"
	DefaultPersistenceDSN   = "file:communities.db?cache=shared&_foreign_keys=on"
	DefaultNotifyExchange   = "communities"
	DefaultCacheTTL         = time.Minute
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultHTTPReadTimeout  = 15 * time.Second
	DefaultHTTPWriteTimeout = 15 * time.Second

	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type WebhookConfig struct {
	Path          string `koanf:"path" mapstructure:"path"`
	SigningSecret string `koanf:"signing_secret" mapstructure:"signing_secret"`
	MaxBodyBytes  int64  `koanf:"max_body_bytes" mapstructure:"max_body_bytes"`
}

type CommunityConfig struct {
	DefaultBio string `koanf:"default_bio" mapstructure:"default_bio"`
}

type HTTPConfig struct {
	Address         string        `koanf:"address" mapstructure:"address"`
	ReadTimeout     time.Duration `koanf:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type PersistenceConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn"`
	Debug       bool          `koanf:"debug" mapstructure:"debug"`
	AutoMigrate bool          `koanf:"auto_migrate" mapstructure:"auto_migrate"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
}

// GetDebug, GetDriver, GetServer, GetPingTimeout and GetOtelIdentifier
// satisfy the go-persistence-bun client config contract.
func (c PersistenceConfig) GetDebug() bool { return c.Debug }

func (c PersistenceConfig) GetDriver() string { return c.Driver }

func (c PersistenceConfig) GetServer() string { return c.DSN }

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string { return "go-communities" }

type CacheConfig struct {
	Enabled bool          `koanf:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

type NotifyConfig struct {
	Enabled  bool   `koanf:"enabled" mapstructure:"enabled"`
	AMQPURL  string `koanf:"amqp_url" mapstructure:"amqp_url"`
	Exchange string `koanf:"exchange" mapstructure:"exchange"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	Webhook     WebhookConfig     `koanf:"webhook" mapstructure:"webhook"`
	Community   CommunityConfig   `koanf:"community" mapstructure:"community"`
	HTTP        HTTPConfig        `koanf:"http" mapstructure:"http"`
	Persistence PersistenceConfig `koanf:"persistence" mapstructure:"persistence"`
	Cache       CacheConfig       `koanf:"cache" mapstructure:"cache"`
	Notify      NotifyConfig      `koanf:"notify" mapstructure:"notify"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "communities",
		Webhook: WebhookConfig{
			Path:         DefaultWebhookPath,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Community: CommunityConfig{
			DefaultBio: DefaultCommunityBio,
		},
		HTTP: HTTPConfig{
			Address:         DefaultHTTPAddress,
			ReadTimeout:     DefaultHTTPReadTimeout,
			WriteTimeout:    DefaultHTTPWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Persistence: PersistenceConfig{
			Driver:      DriverSQLite,
			DSN:         DefaultPersistenceDSN,
			AutoMigrate: true,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
		Notify: NotifyConfig{
			Exchange: DefaultNotifyExchange,
		},
	}
}

// Validate checks structural settings only. An empty signing secret is
// accepted here; the verifier rejects every delivery in that state.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	path := strings.TrimSpace(c.Webhook.Path)
	if path == "" || !strings.HasPrefix(path, "/") {
		return fmt.Errorf("core: webhook.path must be an absolute route, got %q", c.Webhook.Path)
	}
	if c.Webhook.MaxBodyBytes < 0 {
		return fmt.Errorf("core: webhook.max_body_bytes must not be negative")
	}
	switch strings.TrimSpace(c.Persistence.Driver) {
	case "", DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("core: unsupported persistence.driver %q", c.Persistence.Driver)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("core: cache.ttl must not be negative")
	}
	if c.Notify.Enabled && strings.TrimSpace(c.Notify.AMQPURL) == "" {
		return fmt.Errorf("core: notify.amqp_url is required when notify.enabled is set")
	}
	return nil
}
