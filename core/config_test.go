package core

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty secret allowed", mutate: func(c *Config) { c.Webhook.SigningSecret = "" }},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = " " }, wantErr: "service_name"},
		{name: "relative path", mutate: func(c *Config) { c.Webhook.Path = "api/webhook" }, wantErr: "webhook.path"},
		{name: "negative body limit", mutate: func(c *Config) { c.Webhook.MaxBodyBytes = -1 }, wantErr: "max_body_bytes"},
		{name: "unknown driver", mutate: func(c *Config) { c.Persistence.Driver = "mysql" }, wantErr: "persistence.driver"},
		{name: "notify without url", mutate: func(c *Config) { c.Notify.Enabled = true }, wantErr: "amqp_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPersistenceConfig_Getters(t *testing.T) {
	cfg := DefaultConfig().Persistence
	if cfg.GetDriver() != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.GetDriver())
	}
	if cfg.GetServer() != cfg.DSN {
		t.Fatalf("expected dsn as server")
	}
	if cfg.GetPingTimeout() <= 0 {
		t.Fatalf("expected positive ping timeout")
	}
}
