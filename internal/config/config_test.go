package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.GatewayURL != "http://localhost:8080" {
					t.Errorf("expected default gateway url, got %s", cfg.GatewayURL)
				}
				if cfg.ControlAddr != ":9090" {
					t.Errorf("expected control addr :9090, got %s", cfg.ControlAddr)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected log level info, got %s", cfg.LogLevel)
				}
				if cfg.RequestTimeout != 30*time.Second {
					t.Errorf("expected request timeout 30s, got %v", cfg.RequestTimeout)
				}
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"GATEWAY_URL":     "https://gateway.example.com",
				"NOTIF_URL":       "wss://notif.example.com/ws",
				"ACCESS_TOKEN":    "token-1",
				"CONTROL_ADDR":    ":7000",
				"LOG_LEVEL":       "debug",
				"REQUEST_TIMEOUT": "10",
				"ALLOWED_ORIGINS": "http://example.com, http://test.com",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.GatewayURL != "https://gateway.example.com" {
					t.Errorf("expected custom gateway url, got %s", cfg.GatewayURL)
				}
				if cfg.AccessToken != "token-1" {
					t.Errorf("expected token-1, got %s", cfg.AccessToken)
				}
				if cfg.RequestTimeout != 10*time.Second {
					t.Errorf("expected request timeout 10s, got %v", cfg.RequestTimeout)
				}
				if len(cfg.AllowedOrigins) != 2 {
					t.Errorf("expected 2 allowed origins, got %d", len(cfg.AllowedOrigins))
				}
				if cfg.AllowedOrigins[1] != "http://test.com" {
					t.Errorf("expected trimmed origin, got %q", cfg.AllowedOrigins[1])
				}
			},
		},
		{
			name: "invalid REQUEST_TIMEOUT",
			env: map[string]string{
				"REQUEST_TIMEOUT": "invalid",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
