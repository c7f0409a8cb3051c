package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/trendsentry")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AI_PROVIDER", "mock")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Server.Env)
	}
	if cfg.AI.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want 1000", cfg.AI.MaxTokens)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", cfg.AI.Temperature)
	}
	if cfg.Pipeline.ScanInterval != 300*time.Second {
		t.Errorf("ScanInterval = %v, want 5m", cfg.Pipeline.ScanInterval)
	}
	if cfg.Pipeline.AlertThreshold != 0.7 {
		t.Errorf("AlertThreshold = %v, want 0.7", cfg.Pipeline.AlertThreshold)
	}
	if cfg.Pipeline.ApprovalThreshold != 0.8 {
		t.Errorf("ApprovalThreshold = %v, want 0.8", cfg.Pipeline.ApprovalThreshold)
	}
	if cfg.Sources.WatchlistPath != "watchlist.yaml" {
		t.Errorf("WatchlistPath = %q, want watchlist.yaml", cfg.Sources.WatchlistPath)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRENDSENTRY_PORT", "9090")
	t.Setenv("SCAN_INTERVAL_SECS", "60")
	t.Setenv("ALERT_THRESHOLD", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Pipeline.ScanInterval != time.Minute {
		t.Errorf("ScanInterval = %v, want 1m", cfg.Pipeline.ScanInterval)
	}
	if cfg.Pipeline.AlertThreshold != 0.5 {
		t.Errorf("AlertThreshold = %v, want 0.5", cfg.Pipeline.AlertThreshold)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing database URL",
			env: map[string]string{
				"REDIS_URL":   "redis://localhost:6379/0",
				"AI_PROVIDER": "mock",
			},
		},
		{
			name: "missing redis URL",
			env: map[string]string{
				"DATABASE_URL": "postgres://localhost/db",
				"AI_PROVIDER":  "mock",
			},
		},
		{
			name: "missing provider",
			env: map[string]string{
				"DATABASE_URL": "postgres://localhost/db",
				"REDIS_URL":    "redis://localhost:6379/0",
			},
		},
		{
			name: "unknown provider",
			env: map[string]string{
				"DATABASE_URL": "postgres://localhost/db",
				"REDIS_URL":    "redis://localhost:6379/0",
				"AI_PROVIDER":  "gemini",
			},
		},
		{
			name: "openai without key",
			env: map[string]string{
				"DATABASE_URL": "postgres://localhost/db",
				"REDIS_URL":    "redis://localhost:6379/0",
				"AI_PROVIDER":  "openai",
			},
		},
		{
			name: "production without token hash",
			env: map[string]string{
				"DATABASE_URL":    "postgres://localhost/db",
				"REDIS_URL":       "redis://localhost:6379/0",
				"AI_PROVIDER":     "mock",
				"TRENDSENTRY_ENV": "production",
			},
		},
		{
			name: "threshold out of range",
			env: map[string]string{
				"DATABASE_URL":    "postgres://localhost/db",
				"REDIS_URL":       "redis://localhost:6379/0",
				"AI_PROVIDER":     "mock",
				"ALERT_THRESHOLD": "1.5",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear the required vars, then apply the case's env.
			t.Setenv("DATABASE_URL", "")
			t.Setenv("REDIS_URL", "")
			t.Setenv("AI_PROVIDER", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() = nil error, want validation failure")
			}
		})
	}
}
