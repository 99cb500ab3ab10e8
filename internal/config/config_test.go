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
				if cfg.Port != "8080" {
					t.Errorf("expected port 8080, got %s", cfg.Port)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected log level info, got %s", cfg.LogLevel)
				}
				if cfg.DurationUnit != DurationMilliseconds {
					t.Errorf("expected duration unit ms, got %s", cfg.DurationUnit)
				}
				if cfg.BusinessTZOffsetHours != 3 {
					t.Errorf("expected tz offset 3, got %d", cfg.BusinessTZOffsetHours)
				}
				if cfg.SyncPollInterval != 10*time.Second {
					t.Errorf("expected poll interval 10s, got %v", cfg.SyncPollInterval)
				}
				if cfg.WorkdayHours != 7.5 {
					t.Errorf("expected workday 7.5h, got %v", cfg.WorkdayHours)
				}
				if cfg.UpstreamQueryTimeout != 120*time.Second {
					t.Errorf("expected query timeout 120s, got %v", cfg.UpstreamQueryTimeout)
				}
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":                     "9000",
				"LOG_LEVEL":                "debug",
				"UPSTREAM_DURATION_UNIT":   "s",
				"BUSINESS_TZ_OFFSET_HOURS": "2",
				"SYNC_POLL_INTERVAL":       "5s",
				"LOOKBACK_DAYS":            "7",
				"WORKDAY_HOURS":            "8",
				"ALLOWED_ORIGINS":          "http://example.com,http://test.com",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("expected port 9000, got %s", cfg.Port)
				}
				if cfg.DurationUnit != DurationSeconds {
					t.Errorf("expected duration unit s, got %s", cfg.DurationUnit)
				}
				if cfg.BusinessTZOffsetHours != 2 {
					t.Errorf("expected tz offset 2, got %d", cfg.BusinessTZOffsetHours)
				}
				if cfg.SyncPollInterval != 5*time.Second {
					t.Errorf("expected poll interval 5s, got %v", cfg.SyncPollInterval)
				}
				if cfg.LookbackDays != 7 {
					t.Errorf("expected lookback 7, got %d", cfg.LookbackDays)
				}
				if cfg.WorkdayHours != 8 {
					t.Errorf("expected workday 8h, got %v", cfg.WorkdayHours)
				}
				if len(cfg.AllowedOrigins) != 2 {
					t.Errorf("expected 2 allowed origins, got %d", len(cfg.AllowedOrigins))
				}
			},
		},
		{
			name: "invalid duration unit",
			env: map[string]string{
				"UPSTREAM_DURATION_UNIT": "minutes",
			},
			wantErr: true,
		},
		{
			name: "invalid poll interval",
			env: map[string]string{
				"SYNC_POLL_INTERVAL": "often",
			},
			wantErr: true,
		},
		{
			name: "invalid tz offset",
			env: map[string]string{
				"BUSINESS_TZ_OFFSET_HOURS": "three",
			},
			wantErr: true,
		},
		{
			name: "zero workday rejected",
			env: map[string]string{
				"WORKDAY_HOURS": "0",
			},
			wantErr: true,
		},
		{
			name: "invalid WS_READ_TIMEOUT",
			env: map[string]string{
				"WS_READ_TIMEOUT": "invalid",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
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

func TestPingPeriodBelowPongWait(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PingPeriod >= cfg.PongWait {
		t.Errorf("ping period %v must be below pong wait %v", cfg.PingPeriod, cfg.PongWait)
	}
}
