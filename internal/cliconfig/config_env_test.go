package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"GEOPHOTO_API_KEY":          "env-key",
				"GEOPHOTO_PROVIDER":         "kafka",
				"GEOPHOTO_KAFKA_BROKERS":    "k:9092",
				"GEOPHOTO_DEBOUNCE_WINDOW":  "2s",
				"GEOPHOTO_CACHE_SIZE":       "10",
				"GEOPHOTO_DISTANCE_FILTER":  "7.5",
				"GEOPHOTO_RESET_ON_RESTART": "true",
				"GEOPHOTO_S3_USE_SSL":       "0",
			},
			changed: map[string]bool{},
			initial: Config{S3UseSSL: true},
			expected: Config{
				APIKey:         "env-key",
				Provider:       "kafka",
				KafkaBrokers:   "k:9092",
				DebounceWindow: 2 * time.Second,
				CacheSize:      10,
				DistanceFilter: 7.5,
				ResetOnRestart: true,
				S3UseSSL:       false,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"GEOPHOTO_API_KEY":  "env-key",
				"GEOPHOTO_PROVIDER": "manual",
			},
			changed:  map[string]bool{"api-key": true},
			initial:  Config{APIKey: "flag-key"},
			expected: Config{APIKey: "flag-key", Provider: "manual"},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"GEOPHOTO_HTTP_TIMEOUT": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"GEOPHOTO_CACHE_SIZE": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid float",
			envVars: map[string]string{"GEOPHOTO_DISTANCE_FILTER": "far"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() =\n%+v\nwant\n%+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GEOPHOTO_API_KEY=from-dotenv\nGEOPHOTO_FEED_NAME=dotenv-feed\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// Existing variables win over the file.
	t.Setenv("GEOPHOTO_FEED_NAME", "from-env")
	t.Setenv("GEOPHOTO_API_KEY", "")
	os.Unsetenv("GEOPHOTO_API_KEY")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("GEOPHOTO_API_KEY"); got != "from-dotenv" {
		t.Errorf("GEOPHOTO_API_KEY = %q, want from-dotenv", got)
	}
	if got := os.Getenv("GEOPHOTO_FEED_NAME"); got != "from-env" {
		t.Errorf("GEOPHOTO_FEED_NAME = %q, want from-env", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadDotEnv() error = %v, want nil for missing file", err)
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	fileConf := FileConfig{
		APIKey:   "file-key",
		Provider: "replay",
		FeedName: "file-feed",
		Follow:   &trueVal,
	}

	t.Setenv("GEOPHOTO_API_KEY", "env-key")
	t.Setenv("GEOPHOTO_PROVIDER", "manual")
	t.Setenv("GEOPHOTO_STATE_DIR", "/env/state")

	// Simulate CLI flags
	changed := map[string]bool{
		"api-key": true,
	}

	cfg := Config{
		APIKey: "cli-key",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.APIKey != "cli-key" {
		t.Errorf("APIKey = %v, want cli-key (CLI should win)", cfg.APIKey)
	}
	if cfg.Provider != "manual" {
		t.Errorf("Provider = %v, want manual (env should override file)", cfg.Provider)
	}
	if cfg.StateDir != "/env/state" {
		t.Errorf("StateDir = %v, want /env/state (env should set)", cfg.StateDir)
	}
	if cfg.FeedName != "file-feed" || !cfg.Follow {
		t.Errorf("FeedName/Follow = %v/%v, want file values", cfg.FeedName, cfg.Follow)
	}
}
