package cliconfig

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %v, want %v", cfg.Endpoint, DefaultEndpoint)
	}
	if cfg.DebounceWindow != time.Second {
		t.Errorf("DebounceWindow = %v, want 1s", cfg.DebounceWindow)
	}
	if cfg.Provider != ProviderReplay {
		t.Errorf("Provider = %v, want %v", cfg.Provider, ProviderReplay)
	}
	if cfg.FeedStore != FeedStoreNone {
		t.Errorf("FeedStore = %v, want %v", cfg.FeedStore, FeedStoreNone)
	}
	if cfg.Permission != "granted" {
		t.Errorf("Permission = %v, want granted", cfg.Permission)
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.APIKey = "key"
	cfg.ReplayPath = "/tmp/track.jsonl"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid replay config", mutate: func(*Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.APIKey = "" }, wantErr: "api-key"},
		{name: "relative endpoint", mutate: func(c *Config) { c.Endpoint = "services/rest" }, wantErr: "absolute"},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTPTimeout = 0 }, wantErr: "timeout"},
		{name: "negative debounce", mutate: func(c *Config) { c.DebounceWindow = -time.Second }, wantErr: "debounce"},
		{name: "zero debounce allowed", mutate: func(c *Config) { c.DebounceWindow = 0 }},
		{name: "negative cache", mutate: func(c *Config) { c.CacheSize = -1 }, wantErr: "cache"},
		{name: "bad permission", mutate: func(c *Config) { c.Permission = "maybe" }, wantErr: "permission"},
		{name: "replay without track", mutate: func(c *Config) { c.ReplayPath = "" }, wantErr: "track"},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "gps" }, wantErr: "unknown provider"},
		{
			name:    "kafka without topic",
			mutate:  func(c *Config) { c.Provider = ProviderKafka; c.KafkaBrokers = "localhost:9092" },
			wantErr: "kafka",
		},
		{
			name: "kafka complete",
			mutate: func(c *Config) {
				c.Provider = ProviderKafka
				c.KafkaBrokers = "localhost:9092"
				c.KafkaTopic = "fixes"
			},
		},
		{name: "manual needs nothing", mutate: func(c *Config) { c.Provider = ProviderManual; c.ReplayPath = "" }},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.FeedStore = FeedStoreS3; c.S3Endpoint = "localhost:9000" },
			wantErr: "s3",
		},
		{
			name: "file store without state dir or track",
			mutate: func(c *Config) {
				c.Provider = ProviderManual
				c.ReplayPath = ""
				c.FeedStore = FeedStoreFile
			},
			wantErr: "state-dir",
		},
		{name: "unknown feed store", mutate: func(c *Config) { c.FeedStore = "redis" }, wantErr: "feed store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	c1 := validConfig()
	c1.FeedStore = "FILE"
	c1.ReplayPath = "/data/tracks/walk.jsonl"
	c1.Permission = "Denied"
	c1.Endpoint = ""
	c1.FeedName = ""
	if err := c1.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c1.StateDir != "/data/tracks" {
		t.Errorf("StateDir = %v, want /data/tracks", c1.StateDir)
	}
	if c1.FeedStore != FeedStoreFile {
		t.Errorf("FeedStore = %v, want %v", c1.FeedStore, FeedStoreFile)
	}
	if c1.Permission != "denied" {
		t.Errorf("Permission = %v, want denied", c1.Permission)
	}
	if c1.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %v, want %v", c1.Endpoint, DefaultEndpoint)
	}
	if c1.FeedName != "default" {
		t.Errorf("FeedName = %v, want default", c1.FeedName)
	}

	// StateDir respects explicit override
	c2 := validConfig()
	c2.FeedStore = FeedStoreFile
	c2.StateDir = "/state"
	if err := c2.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c2.StateDir != "/state" {
		t.Errorf("StateDir = %v, want /state", c2.StateDir)
	}
}

func TestConfig_Brokers(t *testing.T) {
	c := Config{KafkaBrokers: " a:9092, ,b:9092 "}
	got := c.Brokers()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("Brokers() = %v", got)
	}
	if (&Config{}).Brokers() != nil {
		t.Error("Brokers() of empty config should be nil")
	}
}

func TestConfig_Masked(t *testing.T) {
	c := Config{APIKey: "secret", S3SecretKey: "s3secret", S3AccessKey: "access"}
	m := c.Masked()
	if m.APIKey != "*****" || m.S3SecretKey != "*****" {
		t.Errorf("Masked() = %+v", m)
	}
	if m.S3AccessKey != "access" {
		t.Errorf("S3AccessKey = %v, want access", m.S3AccessKey)
	}
	if c.APIKey != "secret" {
		t.Error("Masked() modified the receiver")
	}
}
