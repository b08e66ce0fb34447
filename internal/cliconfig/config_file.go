package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	APIKey      string `toml:"api_key"`
	Endpoint    string `toml:"endpoint"`
	HTTPTimeout string `toml:"http_timeout"`

	DebounceWindow string `toml:"debounce_window"`
	ResetOnRestart *bool  `toml:"reset_on_restart"`
	CacheSize      int    `toml:"cache_size"`

	Provider       string  `toml:"provider"`
	ReplayPath     string  `toml:"track"`
	Follow         *bool   `toml:"follow"`
	Permission     string  `toml:"permission"`
	DistanceFilter float64 `toml:"distance_filter"`

	Kafka struct {
		Brokers string `toml:"brokers"`
		Topic   string `toml:"topic"`
		Group   string `toml:"group"`
	} `toml:"kafka"`

	FeedStore string `toml:"feed_store"`
	StateDir  string `toml:"state_dir"`
	FeedName  string `toml:"feed_name"`

	S3 struct {
		Endpoint  string `toml:"endpoint"`
		AccessKey string `toml:"access_key"`
		SecretKey string `toml:"secret_key"`
		Bucket    string `toml:"bucket"`
		UseSSL    *bool  `toml:"use_ssl"`
		Region    string `toml:"region"`
	} `toml:"s3"`

	StatusAddr string `toml:"status_addr"`
	LogLevel   string `toml:"log_level"`
	Once       *bool  `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.geophoto/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".geophoto", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("provider", fc.Provider, &cfg.Provider)
	s.setString("track", fc.ReplayPath, &cfg.ReplayPath)
	s.setString("permission", fc.Permission, &cfg.Permission)
	s.setString("kafka-brokers", fc.Kafka.Brokers, &cfg.KafkaBrokers)
	s.setString("kafka-topic", fc.Kafka.Topic, &cfg.KafkaTopic)
	s.setString("kafka-group", fc.Kafka.Group, &cfg.KafkaGroup)
	s.setString("feed-store", fc.FeedStore, &cfg.FeedStore)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("feed-name", fc.FeedName, &cfg.FeedName)
	s.setString("s3-endpoint", fc.S3.Endpoint, &cfg.S3Endpoint)
	s.setString("s3-access-key", fc.S3.AccessKey, &cfg.S3AccessKey)
	s.setString("s3-secret-key", fc.S3.SecretKey, &cfg.S3SecretKey)
	s.setString("s3-bucket", fc.S3.Bucket, &cfg.S3Bucket)
	s.setString("s3-region", fc.S3.Region, &cfg.S3Region)
	s.setString("status-addr", fc.StatusAddr, &cfg.StatusAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("debounce", fc.DebounceWindow, &cfg.DebounceWindow); err != nil {
		return err
	}

	s.setInt("cache-size", fc.CacheSize, &cfg.CacheSize)
	s.setFloat("distance-filter", fc.DistanceFilter, &cfg.DistanceFilter)

	s.setBool("reset-on-restart", fc.ResetOnRestart, &cfg.ResetOnRestart)
	s.setBool("follow", fc.Follow, &cfg.Follow)
	s.setBool("s3-ssl", fc.S3.UseSSL, &cfg.S3UseSSL)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
