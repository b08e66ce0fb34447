package cliconfig

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the Flickr REST endpoint used for photo lookups.
const DefaultEndpoint = "https://www.flickr.com/services/rest/"

// Location providers.
const (
	ProviderReplay = "replay"
	ProviderKafka  = "kafka"
	ProviderManual = "manual"
)

// Feed stores.
const (
	FeedStoreNone = "none"
	FeedStoreFile = "file"
	FeedStoreS3   = "s3"
)

// Config holds CLI configuration for geophoto.
type Config struct {
	APIKey      string
	Endpoint    string
	HTTPTimeout time.Duration

	DebounceWindow time.Duration
	ResetOnRestart bool
	CacheSize      int

	Provider       string
	ReplayPath     string
	Follow         bool
	Permission     string
	DistanceFilter float64

	KafkaBrokers string
	KafkaTopic   string
	KafkaGroup   string

	FeedStore   string
	StateDir    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3Region    string
	FeedName    string

	StatusAddr string
	LogLevel   string
	Once       bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Endpoint:       DefaultEndpoint,
		HTTPTimeout:    15 * time.Second,
		DebounceWindow: time.Second,
		CacheSize:      256,
		Provider:       ProviderReplay,
		Permission:     "granted",
		KafkaGroup:     "geophoto",
		FeedStore:      FeedStoreNone,
		S3UseSSL:       true,
		FeedName:       "default",
		LogLevel:       "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api-key is required")
	}

	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint %q must be an absolute URL", c.Endpoint)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative")
	}
	if c.DistanceFilter < 0 {
		return fmt.Errorf("distance filter must not be negative")
	}

	switch strings.ToLower(c.Permission) {
	case "granted", "denied", "undetermined":
		c.Permission = strings.ToLower(c.Permission)
	default:
		return fmt.Errorf("permission %q must be granted, denied or undetermined", c.Permission)
	}

	c.Provider = strings.ToLower(c.Provider)
	switch c.Provider {
	case ProviderReplay:
		if c.ReplayPath == "" {
			return fmt.Errorf("replay provider requires track")
		}
	case ProviderKafka:
		if len(c.Brokers()) == 0 || c.KafkaTopic == "" {
			return fmt.Errorf("kafka provider requires kafka-brokers and kafka-topic")
		}
	case ProviderManual:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if c.FeedStore == "" {
		c.FeedStore = FeedStoreNone
	}
	c.FeedStore = strings.ToLower(c.FeedStore)
	switch c.FeedStore {
	case FeedStoreNone:
	case FeedStoreFile:
		if c.StateDir == "" {
			if c.ReplayPath == "" {
				return fmt.Errorf("file feed store requires state-dir")
			}
			// fall back next to the track file
			c.StateDir = filepath.Dir(c.ReplayPath)
		}
	case FeedStoreS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return fmt.Errorf("s3 feed store requires s3-endpoint and s3-bucket")
		}
	default:
		return fmt.Errorf("unknown feed store %q", c.FeedStore)
	}

	if c.FeedName == "" {
		c.FeedName = "default"
	}

	return nil
}

// Brokers splits KafkaBrokers on commas.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Masked returns a copy with secrets replaced, for logging.
func (c Config) Masked() Config {
	if c.APIKey != "" {
		c.APIKey = "*****"
	}
	if c.S3SecretKey != "" {
		c.S3SecretKey = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
