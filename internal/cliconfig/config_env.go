package cliconfig

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable geophoto reads.
const EnvPrefix = "GEOPHOTO_"

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies configuration from environment variables (GEOPHOTO_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("api-key", getenv("API_KEY"), &cfg.APIKey)
	s.setString("endpoint", getenv("ENDPOINT"), &cfg.Endpoint)
	s.setString("provider", getenv("PROVIDER"), &cfg.Provider)
	s.setString("track", getenv("TRACK"), &cfg.ReplayPath)
	s.setString("permission", getenv("PERMISSION"), &cfg.Permission)
	s.setString("kafka-brokers", getenv("KAFKA_BROKERS"), &cfg.KafkaBrokers)
	s.setString("kafka-topic", getenv("KAFKA_TOPIC"), &cfg.KafkaTopic)
	s.setString("kafka-group", getenv("KAFKA_GROUP"), &cfg.KafkaGroup)
	s.setString("feed-store", getenv("FEED_STORE"), &cfg.FeedStore)
	s.setString("state-dir", getenv("STATE_DIR"), &cfg.StateDir)
	s.setString("feed-name", getenv("FEED_NAME"), &cfg.FeedName)
	s.setString("s3-endpoint", getenv("S3_ENDPOINT"), &cfg.S3Endpoint)
	s.setString("s3-access-key", getenv("S3_ACCESS_KEY"), &cfg.S3AccessKey)
	s.setString("s3-secret-key", getenv("S3_SECRET_KEY"), &cfg.S3SecretKey)
	s.setString("s3-bucket", getenv("S3_BUCKET"), &cfg.S3Bucket)
	s.setString("s3-region", getenv("S3_REGION"), &cfg.S3Region)
	s.setString("status-addr", getenv("STATUS_ADDR"), &cfg.StatusAddr)
	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("timeout", getenv("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("debounce", getenv("DEBOUNCE_WINDOW"), &cfg.DebounceWindow); err != nil {
		return err
	}

	if err := s.setIntFromString("cache-size", getenv("CACHE_SIZE"), &cfg.CacheSize); err != nil {
		return err
	}
	if err := s.setFloatFromString("distance-filter", getenv("DISTANCE_FILTER"), &cfg.DistanceFilter); err != nil {
		return err
	}

	s.setBoolFromString("reset-on-restart", getenv("RESET_ON_RESTART"), &cfg.ResetOnRestart)
	s.setBoolFromString("follow", getenv("FOLLOW"), &cfg.Follow)
	s.setBoolFromString("s3-ssl", getenv("S3_USE_SSL"), &cfg.S3UseSSL)
	s.setBoolFromString("once", getenv("ONCE"), &cfg.Once)

	return nil
}
