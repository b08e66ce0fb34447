package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/geophoto/internal/cliconfig"
	"github.com/bft-labs/geophoto/pkg/geophoto"
	"github.com/bft-labs/geophoto/pkg/log"
	"github.com/bft-labs/geophoto/plugins/configwatcher"
	"github.com/bft-labs/geophoto/plugins/statusapi"
)

const helpBanner = `
  ____ _____ ___  ____  _   _  ___ _____ ___
 / ___| ____/ _ \|  _ \| | | |/ _ \_   _/ _ \
| |  _|  _|| | | | |_) | |_| | | | || || | | |
| |_| | |__| |_| |  __/|  _  | |_| || || |_| |
 \____|_____\___/|_|   |_| |_|\___/ |_| \___/
`

const helpDescription = `
Follow a location track and collect one Flickr photo for every place you pass.

Highlights:
  - Debounces position fixes so a burst of updates costs a single lookup.
  - Replays a JSON Lines track, consumes fixes from Kafka, or takes them over HTTP.
  - Keeps the photo feed on disk or in an S3 bucket across restarts.
  - Serves the current view and a live WebSocket stream with --status-addr.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  geophoto --api-key <flickr-key> --track ./walk.jsonl --once
  geophoto --provider manual --status-addr 127.0.0.1:8090 --feed-store file --state-dir ~/.geophoto
  geophoto --config $HOME/.geophoto/config.toml --provider kafka --kafka-brokers localhost:9092 --kafka-topic fixes
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return geophoto.Version
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "geophoto",
		Short:         "Collect a Flickr photo for every place along a location track",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			cfgFile, err := loadConfig(&cfg, cfgPath, changed)
			if err != nil {
				return err
			}

			// The adapter passes everything; the global level filters so the
			// config watcher can change it at runtime.
			logger := log.NewConsoleAdapter(os.Stderr, "debug")
			log.SetGlobalLevel(cfg.LogLevel)
			logger.Info("configuration", log.Any("config", cfg.Masked()))

			return run(cmd.Context(), cfg, cfgFile, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.geophoto/config.toml)")
	root.Flags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Flickr API key")
	root.Flags().StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Flickr REST endpoint")
	if err := root.Flags().MarkHidden("endpoint"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to hide endpoint flag:", err)
	}
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for lookups")
	root.Flags().DurationVar(&cfg.DebounceWindow, "debounce", cfg.DebounceWindow, "quiet period before a position is looked up")
	root.Flags().BoolVar(&cfg.ResetOnRestart, "reset-on-restart", cfg.ResetOnRestart, "clear collected photos when a session starts")
	root.Flags().IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "lookup cache entries (0 disables)")

	root.Flags().StringVar(&cfg.Provider, "provider", cfg.Provider, "location provider: replay, kafka or manual")
	root.Flags().StringVar(&cfg.ReplayPath, "track", cfg.ReplayPath, "JSON Lines track file for the replay provider")
	root.Flags().BoolVar(&cfg.Follow, "follow", cfg.Follow, "keep reading the track file as it grows")
	root.Flags().StringVar(&cfg.Permission, "permission", cfg.Permission, "authorization status the provider reports: granted, denied or undetermined")
	root.Flags().Float64Var(&cfg.DistanceFilter, "distance-filter", cfg.DistanceFilter, "minimum metres between delivered fixes (0 uses the default)")
	root.Flags().StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "comma-separated Kafka brokers")
	root.Flags().StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic carrying fixes")
	root.Flags().StringVar(&cfg.KafkaGroup, "kafka-group", cfg.KafkaGroup, "Kafka consumer group")

	root.Flags().StringVar(&cfg.FeedStore, "feed-store", cfg.FeedStore, "where the photo feed is kept: none, file or s3")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for the file feed store (defaults to the track's directory)")
	root.Flags().StringVar(&cfg.FeedName, "feed-name", cfg.FeedName, "feed object name for the s3 store")
	root.Flags().StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3 endpoint host[:port]")
	root.Flags().StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "S3 access key")
	root.Flags().StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "S3 secret key")
	root.Flags().StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket")
	root.Flags().StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	root.Flags().BoolVar(&cfg.S3UseSSL, "s3-ssl", cfg.S3UseSSL, "use TLS for S3")

	root.Flags().StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "serve the status API on this address")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "exit when the replay track is exhausted")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "geophoto:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig layers .env, the config file and GEOPHOTO_* variables under
// the flags already parsed into cfg. It returns the config file path when
// one was read.
func loadConfig(cfg *cliconfig.Config, cfgPath string, changed map[string]bool) (string, error) {
	if err := cliconfig.LoadDotEnv(); err != nil {
		return "", fmt.Errorf("load .env: %w", err)
	}

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfgFile, nil
}

// run wires the service from cfg and blocks until ctx is done, the replay
// track is exhausted in once mode, or the service crashes.
func run(ctx context.Context, cfg cliconfig.Config, cfgFile string, logger *log.ZerologAdapter) error {
	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("close provider", log.Err(err))
		}
	}()

	events := newViewLogger(logger)
	opts := []geophoto.Option{
		geophoto.WithLogger(logger),
		geophoto.WithLocationProvider(provider.provider),
		geophoto.WithEventHandler(events),
	}

	repo, err := newFeedRepository(cfg, logger)
	if err != nil {
		return err
	}
	if repo != nil {
		opts = append(opts, geophoto.WithFeedRepository(repo))
	}
	if cfg.StatusAddr != "" {
		opts = append(opts, statusapi.WithStatusAPI(statusapi.Config{Addr: cfg.StatusAddr}))
	}
	if cfgFile != "" {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
			Path:     cfgFile,
			OnChange: levelReloader(logger),
		}))
	}

	svc, err := geophoto.New(geophoto.Config{
		APIKey:         cfg.APIKey,
		Endpoint:       cfg.Endpoint,
		HTTPTimeout:    cfg.HTTPTimeout,
		DebounceWindow: cfg.DebounceWindow,
		ResetOnRestart: cfg.ResetOnRestart,
		CacheSize:      cfg.CacheSize,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create geophoto: %w", err)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start geophoto: %w", err)
	}
	if err := svc.Controller().Start(); err != nil {
		// Stay up while denied; a permission change can still recover.
		logger.Warn("tracking not started", log.Err(err))
	}

	select {
	case <-ctx.Done():
		logger.Info("received signal, stopping...")
	case <-provider.done(cfg.Once):
		logger.Info("track exhausted, waiting for the last lookup")
		events.settle(ctx, cfg.DebounceWindow+100*time.Millisecond, cfg.DebounceWindow+cfg.HTTPTimeout)
	case <-crashed(ctx, svc):
		return fmt.Errorf("geophoto crashed: %w", svc.LastError())
	}

	feed := svc.Controller().Feed()
	if err := svc.Stop(); err != nil {
		return fmt.Errorf("stop geophoto: %w", err)
	}
	logger.Info("stopped", log.Int("photos", len(feed.Photos)))
	return nil
}
