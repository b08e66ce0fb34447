// Package s3 persists the photo feed in an S3-compatible object store.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// Config holds the object store connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string

	// Name selects the object feeds/<name>.json.
	Name string
}

// errNoSuchKey is returned by objectStore.get for a missing object.
var errNoSuchKey = errors.New("no such key")

// objectStore is the subset of bucket operations the feed store needs.
type objectStore interface {
	ensureBucket(ctx context.Context) error
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, data []byte) error
}

// FeedStore implements ports.FeedRepository on an object store.
// The bucket is created on first use when missing.
type FeedStore struct {
	store  objectStore
	key    string
	logger ports.Logger

	once      sync.Once
	bucketErr error
}

// NewFeedStore connects to the object store described by cfg.
func NewFeedStore(cfg Config, logger ports.Logger) (*FeedStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 endpoint and bucket are required", domain.ErrInvalidConfig)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	logger.Info("s3 feed store configured",
		ports.String("endpoint", cfg.Endpoint),
		ports.String("bucket", cfg.Bucket),
	)
	return newFeedStore(&minioStore{client: client, bucket: cfg.Bucket, region: cfg.Region}, cfg.Name, logger), nil
}

func newFeedStore(store objectStore, name string, logger ports.Logger) *FeedStore {
	return &FeedStore{store: store, key: objectKey(name), logger: logger}
}

// Load retrieves the last saved feed.
// Returns an empty feed and nil error if the object does not exist.
func (s *FeedStore) Load(ctx context.Context) (domain.Feed, error) {
	if err := s.bucket(ctx); err != nil {
		return domain.Feed{}, err
	}
	data, err := s.store.get(ctx, s.key)
	if err != nil {
		if errors.Is(err, errNoSuchKey) {
			return domain.Feed{}, nil
		}
		return domain.Feed{}, fmt.Errorf("get %s: %w", s.key, err)
	}

	var feed domain.Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return domain.Feed{}, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return feed.Normalized(), nil
}

// Save replaces the stored feed.
func (s *FeedStore) Save(ctx context.Context, feed domain.Feed) error {
	if err := s.bucket(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(feed)
	if err != nil {
		return err
	}
	if err := s.store.put(ctx, s.key, data); err != nil {
		return fmt.Errorf("put %s: %w", s.key, err)
	}
	s.logger.Debug("feed stored", ports.String("key", s.key), ports.Int("photos", len(feed.Photos)))
	return nil
}

// Key returns the object key of the feed.
func (s *FeedStore) Key() string { return s.key }

func (s *FeedStore) bucket(ctx context.Context) error {
	s.once.Do(func() {
		s.bucketErr = s.store.ensureBucket(ctx)
	})
	return s.bucketErr
}

// objectKey builds feeds/<name>.json with a lower-case, hyphenated name.
func objectKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "/", "-")
	if name == "" {
		name = "default"
	}
	return "feeds/" + name + ".json"
}

// minioStore implements objectStore with minio-go.
type minioStore struct {
	client *minio.Client
	bucket string
	region string
}

func (m *minioStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *minioStore) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (m *minioStore) put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	return err
}

func translate(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errNoSuchKey
	}
	return err
}

var _ ports.FeedRepository = (*FeedStore)(nil)
