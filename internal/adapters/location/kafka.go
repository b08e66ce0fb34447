package location

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// KafkaReader is the subset of *kafka.Reader the provider uses.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig configures a Kafka provider.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string

	// Status is the authorization status reported by the provider.
	Status domain.PermissionStatus

	Options ports.TrackingOptions
}

// NewKafkaReader creates a consumer-group reader for cfg.
func NewKafkaReader(cfg KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
		// Fixes are small and latency matters more than batching.
		MinBytes: 1,
		MaxBytes: 1e6,
		MaxWait:  500 * time.Millisecond,
	})
}

// Kafka consumes fix events from a topic while tracking is on.
// Message values use the track file format.
type Kafka struct {
	cfg    KafkaConfig
	reader KafkaReader
	slot   *observerSlot
	logger ports.Logger

	mu     sync.Mutex
	status domain.PermissionStatus
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// consumeMu serializes consume loops across Stop/Start cycles.
	consumeMu sync.Mutex
}

// NewKafka creates a Kafka provider reading from reader.
func NewKafka(cfg KafkaConfig, reader KafkaReader, logger ports.Logger) *Kafka {
	return &Kafka{
		cfg:    cfg,
		reader: reader,
		slot:   newObserverSlot(cfg.Options),
		logger: logger,
		status: cfg.Status,
	}
}

// SetObserver implements ports.LocationProvider.
func (k *Kafka) SetObserver(o ports.LocationObserver) { k.slot.set(o) }

// AuthorizationStatus implements ports.LocationProvider.
func (k *Kafka) AuthorizationStatus() domain.PermissionStatus {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.status
}

// RequestAuthorization reports the current status to the observer unless
// it is still undetermined.
func (k *Kafka) RequestAuthorization() {
	k.slot.authorization(k.AuthorizationStatus())
}

// StartTracking starts the consume loop. It never blocks.
func (k *Kafka) StartTracking() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel
	k.slot.gate.reset()

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		k.consume(ctx)
	}()
}

// StopTracking cancels the consume loop without waiting for it.
func (k *Kafka) StopTracking() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cancel != nil {
		k.cancel()
		k.cancel = nil
	}
}

// Close stops consuming and closes the reader.
func (k *Kafka) Close() error {
	k.StopTracking()
	k.wg.Wait()
	return k.reader.Close()
}

func (k *Kafka) consume(ctx context.Context) {
	k.consumeMu.Lock()
	defer k.consumeMu.Unlock()

	k.logger.Info("kafka consumer started",
		ports.String("topic", k.cfg.Topic),
		ports.String("group", k.cfg.GroupID),
	)
	defer k.logger.Info("kafka consumer stopped", ports.String("topic", k.cfg.Topic))

	b := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				// io.EOF means the reader was closed.
				return
			}
			k.logger.Error("kafka read failed", ports.Err(err))
			if !b.wait(ctx) {
				return
			}
			continue
		}
		b.reset()

		ev, err := decodeEvent(msg.Value)
		if err != nil {
			k.logger.Warn("kafka: skipping malformed message",
				ports.Int("partition", msg.Partition),
				ports.Int64("offset", msg.Offset),
				ports.Err(err),
			)
			continue
		}
		if ev.wait > 0 && !sleepCtx(ctx, ev.wait) {
			return
		}

		k.slot.apply(ev, k.setStatus)
	}
}

func (k *Kafka) setStatus(status domain.PermissionStatus) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.status = status
}

var _ ports.LocationProvider = (*Kafka)(nil)
