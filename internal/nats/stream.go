package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/pkg/logger"
	"github.com/chat-analyzer/gateway/pkg/metrics"
)

const (
	// StreamName is the name of the store event stream.
	StreamName = "ANALYZER"

	// SubjectPrefix is the prefix for all store event subjects.
	SubjectPrefix = "analyzer"

	publishTimeout = 2 * time.Second
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// StreamConfig returns the configuration of the store event stream.
func StreamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Chat analyzer store change events",
	}
}

// EnsureStream ensures the store event stream exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	if _, err := js.CreateStream(ctx, StreamConfig()); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a store event.
func EventSubject(store string, action model.StoreAction) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, store, action)
}

// StoreFilter returns the filter subject for all events of one store.
func StoreFilter(store string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, store)
}

// Events replays stored events after a stream sequence. An empty store
// replays every store.
func (m *StreamManager) Events(ctx context.Context, store string, afterSequence uint64, limit int) ([]model.StoreEvent, uint64, error) {
	filter := fmt.Sprintf("%s.>", SubjectPrefix)
	if store != "" {
		filter = StoreFilter(store)
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: filter,
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := m.client.JetStream().CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch events: %w", err)
	}

	var events []model.StoreEvent
	lastSequence := afterSequence
	for msg := range batch.Messages() {
		var event model.StoreEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			lastSequence = meta.Sequence.Stream
		}
		events = append(events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, 0, fmt.Errorf("batch error: %w", err)
	}

	return events, lastSequence, nil
}

// Publisher is the subset of JetStream used to publish events.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventNotifier publishes store events to JetStream. Failures are logged and
// never reach the store.
type EventNotifier struct {
	js     Publisher
	logger *logger.Logger
}

// NewEventNotifier creates a notifier publishing through js.
func NewEventNotifier(js Publisher, log *logger.Logger) *EventNotifier {
	return &EventNotifier{js: js, logger: logger.OrGlobal(log).Named("events")}
}

// Notify implements store.Notifier.
func (n *EventNotifier) Notify(ctx context.Context, event model.StoreEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal store event", zap.Error(err))
		return
	}

	// Publishing outlives a cancelled request so a completed mutation is
	// still reported.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	subject := EventSubject(event.Store, event.Action)
	if _, err := n.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(event.ID)); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(event.Store, "error").Inc()
		n.logger.Warn("Failed to publish store event",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(event.Store, "ok").Inc()
}
