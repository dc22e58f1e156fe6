package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

type fakePublisher struct {
	subject string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.subject = subject
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: StreamName, Sequence: 1}, nil
}

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "analyzer.agents.removed", EventSubject("agents", model.ActionRemoved))
	assert.Equal(t, "analyzer.messages.>", StoreFilter("messages"))
}

func TestStreamConfig(t *testing.T) {
	cfg := StreamConfig()
	assert.Equal(t, []string{"analyzer.>"}, cfg.Subjects)
	assert.Equal(t, 7*24*time.Hour, cfg.MaxAge)
	assert.Equal(t, jetstream.FileStorage, cfg.Storage)
	assert.Equal(t, jetstream.LimitsPolicy, cfg.Retention)
}

func TestNotifierPublishes(t *testing.T) {
	pub := &fakePublisher{}
	n := NewEventNotifier(pub, logger.Nop())
	event := model.StoreEvent{ID: "e1", Store: "conversations", Action: model.ActionReplaced, Key: "a1", Count: 3}

	n.Notify(context.Background(), event)

	assert.Equal(t, "analyzer.conversations.replaced", pub.subject)
	var got model.StoreEvent
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, event.Key, got.Key)
	assert.Equal(t, 3, got.Count)
}

func TestNotifierSwallowsErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	n := NewEventNotifier(pub, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() {
		n.Notify(ctx, model.StoreEvent{Store: "agents", Action: model.ActionCleared})
	})
	assert.Equal(t, "analyzer.agents.cleared", pub.subject)
}
