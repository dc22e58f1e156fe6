package nats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-analyzer/gateway/pkg/logger"
)

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{}, logger.Nop())
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestConnectUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Connect(ctx, Config{URL: "nats://127.0.0.1:1"}, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestConnectOptions(t *testing.T) {
	base := connectOptions(context.Background(), Config{URL: "nats://x"}, logger.Nop())
	secured := connectOptions(context.Background(), Config{
		URL:      "nats://x",
		CAFile:   "ca.pem",
		CertFile: "cert.pem",
		KeyFile:  "key.pem",
		Token:    "t",
	}, logger.Nop())
	assert.Len(t, secured, len(base)+3)

	caOnly := connectOptions(context.Background(), Config{URL: "nats://x", CAFile: "ca.pem"}, logger.Nop())
	assert.Len(t, caOnly, len(base)+1)
}
