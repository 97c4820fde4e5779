package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/solidstore/core/storage/notify"
)

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *notify.Publisher
	require.NotPanics(t, func() {
		p.Publish(context.Background(), notify.Event{Resource: "http://example.org/s/a.ttl", Operation: notify.OpCreated, Timestamp: time.Now()})
	})
	require.NoError(t, p.Close())
}

func TestZeroValuePublisherIsNoOp(t *testing.T) {
	p := &notify.Publisher{}
	require.NotPanics(t, func() {
		p.Publish(context.Background(), notify.Event{Resource: "http://example.org/s/a.ttl", Operation: notify.OpDeleted, Timestamp: time.Now()})
	})
	require.NoError(t, p.Close())
}

func TestNewConfiguresWriterForTopic(t *testing.T) {
	p := notify.New([]string{"localhost:9092"}, "solidstore.resource-changed")
	require.NotNil(t, p.Writer)
	require.Equal(t, "solidstore.resource-changed", p.Writer.Topic)
	require.True(t, p.Writer.Async)
}
