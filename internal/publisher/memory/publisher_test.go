package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "brand-events", map[string]string{"type": "brand.extracted"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "audit", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "brand-events", msgs[0].Topic)
	require.Equal(t, "memory-2", msgs[1].ID)
	require.Equal(t, []any{"payload"}, pub.ByTopic("audit"))

	msgs[0].Topic = "modified"
	require.Equal(t, "brand-events", pub.Messages()[0].Topic)
}

func TestPublisherHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Publish(ctx, "t", "x")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, New().Messages())
}
