package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "not-a-redis-url", "", time.Minute, nil)
	require.Error(t, err)
}

func TestKeyUsesPrefix(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()

	require.Equal(t, "brandprobe:site:acme.test", NewWithClient(client, "", 0, nil).key("acme.test"))
	require.Equal(t, "x:https://acme.test", NewWithClient(client, "x:", 0, nil).key("https://acme.test"))
}
