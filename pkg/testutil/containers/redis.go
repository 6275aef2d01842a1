//go:build integration

// Package containers starts throwaway infrastructure for integration tests.
package containers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"teamhub/internal/platform/config"
	platformredis "teamhub/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// Redis is a running container plus a client connected through the same
// constructor the CLI uses.
type Redis struct {
	Container testcontainers.Container
	URL       string
	Client    *platformredis.Client
}

// StartRedis runs a Redis container for the lifetime of t.
func StartRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err, "redis connection string")

	client, err := platformredis.New(ctx, config.DefaultRedisConfig(url))
	require.NoError(t, err, "connect to redis container")
	t.Cleanup(func() { _ = client.Close() })

	return &Redis{Container: container, URL: url, Client: client}
}

// Flush empties the database between tests.
func (r *Redis) Flush(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
