package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	redisclient "github.com/setuhealth/setu/backend/internal/infrastructure/clients/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableAdapter points at a closed port so every command fails fast
func unreachableAdapter() providers.CacheProvider {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	return NewRedisAdapter(redisclient.Wrap(client))
}

func TestRedisAdapter_ErrorsAreWrapped(t *testing.T) {
	adapter := unreachableAdapter()
	ctx := context.Background()

	_, err := adapter.Get(ctx, "hospitals:list:all")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)
	assert.Contains(t, err.Error(), "failed to get from cache")

	err = adapter.Set(ctx, "k", []byte("v"), 60)
	assert.ErrorContains(t, err, "failed to set in cache")
}

func TestRedisAdapter_DeleteWithoutKeysIsNoop(t *testing.T) {
	adapter := unreachableAdapter()
	assert.NoError(t, adapter.Delete(context.Background()))
}
