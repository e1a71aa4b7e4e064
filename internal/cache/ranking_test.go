package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ranking.Cache = (*RankingCache)(nil)

func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRankingKey(t *testing.T) {
	assert.Equal(t, "csrank:ranking:42", rankingKey(42))
}

func TestConnectWithoutAddress(t *testing.T) {
	client, err := Connect(context.Background(), config.Redis{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	client := unreachable()
	defer client.Close()
	c := NewRankingCache(client, time.Minute)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		c.Store(ctx, 1, &ranking.Ranking{})
		c.Forget(ctx, 1)
	})
	r, ok := c.Load(ctx, 1)
	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestConnectFailsOnUnreachableRedis(t *testing.T) {
	_, err := Connect(context.Background(), config.Redis{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
