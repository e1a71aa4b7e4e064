package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyRanking = "csrank:ranking:"

// RankingCache keeps base contest rankings in redis as JSON snapshots.
// Failures are logged and reported as misses.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRankingCache(client *redis.Client, ttl time.Duration) *RankingCache {
	return &RankingCache{client: client, ttl: ttl}
}

// Connect returns nil without error when no redis address is configured.
func Connect(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func rankingKey(contestID uint) string {
	return fmt.Sprintf("%s%d", keyRanking, contestID)
}

func (c *RankingCache) Load(ctx context.Context, contestID uint) (*ranking.Ranking, bool) {
	data, err := c.client.Get(ctx, rankingKey(contestID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.S().Warnf("ranking cache read for contest %d failed: %v", contestID, err)
		}
		return nil, false
	}
	var r ranking.Ranking
	if err := json.Unmarshal(data, &r); err != nil {
		zap.S().Warnf("dropping corrupt ranking cache entry for contest %d: %v", contestID, err)
		c.Forget(ctx, contestID)
		return nil, false
	}
	return &r, true
}

func (c *RankingCache) Store(ctx context.Context, contestID uint, r *ranking.Ranking) {
	data, err := json.Marshal(r)
	if err != nil {
		zap.S().Errorf("failed to encode ranking of contest %d: %v", contestID, err)
		return
	}
	if err := c.client.Set(ctx, rankingKey(contestID), data, c.ttl).Err(); err != nil {
		zap.S().Warnf("ranking cache write for contest %d failed: %v", contestID, err)
	}
}

// Forget drops the cached ranking, e.g. after scores were recalculated.
func (c *RankingCache) Forget(ctx context.Context, contestID uint) {
	if err := c.client.Del(ctx, rankingKey(contestID)).Err(); err != nil {
		zap.S().Warnf("ranking cache delete for contest %d failed: %v", contestID, err)
	}
}
