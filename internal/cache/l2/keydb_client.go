package l2

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-feed-sync/internal/config"
	"go-feed-sync/internal/interfaces"
)

// Ensure RedisKeyDbClient implements interfaces.KeyDbClient
var _ interfaces.KeyDbClient = (*RedisKeyDbClient)(nil)

// RedisKeyDbClient adapts redis.Client to interfaces.KeyDbClient
type RedisKeyDbClient struct {
	client *redis.Client
}

// NewRedisKeyDbClient connects to keydbURL (redis://[:password@]host[:port][/db])
// and verifies the connection with a ping
func NewRedisKeyDbClient(keydbCfg *config.KeyDBConfig, keydbURL string, logger *zap.Logger) (interfaces.KeyDbClient, error) {
	opts, err := redis.ParseURL(keydbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse KeyDB URL: %w", err)
	}

	opts.DialTimeout = keydbCfg.Connection.ConnectTimeout
	opts.ReadTimeout = keydbCfg.Connection.ReadTimeout
	opts.WriteTimeout = keydbCfg.Connection.SendTimeout
	opts.PoolSize = keydbCfg.Keepalive.PoolSize
	opts.IdleTimeout = keydbCfg.Keepalive.MaxIdleTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), keydbCfg.Connection.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to KeyDB at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to KeyDB",
		zap.String("address", opts.Addr),
		zap.Int("db", opts.DB),
		zap.String("key_prefix", keydbCfg.KeyPrefix),
		zap.Int("pool_size", opts.PoolSize))

	return &RedisKeyDbClient{client: client}, nil
}

func (r *RedisKeyDbClient) Get(ctx context.Context, key string) *redis.StringCmd {
	return r.client.Get(ctx, key)
}

func (r *RedisKeyDbClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	return r.client.Set(ctx, key, value, expiration)
}

func (r *RedisKeyDbClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return r.client.Del(ctx, keys...)
}

func (r *RedisKeyDbClient) Keys(ctx context.Context, pattern string) *redis.StringSliceCmd {
	return r.client.Keys(ctx, pattern)
}

func (r *RedisKeyDbClient) Ping(ctx context.Context) *redis.StatusCmd {
	return r.client.Ping(ctx)
}

func (r *RedisKeyDbClient) Close() error {
	return r.client.Close()
}
