package testkit

import (
	"context"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisModule is the Redis instance backing the rate cache in integration tests.
type RedisModule struct {
	container *tcredis.RedisContainer
	addr      string
}

// Addr returns the host:port of the instance, the form cache.redis_addr expects.
func (r *RedisModule) Addr() string { return r.addr }

// NewClient connects a go-redis client and checks it with PING.
func (r *RedisModule) NewClient(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: r.addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", r.addr, err)
	}
	return rdb, nil
}

// Terminate stops the container. External instances are left running.
func (r *RedisModule) Terminate(ctx context.Context) error {
	if r.container == nil {
		return nil
	}
	return r.container.Terminate(ctx)
}

// StartRedis starts a Redis container, or uses cfg.RedisAddr when set.
func StartRedis(ctx context.Context, cfg *Config) (*RedisModule, error) {
	if cfg.RedisAddr != "" {
		return &RedisModule{addr: cfg.RedisAddr}, nil
	}

	ctr, err := tcredis.Run(ctx, cfg.RedisImage)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("get redis host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("get redis port: %w", err)
	}

	return &RedisModule{
		container: ctr,
		addr:      net.JoinHostPort(host, port.Port()),
	}, nil
}
