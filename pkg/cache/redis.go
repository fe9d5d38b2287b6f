package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/facility-admin-api/pkg/config"
)

const dialProbeTimeout = 5 * time.Second

// NewRedis connects to the dashboard cache and verifies it answers PING
// before handing the client out.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "facility-admin-api",
	})

	probeCtx, cancel := context.WithTimeout(ctx, dialProbeTimeout)
	defer cancel()
	if err := client.Ping(probeCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", client.Options().Addr, err)
	}
	return client, nil
}

// Checker adapts a Redis client to the readiness probe.
type Checker struct {
	Client redis.UniversalClient
}

func (c Checker) PingContext(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
