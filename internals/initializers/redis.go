package initializers

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efeozell/SocialMedia-API/internals/config"
)

// ConnectRedis connects to the token cache using REDIS_URL and verifies
// the connection with a ping.
func ConnectRedis(ctx context.Context) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.GetEnvAsStr("REDIS_URL", "redis://localhost:6379/0"))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
