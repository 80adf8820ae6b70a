package config

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var rdb *redis.Client

// ConnectRedis sets up the lock client. An empty addr or a failed ping
// leaves locking disabled; reconciliation still works through row versions.
func ConnectRedis(ctx context.Context, addr string) *redislock.Client {
	if addr == "" {
		logg.Info("REDIS_ADDR not set; property locks disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 20})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		LogError(logg, "config", "ConnectRedis", "ping failed; property locks disabled", addr, err)
		_ = client.Close()
		return nil
	}

	rdb = client
	logg.WithField("addr", addr).Info("connected to redis")
	return redislock.New(rdb)
}

func CloseRedis() {
	if rdb != nil {
		_ = rdb.Close()
	}
}
