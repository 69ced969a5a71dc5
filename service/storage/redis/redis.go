package redis

import (
	"context"
	"time"

	"GymChat/config"
	"GymChat/tools/errs"

	"github.com/redis/go-redis/v9"
)

// NewClient 建连并 ping 一次；失败时关闭连接
func NewClient(ctx context.Context, c config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.WrapMsg(err, "redis ping", "addr", c.Addr)
	}
	return rdb, nil
}
