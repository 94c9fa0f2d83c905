package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/pans/config"
)

// NewRedisClient connects to the configured Redis. It returns nil when
// caching is disabled or the server does not answer a ping, and callers then
// run without a cache.
func NewRedisClient(cfg config.AppConfig) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		if Sugar != nil {
			Sugar.Warnf("redis unavailable at %s, running without cache: %v", rc.Options().Addr, err)
		}
		_ = rc.Close()
		return nil
	}
	return rc
}
