package database

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// NewRedis connects to redis and checks that the server answers.
func NewRedis(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis %s", addr)
	}
	return rdb, nil
}

// NewMemcached builds a memcached client for one or more servers.
func NewMemcached(servers ...string) *memcache.Client {
	mc := memcache.New(servers...)
	mc.Timeout = 200 * time.Millisecond
	return mc
}
