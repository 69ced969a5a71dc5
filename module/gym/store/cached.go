package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"GymChat/logger"
	"GymChat/module/gym/model"

	"github.com/redis/go-redis/v9"
)

const (
	gymCacheKeyPrefix = "gymchat:gym:"
	missMarker        = "-"
)

// CachedDirectory 在 Redis 里缓存名字 -> GymRef，未命中也缓存（较短 TTL）
// Redis 出错时直接回源，不影响发消息
type CachedDirectory struct {
	next    Directory
	rdb     redis.Cmdable
	ttl     time.Duration
	missTTL time.Duration
}

func NewCachedDirectory(next Directory, rdb redis.Cmdable, ttl time.Duration) *CachedDirectory {
	miss := ttl / 10
	if miss < time.Second {
		miss = time.Second
	}
	return &CachedDirectory{next: next, rdb: rdb, ttl: ttl, missTTL: miss}
}

func gymCacheKey(name string) string { return gymCacheKeyPrefix + name }

func (d *CachedDirectory) LookupByName(ctx context.Context, name string) (*model.GymRef, error) {
	key := gymCacheKey(name)
	val, err := d.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if val == missMarker {
			return nil, nil
		}
		var ref model.GymRef
		if jerr := json.Unmarshal([]byte(val), &ref); jerr == nil {
			return &ref, nil
		}
		logger.Warnf("gym cache: bad value for %q, refetch", name)
	case !errors.Is(err, redis.Nil):
		logger.Warnf("gym cache get %q: %v", name, err)
	}

	ref, err := d.next.LookupByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if ref == nil {
		err = d.rdb.Set(ctx, key, missMarker, d.missTTL).Err()
	} else {
		b, _ := json.Marshal(ref)
		err = d.rdb.Set(ctx, key, b, d.ttl).Err()
	}
	if err != nil {
		logger.Warnf("gym cache set %q: %v", name, err)
	}
	return ref, nil
}

// Invalidate 改名后旧名字的缓存要清掉
func (d *CachedDirectory) Invalidate(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, gymCacheKey(n))
	}
	return d.rdb.Del(ctx, keys...).Err()
}
