package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Manager 分布式锁接口
// Acquire 返回的 token 用于释放时校验持有权，防止误删他人持有的锁
type Manager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Lua 脚本：只有持有者（token 匹配）才能删除锁
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

type redisLock struct {
	rdb *redis.Client
}

// NewRedisLock 创建基于 Redis 的锁管理器
func NewRedisLock(rdb *redis.Client) Manager {
	return &redisLock{rdb: rdb}
}

// Acquire SET NX PX 抢锁，ok=false 表示锁已被其他请求持有
func (l *redisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release 释放锁。锁已过期或被其他持有者占用时静默返回，
// 过期场景下锁的陈旧性由 TTL 兜底
func (l *redisLock) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
}
