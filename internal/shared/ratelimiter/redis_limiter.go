package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript は最初の1回でだけ有効期限を設定し、カウントと残りTTLを返します。
var allowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return {count, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter は複数インスタンス間で回数を共有するLimiterです。
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	limit    int
	interval time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter は新しいRedisLimiterのインスタンスを生成します。
// キーにはprefixが付きます。
func NewRedisLimiter(client *redis.Client, prefix string, limit int, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, interval: interval}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := allowScript.Run(ctx, l.client, []string{l.prefix + key}, l.interval.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis limiter: allow failed: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("redis limiter: unexpected result %v", res)
	}

	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	if count > int64(l.limit) {
		if ttl < 0 {
			ttl = l.interval
		}
		return false, ttl, nil
	}
	return true, 0, nil
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis limiter: reset failed: %w", err)
	}
	return nil
}
