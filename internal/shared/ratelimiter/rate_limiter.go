// Package ratelimiter はキーごとの固定ウィンドウ方式で操作の頻度を制限します。
package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// Limiter は、ログイン試行などの操作の頻度をキー単位で制限するインターフェースです。
type Limiter interface {
	// Allow は1回分を数え、ウィンドウ内の上限以内ならtrueを返します。
	// falseの場合はウィンドウが明けるまでの時間も返します。
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	// Reset はキーのカウントを消去します。
	Reset(ctx context.Context, key string) error
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter はプロセス内で回数を数えるLimiterです。
// Redisがない単一インスタンス構成で使います。
type MemoryLimiter struct {
	limit    int           // ウィンドウあたりの上限
	interval time.Duration // どの単位でリセットするか
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter は新しいMemoryLimiterのインスタンスを生成します。
func NewMemoryLimiter(limit int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	// interval を過ぎたらカウントリセット
	if !ok || !now.Before(w.resetAt) {
		l.sweep(now)
		w = &window{resetAt: now.Add(l.interval)}
		l.windows[key] = w
	}

	w.count++
	if w.count > l.limit {
		return false, w.resetAt.Sub(now), nil
	}
	return true, 0, nil
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
	return nil
}

// sweep は期限切れのウィンドウを捨てます。呼び出し側でロックを保持していること。
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
