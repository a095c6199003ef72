// Package backoff 实现指数退避与重试。
// 用于信号落库时的建连重试。
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Backoff 指数退避计算器
// 每次调用 Next() 返回下一次重试的等待时间，按指数增长直到上限
type Backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64
	// attempt 当前重试次数
	attempt int
}

// New 创建退避计算器
// 参数 base: 基础等待时间
// 参数 max: 最大等待时间
// 参数 jitter: 抖动比例（0-1），0.2 表示 ±20%
func New(base, max time.Duration, jitter float64) *Backoff {
	return &Backoff{base: base, max: max, jitter: jitter}
}

// NewDefault 落库重试的默认配置：200ms 起步，最多 5s，抖动 ±20%
func NewDefault() *Backoff {
	return New(200*time.Millisecond, 5*time.Second, 0.2)
}

// Next 获取下次重试的等待时间
// base * 2^attempt，截断到 max 后再应用抖动
func (b *Backoff) Next() time.Duration {
	delay := b.max
	// 位移超过 30 次后必然超过上限，避免溢出
	if b.attempt < 31 {
		if d := b.base * time.Duration(int64(1)<<b.attempt); d > 0 && d < b.max {
			delay = d
		}
	}

	if b.jitter > 0 {
		factor := 1.0 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * factor)
	}

	b.attempt++
	return delay
}

// Reset 重置重试次数
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt 当前重试次数
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Retry 执行 fn 直至成功、用尽次数或 ctx 结束
// 参数 attempts: 最多执行次数（<=0 按 1 处理）
// 返回: 最后一次的错误；ctx 结束时返回 ctx.Err()
func Retry(ctx context.Context, b *Backoff, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(b.Next())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
