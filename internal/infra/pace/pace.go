package pace

import (
	"context"
	"time"
)

// Limiter 是固定间隔限速器：每次出站请求之后等待一个固定 delay。
//
// 约束：
// - 这是刻意的固定节奏（保护第三方源站），不是自适应退避
// - 成功/失败都要等（失败的请求同样消耗了对方资源）
// - Wait 对 ctx 敏感：取消时立即返回（不破坏“请求间隔 >= delay”的性质）
type Limiter struct {
	delay time.Duration

	// sleep 可替换，便于测试不真等。
	sleep func(ctx context.Context, d time.Duration) error
}

func New(delay time.Duration) *Limiter {
	if delay < 0 {
		delay = 0
	}
	return &Limiter{delay: delay, sleep: sleepCtx}
}

// Wait 在一次请求完成后调用，阻塞一个固定 delay。
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.delay == 0 {
		return nil
	}
	return l.sleep(ctx, l.delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
