package database

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy 对写操作进行有限次数的重试，每次重试前等待带随机抖动的短暂延迟
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Retryable 判断错误是否值得重试，为空时不重试
	Retryable func(error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		Retryable:   IsBusy,
	}
}

// Do 执行 fn，直到成功、遇到不可重试的错误、超过次数上限或 ctx 结束
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) || i == attempts-1 {
			return err
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.delay()):
		}
	}
	return err
}

func (p RetryPolicy) delay() time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay + rand.N(p.BaseDelay)
}
