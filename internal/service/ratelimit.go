package service

import (
	"context"
	"time"

	"bnb-faucet/internal/config"
	"bnb-faucet/internal/repository"
	"bnb-faucet/pkg/errors"
	"bnb-faucet/pkg/logger"
)

// RateLimitResult 是一次限流检查的结论
type RateLimitResult struct {
	Allowed      bool
	BlockedUntil *time.Time
	Attempts     int
}

type RateLimitService struct {
	repo        *repository.RateLimitRepository
	maxAttempts int
	window      time.Duration
	blockPeriod time.Duration
	now         func() time.Time
}

func NewRateLimitService(repo *repository.RateLimitRepository, cfg config.RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		repo:        repo,
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		blockPeriod: cfg.BlockPeriod,
		now:         utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// SetClock 替换时间来源，测试中用于模拟时间流逝
func (s *RateLimitService) SetClock(now func() time.Time) {
	s.now = now
}

// CheckRateLimit 判断该 IP 当前是否允许领取
// 封禁过期或窗口结束时会清除记录；窗口内达到次数上限时设置封禁
func (s *RateLimitService) CheckRateLimit(ctx context.Context, ip string) (*RateLimitResult, error) {
	record, err := s.repo.GetLatest(ctx, ip)
	if err != nil {
		return nil, errors.New(errors.ErrStorage, "查询限流记录失败", err)
	}
	if record == nil {
		return &RateLimitResult{Allowed: true}, nil
	}

	now := s.now()

	if record.BlockedUntil != nil {
		if record.IsBlocked(now) {
			until := *record.BlockedUntil
			return &RateLimitResult{Allowed: false, BlockedUntil: &until, Attempts: record.Attempts}, nil
		}
		if err := s.ResetRateLimit(ctx, ip); err != nil {
			return nil, err
		}
		return &RateLimitResult{Allowed: true}, nil
	}

	if now.Sub(record.LastAttempt) >= s.window {
		if err := s.ResetRateLimit(ctx, ip); err != nil {
			return nil, err
		}
		return &RateLimitResult{Allowed: true}, nil
	}

	if record.Attempts >= s.maxAttempts {
		until := now.Add(s.blockPeriod)
		if err := s.repo.Block(ctx, ip, until); err != nil {
			return nil, errors.New(errors.ErrStorage, "设置封禁失败", err)
		}

		logger.WithFields(map[string]interface{}{
			"ip":            ip,
			"attempts":      record.Attempts,
			"blocked_until": until.Format(time.RFC3339),
		}).Warn("IP blocked after too many attempts")

		return &RateLimitResult{Allowed: false, BlockedUntil: &until, Attempts: record.Attempts}, nil
	}

	return &RateLimitResult{Allowed: true, Attempts: record.Attempts}, nil
}

// RecordAttempt 记录一次领取尝试，无论后续步骤是否成功都计数
func (s *RateLimitService) RecordAttempt(ctx context.Context, ip string) error {
	if err := s.repo.RecordAttempt(ctx, ip, s.now()); err != nil {
		return errors.New(errors.ErrStorage, "记录领取尝试失败", err)
	}
	return nil
}

// ResetRateLimit 删除该 IP 的限流记录，可重复调用
func (s *RateLimitService) ResetRateLimit(ctx context.Context, ip string) error {
	if err := s.repo.Delete(ctx, ip); err != nil {
		return errors.New(errors.ErrStorage, "重置限流记录失败", err)
	}
	return nil
}

// CleanupExpired 清理已经失效的限流记录
func (s *RateLimitService) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.now(), s.window)
	if err != nil {
		return 0, errors.New(errors.ErrStorage, "清理限流记录失败", err)
	}
	return removed, nil
}
