package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"bnb-faucet/internal/service"
	"bnb-faucet/pkg/logger"
)

const cleanupTimeout = 30 * time.Second

// CleanupScheduler 定期清理已失效的限流记录
type CleanupScheduler struct {
	cron     *cron.Cron
	limiter  *service.RateLimitService
	cronExpr string
}

func NewCleanupScheduler(limiter *service.RateLimitService, cronExpr string) *CleanupScheduler {
	if cronExpr == "" {
		cronExpr = "0 */10 * * * *"
	}
	return &CleanupScheduler{
		cron:     cron.New(cron.WithSeconds()),
		limiter:  limiter,
		cronExpr: cronExpr,
	}
}

func (s *CleanupScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, s.cleanup)
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.WithFields(map[string]interface{}{
		"cron": s.cronExpr,
	}).Info("Rate limit cleanup scheduler started")
	return nil
}

func (s *CleanupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Rate limit cleanup scheduler stopped")
}

func (s *CleanupScheduler) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		logger.Error("Failed to clean up rate limit records:", err)
	}
}

// RunOnce 立即执行一次清理
func (s *CleanupScheduler) RunOnce(ctx context.Context) (int64, error) {
	removed, err := s.limiter.CleanupExpired(ctx)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		logger.WithFields(map[string]interface{}{
			"removed": removed,
		}).Info("Expired rate limit records removed")
	}
	return removed, nil
}
