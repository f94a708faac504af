package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"bnb-faucet/internal/database"
	"bnb-faucet/internal/models"
)

type RateLimitRepository struct {
	db *database.DB
}

func NewRateLimitRepository(db *database.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// GetLatest 返回该 IP 最近一次尝试的记录，不存在时返回 nil
func (r *RateLimitRepository) GetLatest(ctx context.Context, ip string) (*models.RateLimitRecord, error) {
	var record models.RateLimitRecord
	err := r.db.Conn().WithContext(ctx).
		Where("ip = ?", ip).
		Order("last_attempt DESC, id DESC").
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordAttempt 递增最近一条记录的尝试次数，没有记录时插入 attempts=1
func (r *RateLimitRepository) RecordAttempt(ctx context.Context, ip string, now time.Time) error {
	return r.db.Write(ctx, func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			var existing models.RateLimitRecord
			err := tx.Where("ip = ?", ip).
				Order("last_attempt DESC, id DESC").
				First(&existing).Error

			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(&models.RateLimitRecord{
					IP:          ip,
					Attempts:    1,
					LastAttempt: now,
				}).Error
			}
			if err != nil {
				return err
			}

			return tx.Model(&existing).Updates(map[string]interface{}{
				"attempts":     gorm.Expr("attempts + 1"),
				"last_attempt": now,
			}).Error
		})
	})
}

// Block 为该 IP 的所有记录设置封禁截止时间
func (r *RateLimitRepository) Block(ctx context.Context, ip string, until time.Time) error {
	return r.db.Write(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.RateLimitRecord{}).
			Where("ip = ?", ip).
			Update("blocked_until", until).Error
	})
}

// Delete 删除该 IP 的全部记录，可重复调用
func (r *RateLimitRepository) Delete(ctx context.Context, ip string) error {
	return r.db.Write(ctx, func(tx *gorm.DB) error {
		return tx.Where("ip = ?", ip).Delete(&models.RateLimitRecord{}).Error
	})
}

// DeleteExpired 清理封禁已过期或窗口已结束且未封禁的记录，返回删除条数
func (r *RateLimitRepository) DeleteExpired(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	var affected int64
	err := r.db.Write(ctx, func(tx *gorm.DB) error {
		result := tx.Where(
			"(blocked_until IS NOT NULL AND blocked_until <= ?) OR (blocked_until IS NULL AND last_attempt <= ?)",
			now, now.Add(-window),
		).Delete(&models.RateLimitRecord{})
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

func (r *RateLimitRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Conn().WithContext(ctx).
		Model(&models.RateLimitRecord{}).
		Count(&count).Error
	return count, err
}
