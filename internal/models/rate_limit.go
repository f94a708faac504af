package models

import (
	"time"
)

// RateLimitRecord 按 IP 统计的领取尝试次数
type RateLimitRecord struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	IP           string     `gorm:"size:64;not null;index:idx_rate_ip_last" json:"ip"`
	Attempts     int        `gorm:"not null;default:1" json:"attempts"`
	LastAttempt  time.Time  `gorm:"not null;index:idx_rate_ip_last" json:"lastAttempt"`
	BlockedUntil *time.Time `gorm:"index" json:"blockedUntil,omitempty"`
}

func (RateLimitRecord) TableName() string {
	return "rate_limits"
}

// IsBlocked 判断在 now 时刻是否仍处于封禁期
func (r *RateLimitRecord) IsBlocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}
