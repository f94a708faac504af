package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"bnb-faucet/internal/database"
	"bnb-faucet/internal/models"
)

type ClaimRepository struct {
	db *database.DB
}

func NewClaimRepository(db *database.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func walletKey(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

// ExistsByIP 按 IP 精确匹配（区分大小写）
func (r *ClaimRepository) ExistsByIP(ctx context.Context, ip string) (bool, error) {
	var count int64
	err := r.db.Conn().WithContext(ctx).
		Model(&models.Claim{}).
		Where("ip = ?", ip).
		Count(&count).Error
	return count > 0, err
}

// ExistsByWallet 按钱包地址匹配（不区分大小写）
func (r *ClaimRepository) ExistsByWallet(ctx context.Context, wallet string) (bool, error) {
	var count int64
	err := r.db.Conn().WithContext(ctx).
		Model(&models.Claim{}).
		Where("wallet_key = ?", walletKey(wallet)).
		Count(&count).Error
	return count > 0, err
}

// Create 写入一条领取记录，IP 或钱包重复时返回唯一约束错误
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	claim.WalletKey = walletKey(claim.Wallet)
	return r.db.Write(ctx, func(tx *gorm.DB) error {
		return tx.Create(claim).Error
	})
}

func (r *ClaimRepository) GetAll(ctx context.Context) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.Conn().WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&claims).Error
	return claims, err
}

func (r *ClaimRepository) GetByIP(ctx context.Context, ip string) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.Conn().WithContext(ctx).
		Where("ip = ?", ip).
		Order("created_at DESC, id DESC").
		Find(&claims).Error
	return claims, err
}

func (r *ClaimRepository) GetByWallet(ctx context.Context, wallet string) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.Conn().WithContext(ctx).
		Where("wallet_key = ?", walletKey(wallet)).
		Order("created_at DESC, id DESC").
		Find(&claims).Error
	return claims, err
}

func (r *ClaimRepository) GetRecent(ctx context.Context, limit int) ([]models.Claim, error) {
	var claims []models.Claim
	if limit <= 0 {
		limit = 10
	}
	err := r.db.Conn().WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&claims).Error
	return claims, err
}

func (r *ClaimRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Conn().WithContext(ctx).
		Model(&models.Claim{}).
		Count(&count).Error
	return count, err
}
