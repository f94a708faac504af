package service

import (
	"context"
	"strings"
	"time"

	"bnb-faucet/internal/database"
	"bnb-faucet/internal/models"
	"bnb-faucet/internal/repository"
	"bnb-faucet/pkg/errors"
)

type LedgerService struct {
	repo *repository.ClaimRepository
	now  func() time.Time
}

func NewLedgerService(repo *repository.ClaimRepository) *LedgerService {
	return &LedgerService{repo: repo, now: utcNow}
}

func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *LedgerService) HasClaimedByIP(ctx context.Context, ip string) (bool, error) {
	claimed, err := s.repo.ExistsByIP(ctx, ip)
	if err != nil {
		return false, errors.New(errors.ErrStorage, "查询IP领取记录失败", err)
	}
	return claimed, nil
}

func (s *LedgerService) HasClaimedByWallet(ctx context.Context, wallet string) (bool, error) {
	claimed, err := s.repo.ExistsByWallet(ctx, wallet)
	if err != nil {
		return false, errors.New(errors.ErrStorage, "查询钱包领取记录失败", err)
	}
	return claimed, nil
}

// AddClaim 写入领取记录。唯一约束冲突会转换为对应的已领取错误。
func (s *LedgerService) AddClaim(ctx context.Context, ip, wallet, txHash string) (*models.Claim, error) {
	claim := &models.Claim{
		IP:        ip,
		Wallet:    wallet,
		TxHash:    txHash,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, claim); err != nil {
		if database.IsUniqueViolation(err) {
			if strings.Contains(err.Error(), "claims.ip") {
				return nil, errors.New(errors.ErrIPAlreadyClaimed, "IP already claimed", err)
			}
			return nil, errors.New(errors.ErrWalletAlreadyClaimed, "wallet already claimed", err)
		}
		return nil, errors.New(errors.ErrStorage, "写入领取记录失败", err)
	}
	return claim, nil
}

func (s *LedgerService) GetAllClaims(ctx context.Context) ([]models.Claim, error) {
	return s.repo.GetAll(ctx)
}

func (s *LedgerService) GetClaimsByIP(ctx context.Context, ip string) ([]models.Claim, error) {
	return s.repo.GetByIP(ctx, ip)
}

func (s *LedgerService) GetClaimsByWallet(ctx context.Context, wallet string) ([]models.Claim, error) {
	return s.repo.GetByWallet(ctx, wallet)
}

func (s *LedgerService) GetRecentClaims(ctx context.Context, limit int) ([]models.Claim, error) {
	return s.repo.GetRecent(ctx, limit)
}

func (s *LedgerService) CountClaims(ctx context.Context) (int64, error) {
	return s.repo.CountAll(ctx)
}
