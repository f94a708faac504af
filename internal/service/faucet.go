package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bnb-faucet/internal/blockchain"
	"bnb-faucet/internal/config"
	"bnb-faucet/pkg/errors"
	"bnb-faucet/pkg/logger"
)

const recentClaimsLimit = 10

// TransferExecutor 负责链上转账，由 blockchain.Wallet 实现
type TransferExecutor interface {
	Balance(ctx context.Context) (*big.Int, error)
	Transfer(ctx context.Context, to common.Address, value *big.Int) (*types.Receipt, error)
}

// RateLimitedError 携带封禁截止时间，包装在 ErrRateLimited 中返回
type RateLimitedError struct {
	BlockedUntil time.Time
	Attempts     int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("blocked until %s after %d attempts", e.BlockedUntil.Format(time.RFC3339), e.Attempts)
}

// MinutesLeft 返回剩余封禁分钟数（向上取整）
func (e *RateLimitedError) MinutesLeft(now time.Time) int {
	left := e.BlockedUntil.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Minutes()))
}

type ClaimResult struct {
	TxHash      string `json:"txHash"`
	Amount      string `json:"amount"`
	ExplorerURL string `json:"explorerUrl"`
	Network     string `json:"network"`
	IsTestnet   bool   `json:"isTestnet"`
}

type RecentClaim struct {
	Wallet string    `json:"wallet"`
	Date   time.Time `json:"date"`
}

type FaucetStats struct {
	TotalClaims      int64         `json:"totalClaims"`
	TotalDistributed string        `json:"totalBNBDistributed"`
	RecentClaims     []RecentClaim `json:"recentClaims"`
}

type FaucetService struct {
	limiter        *RateLimitService
	ledger         *LedgerService
	executor       TransferExecutor
	profile        config.NetworkProfile
	amount         *big.Int
	confirmTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewFaucetService 创建领取编排服务。executor 为 nil 表示未配置签名私钥，领取请求会返回配置错误。
func NewFaucetService(
	limiter *RateLimitService,
	ledger *LedgerService,
	executor TransferExecutor,
	profile config.NetworkProfile,
	faucetCfg config.FaucetConfig,
) (*FaucetService, error) {
	amount, err := blockchain.ParseEther(profile.FaucetAmount)
	if err != nil {
		return nil, errors.New(errors.ErrConfigLoad, "水龙头金额配置无效", err)
	}

	return &FaucetService{
		limiter:        limiter,
		ledger:         ledger,
		executor:       executor,
		profile:        profile,
		amount:         amount,
		confirmTimeout: time.Duration(faucetCfg.ConfirmTimeout) * time.Second,
		inflight:       make(map[string]struct{}),
	}, nil
}

func (s *FaucetService) Profile() config.NetworkProfile {
	return s.profile
}

func (s *FaucetService) Amount() *big.Int {
	return new(big.Int).Set(s.amount)
}

// Claim 处理一次领取请求：限流检查、记录尝试、已领取检查、余额检查、转账、写入记录
func (s *FaucetService) Claim(ctx context.Context, ip, wallet string) (*ClaimResult, error) {
	if !blockchain.IsValidAddress(wallet) {
		return nil, errors.New(errors.ErrInvalidAddress, "invalid wallet address", nil)
	}

	check, err := s.limiter.CheckRateLimit(ctx, ip)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		claimsTotal.WithLabelValues(outcomeRateLimited).Inc()
		rl := &RateLimitedError{Attempts: check.Attempts}
		if check.BlockedUntil != nil {
			rl.BlockedUntil = *check.BlockedUntil
		}
		return nil, errors.New(errors.ErrRateLimited, "too many attempts", rl)
	}

	if err := s.limiter.RecordAttempt(ctx, ip); err != nil {
		return nil, err
	}

	release, ok := s.acquire(ip, wallet)
	if !ok {
		claimsTotal.WithLabelValues(outcomeInProgress).Inc()
		return nil, errors.New(errors.ErrClaimInProgress, "a claim for this IP or wallet is already in progress", nil)
	}
	defer release()

	claimed, err := s.ledger.HasClaimedByIP(ctx, ip)
	if err != nil {
		return nil, err
	}
	if claimed {
		claimsTotal.WithLabelValues(outcomeIPClaimed).Inc()
		return nil, errors.New(errors.ErrIPAlreadyClaimed, "IP already claimed", nil)
	}

	claimed, err = s.ledger.HasClaimedByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if claimed {
		claimsTotal.WithLabelValues(outcomeWalletClaimed).Inc()
		return nil, errors.New(errors.ErrWalletAlreadyClaimed, "wallet already claimed", nil)
	}

	if s.executor == nil {
		logger.Error("faucet private key is not configured")
		return nil, errors.New(errors.ErrConfig, "server configuration error", nil)
	}

	// 转账一旦发出就必须等到结果并落库，不随客户端断开而取消
	tctx := context.WithoutCancel(ctx)
	if s.confirmTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(tctx, s.confirmTimeout)
		defer cancel()
	}

	balance, err := s.executor.Balance(tctx)
	if err != nil {
		return nil, s.classifyTransferError(err)
	}
	if balance.Cmp(s.amount) < 0 {
		claimsTotal.WithLabelValues(outcomeNoFunds).Inc()
		logger.WithFields(map[string]interface{}{
			"balance": blockchain.FormatEther(balance),
			"amount":  blockchain.FormatEther(s.amount),
		}).Warn("faucet balance below send amount")
		return nil, errors.New(errors.ErrInsufficientBalance, "faucet balance is insufficient", nil)
	}

	start := time.Now()
	receipt, err := s.executor.Transfer(tctx, common.HexToAddress(wallet), s.Amount())
	transferDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.classifyTransferError(err)
	}
	if receipt == nil {
		claimsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, errors.New(errors.ErrTransferFailed, "transaction not confirmed", nil)
	}
	txHash := receipt.TxHash.Hex()
	if receipt.Status != types.ReceiptStatusSuccessful {
		claimsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, errors.New(errors.ErrTransferFailed, "transaction reverted",
			fmt.Errorf("tx %s failed", txHash))
	}

	if _, err := s.ledger.AddClaim(tctx, ip, wallet, txHash); err != nil {
		// 资金已经发出，记录失败只能告警，不能让用户以为领取失败
		claimsTotal.WithLabelValues(outcomeUnrecorded).Inc()
		logger.WithFields(map[string]interface{}{
			"ip":      ip,
			"wallet":  wallet,
			"tx_hash": txHash,
			"error":   err.Error(),
		}).Error("transfer confirmed but claim could not be recorded")
	}

	claimsTotal.WithLabelValues(outcomeSuccess).Inc()
	logger.WithFields(map[string]interface{}{
		"ip":      ip,
		"wallet":  wallet,
		"tx_hash": txHash,
		"amount":  blockchain.FormatEther(s.amount),
		"block":   receipt.BlockNumber,
	}).Info("claim completed")

	return &ClaimResult{
		TxHash:      txHash,
		Amount:      blockchain.FormatEther(s.amount),
		ExplorerURL: s.profile.ExplorerTxURL(txHash),
		Network:     s.profile.ChainName,
		IsTestnet:   s.profile.IsTestnet(),
	}, nil
}

// classifyTransferError 按节点返回的错误信息归类：RPC 不可用、余额不足、gas 相关或其他失败
func (s *FaucetService) classifyTransferError(err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		if appErr.Code == errors.ErrRPConnect {
			claimsTotal.WithLabelValues(outcomeUnavailable).Inc()
		} else {
			claimsTotal.WithLabelValues(outcomeFailed).Inc()
		}
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		claimsTotal.WithLabelValues(outcomeNoFunds).Inc()
		return errors.New(errors.ErrInsufficientBalance, "faucet has insufficient funds", err)
	case strings.Contains(msg, "gas"):
		claimsTotal.WithLabelValues(outcomeFailed).Inc()
		return errors.New(errors.ErrGas, "transaction gas error", err)
	default:
		claimsTotal.WithLabelValues(outcomeFailed).Inc()
		return errors.New(errors.ErrTransferFailed, "transfer failed", err)
	}
}

// acquire 为 IP 和钱包加进程内占用标记，防止同一身份的并发请求同时通过已领取检查
func (s *FaucetService) acquire(ip, wallet string) (func(), bool) {
	keys := []string{"ip:" + ip, "wallet:" + strings.ToLower(wallet)}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		if _, busy := s.inflight[k]; busy {
			return nil, false
		}
	}
	for _, k := range keys {
		s.inflight[k] = struct{}{}
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, k := range keys {
			delete(s.inflight, k)
		}
	}, true
}

// Stats 返回领取总数、累计发放金额以及最近的领取记录（地址脱敏）
func (s *FaucetService) Stats(ctx context.Context) (*FaucetStats, error) {
	total, err := s.ledger.CountClaims(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrStorage, "统计领取记录失败", err)
	}

	recent, err := s.ledger.GetRecentClaims(ctx, recentClaimsLimit)
	if err != nil {
		return nil, errors.New(errors.ErrStorage, "查询最近领取记录失败", err)
	}

	distributed := new(big.Int).Mul(big.NewInt(total), s.amount)

	items := make([]RecentClaim, 0, len(recent))
	for _, c := range recent {
		items = append(items, RecentClaim{
			Wallet: RedactAddress(c.Wallet),
			Date:   c.CreatedAt,
		})
	}

	return &FaucetStats{
		TotalClaims:      total,
		TotalDistributed: formatFixed(distributed, 6),
		RecentClaims:     items,
	}, nil
}

// RedactAddress 保留前 6 位和后 4 位，例如 0x1234...abcd
func RedactAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func formatFixed(wei *big.Int, decimals int) string {
	return new(big.Rat).SetFrac(wei, big.NewInt(1_000_000_000_000_000_000)).FloatString(decimals)
}
