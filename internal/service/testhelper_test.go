package service

import (
	"context"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bnb-faucet/internal/config"
	"bnb-faucet/internal/database"
	"bnb-faucet/internal/repository"
	"bnb-faucet/pkg/logger"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeExecutor 模拟链上转账
type fakeExecutor struct {
	mu          sync.Mutex
	balance     *big.Int
	balanceErr  error
	transferErr error
	status      uint64
	nilReceipt  bool
	gate        chan struct{}
	entered     chan struct{}
	onTransfer  func()
	transfers   []common.Address
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		balance: new(big.Int).Mul(big.NewInt(1), big.NewInt(1_000_000_000_000_000_000)),
		status:  types.ReceiptStatusSuccessful,
	}
}

func (f *fakeExecutor) Balance(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeExecutor) Transfer(ctx context.Context, to common.Address, value *big.Int) (*types.Receipt, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.onTransfer != nil {
		f.onTransfer()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return nil, f.transferErr
	}
	f.transfers = append(f.transfers, to)
	if f.nilReceipt {
		return nil, nil
	}

	f.balance.Sub(f.balance, value)
	return &types.Receipt{
		Status:      f.status,
		TxHash:      common.BigToHash(big.NewInt(int64(len(f.transfers)))),
		BlockNumber: big.NewInt(100),
	}, nil
}

func (f *fakeExecutor) TransferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transfers)
}

type testServices struct {
	Clock   *fakeClock
	Limiter *RateLimitService
	Ledger  *LedgerService
	Faucet  *FaucetService
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger.Discard()

	db, err := database.Open(config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "faucet.db"),
		BusyTimeout:  1000,
		MaxOpenConns: 1,
		WriteRetries: 3,
		RetryDelay:   1,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		MaxAttempts: 5,
		Window:      24 * time.Hour,
		BlockPeriod: time.Hour,
	}
}

// setupServices 使用临时数据库和测试网配置组装全部服务；executor 可以为 nil
func setupServices(t *testing.T, executor TransferExecutor) *testServices {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock()

	limiter := NewRateLimitService(repository.NewRateLimitRepository(db), testRateLimitConfig())
	limiter.SetClock(clock.Now)

	ledger := NewLedgerService(repository.NewClaimRepository(db))
	ledger.SetClock(clock.Now)

	faucet, err := NewFaucetService(limiter, ledger, executor, config.Profiles[config.Testnet], config.FaucetConfig{})
	if err != nil {
		t.Fatalf("failed to create faucet service: %v", err)
	}

	return &testServices{Clock: clock, Limiter: limiter, Ledger: ledger, Faucet: faucet}
}
