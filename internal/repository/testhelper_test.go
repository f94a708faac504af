package repository

import (
	"path/filepath"
	"testing"

	"bnb-faucet/internal/config"
	"bnb-faucet/internal/database"
	"bnb-faucet/pkg/logger"
)

type testRepos struct {
	DB        *database.DB
	Claim     *ClaimRepository
	RateLimit *RateLimitRepository
}

func setupTestRepos(t *testing.T) *testRepos {
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

	return &testRepos{
		DB:        db,
		Claim:     NewClaimRepository(db),
		RateLimit: NewRateLimitRepository(db),
	}
}
