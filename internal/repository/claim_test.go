package repository

import (
	"context"
	"testing"
	"time"

	"bnb-faucet/internal/database"
	"bnb-faucet/internal/models"
)

// ========================================
// ClaimRepository Tests
// ========================================

func TestClaimRepository_ExistsByIP_IsCaseSensitive(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Claim.Create(ctx, &models.Claim{IP: "fe80::ABCD", Wallet: "0x1111111111111111111111111111111111111111"}); err != nil {
		t.Fatalf("failed to create claim: %v", err)
	}

	exists, err := repos.Claim.ExistsByIP(ctx, "fe80::ABCD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected exact ip match to exist")
	}

	exists, err = repos.Claim.ExistsByIP(ctx, "fe80::abcd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected ip lookup to be case-sensitive")
	}
}

func TestClaimRepository_ExistsByWallet_IsCaseInsensitive(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	wallet := "0xABCabc0000000000000000000000000000001234"
	if err := repos.Claim.Create(ctx, &models.Claim{IP: "1.2.3.4", Wallet: wallet}); err != nil {
		t.Fatalf("failed to create claim: %v", err)
	}

	for _, variant := range []string{
		wallet,
		"0xabcabc0000000000000000000000000000001234",
		"0xABCABC0000000000000000000000000000001234",
	} {
		exists, err := repos.Claim.ExistsByWallet(ctx, variant)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !exists {
			t.Errorf("ExistsByWallet(%q) = false, want true", variant)
		}
	}
}

func TestClaimRepository_Create_RejectsDuplicates(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Claim.Create(ctx, &models.Claim{IP: "1.2.3.4", Wallet: "0xAAAA000000000000000000000000000000000001"}); err != nil {
		t.Fatalf("failed to create claim: %v", err)
	}

	err := repos.Claim.Create(ctx, &models.Claim{IP: "1.2.3.4", Wallet: "0xBBBB000000000000000000000000000000000002"})
	if !database.IsUniqueViolation(err) {
		t.Errorf("duplicate ip: expected unique violation, got %v", err)
	}

	err = repos.Claim.Create(ctx, &models.Claim{IP: "5.6.7.8", Wallet: "0xaaaa000000000000000000000000000000000001"})
	if !database.IsUniqueViolation(err) {
		t.Errorf("duplicate wallet (other case): expected unique violation, got %v", err)
	}

	count, err := repos.Claim.CountAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("CountAll = %d, want 1", count)
	}
}

func TestClaimRepository_QueriesAreNewestFirst(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	claims := []models.Claim{
		{IP: "10.0.0.1", Wallet: "0x0000000000000000000000000000000000000001", CreatedAt: base},
		{IP: "10.0.0.2", Wallet: "0x0000000000000000000000000000000000000002", CreatedAt: base.Add(time.Minute)},
		{IP: "10.0.0.3", Wallet: "0x0000000000000000000000000000000000000003", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range claims {
		if err := repos.Claim.Create(ctx, &claims[i]); err != nil {
			t.Fatalf("failed to create claim %d: %v", i, err)
		}
	}

	all, err := repos.Claim.GetAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetAll length = %d, want 3", len(all))
	}
	if all[0].IP != "10.0.0.3" || all[2].IP != "10.0.0.1" {
		t.Errorf("GetAll order = [%s %s %s], want newest first", all[0].IP, all[1].IP, all[2].IP)
	}

	recent, err := repos.Claim.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 || recent[0].IP != "10.0.0.3" {
		t.Errorf("GetRecent(2) returned %d items, first %q", len(recent), recent[0].IP)
	}

	byIP, err := repos.Claim.GetByIP(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byIP) != 1 {
		t.Errorf("GetByIP length = %d, want 1", len(byIP))
	}

	byWallet, err := repos.Claim.GetByWallet(ctx, "0X0000000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(byWallet) != 1 || byWallet[0].IP != "10.0.0.1" {
		t.Errorf("GetByWallet returned %+v", byWallet)
	}
}
