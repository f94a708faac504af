package repository

import (
	"context"
	"testing"
	"time"
)

// ========================================
// RateLimitRepository Tests
// ========================================

func TestRateLimitRepository_RecordAttempt(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	record, err := repos.RateLimit.GetLatest(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Fatal("expected no record before first attempt")
	}

	for i := 0; i < 3; i++ {
		if err := repos.RateLimit.RecordAttempt(ctx, "1.2.3.4", now.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordAttempt %d failed: %v", i, err)
		}
	}

	record, err = repos.RateLimit.GetLatest(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatal("expected record after attempts")
	}
	if record.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", record.Attempts)
	}
	if !record.LastAttempt.Equal(now.Add(2 * time.Second)) {
		t.Errorf("LastAttempt = %v, want %v", record.LastAttempt, now.Add(2*time.Second))
	}
	if record.BlockedUntil != nil {
		t.Error("expected BlockedUntil to be nil")
	}

	count, err := repos.RateLimit.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1 (one record per ip)", count)
	}
}

func TestRateLimitRepository_BlockAndDelete(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	if err := repos.RateLimit.RecordAttempt(ctx, "1.2.3.4", now); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}

	until := now.Add(time.Hour)
	if err := repos.RateLimit.Block(ctx, "1.2.3.4", until); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	record, err := repos.RateLimit.GetLatest(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.BlockedUntil == nil || !record.BlockedUntil.Equal(until) {
		t.Fatalf("BlockedUntil = %v, want %v", record.BlockedUntil, until)
	}
	if !record.IsBlocked(now) {
		t.Error("expected record to be blocked at now")
	}
	if record.IsBlocked(until) {
		t.Error("expected block to end at BlockedUntil")
	}

	for i := 0; i < 2; i++ {
		if err := repos.RateLimit.Delete(ctx, "1.2.3.4"); err != nil {
			t.Fatalf("Delete call %d failed: %v", i+1, err)
		}
	}

	record, err = repos.RateLimit.GetLatest(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Error("expected record to be deleted")
	}
}

func TestRateLimitRepository_DeleteExpired(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	// stale: window elapsed, never blocked
	if err := repos.RateLimit.RecordAttempt(ctx, "10.0.0.1", now.Add(-25*time.Hour)); err != nil {
		t.Fatal(err)
	}
	// fresh: inside window
	if err := repos.RateLimit.RecordAttempt(ctx, "10.0.0.2", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	// block expired
	if err := repos.RateLimit.RecordAttempt(ctx, "10.0.0.3", now.Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repos.RateLimit.Block(ctx, "10.0.0.3", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	// block active
	if err := repos.RateLimit.RecordAttempt(ctx, "10.0.0.4", now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := repos.RateLimit.Block(ctx, "10.0.0.4", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	removed, err := repos.RateLimit.DeleteExpired(ctx, now, window)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	for ip, wantPresent := range map[string]bool{
		"10.0.0.1": false,
		"10.0.0.2": true,
		"10.0.0.3": false,
		"10.0.0.4": true,
	} {
		record, err := repos.RateLimit.GetLatest(ctx, ip)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if (record != nil) != wantPresent {
			t.Errorf("record for %s present = %v, want %v", ip, record != nil, wantPresent)
		}
	}
}
