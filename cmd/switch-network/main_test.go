package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
)

func readEnv(t *testing.T, dir string) map[string]string {
	t.Helper()
	env, err := godotenv.Read(filepath.Join(dir, envFile))
	if err != nil {
		t.Fatalf("failed to read .env: %v", err)
	}
	return env
}

func TestRun_ReplacesExistingMode(t *testing.T) {
	dir := t.TempDir()
	original := "# faucet settings\nFAUCET_PK=0xabc\nNETWORK_MODE=testnet\nPORT=3000\n"
	if err := os.WriteFile(filepath.Join(dir, envFile), []byte(original), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"mainnet"}, dir, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr %s", code, stderr.String())
	}

	env := readEnv(t, dir)
	if env["NETWORK_MODE"] != "mainnet" {
		t.Errorf("NETWORK_MODE = %q, want mainnet", env["NETWORK_MODE"])
	}
	if env["FAUCET_PK"] != "0xabc" || env["PORT"] != "3000" {
		t.Errorf("other keys changed: %v", env)
	}

	raw, _ := os.ReadFile(filepath.Join(dir, envFile))
	if !strings.HasPrefix(string(raw), "# faucet settings\n") {
		t.Errorf("comment line lost: %q", raw)
	}
	if strings.Count(string(raw), "NETWORK_MODE=") != 1 {
		t.Errorf("expected a single NETWORK_MODE line: %q", raw)
	}

	out := stdout.String()
	if !strings.Contains(out, "Network switched to MAINNET") {
		t.Errorf("stdout missing confirmation: %s", out)
	}
	if !strings.Contains(out, "Chain ID:         56 (0x38)") {
		t.Errorf("stdout missing chain id: %s", out)
	}
}

func TestRun_AppendsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, envFile), []byte("PORT=3000"), 0o600); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"TESTNET"}, dir, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr %s", code, stderr.String())
	}

	env := readEnv(t, dir)
	if env["NETWORK_MODE"] != "testnet" || env["PORT"] != "3000" {
		t.Errorf("env = %v", env)
	}
	if !strings.Contains(stdout.String(), "TESTNET MODE") {
		t.Errorf("stdout missing testnet notice: %s", stdout.String())
	}
}

func TestRun_SeedsFromExample(t *testing.T) {
	dir := t.TempDir()
	example := "NETWORK_MODE=testnet\nFAUCET_PK=\n"
	if err := os.WriteFile(filepath.Join(dir, envExample), []byte(example), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"mainnet"}, dir, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr %s", code, stderr.String())
	}

	if !strings.Contains(stdout.String(), "Creating .env from config.example.env") {
		t.Errorf("stdout missing seed notice: %s", stdout.String())
	}
	if env := readEnv(t, dir); env["NETWORK_MODE"] != "mainnet" {
		t.Errorf("NETWORK_MODE = %q, want mainnet", env["NETWORK_MODE"])
	}

	raw, _ := os.ReadFile(filepath.Join(dir, envExample))
	if string(raw) != example {
		t.Errorf("example file was modified: %q", raw)
	}
}

func TestRun_NoEnvFiles(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"mainnet"}, t.TempDir(), &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "failed to switch network") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_InvalidArguments(t *testing.T) {
	for _, args := range [][]string{nil, {"devnet"}, {"testnet", "mainnet"}} {
		dir := t.TempDir()
		var stdout, stderr bytes.Buffer
		if code := run(args, dir, &stdout, &stderr); code != 1 {
			t.Errorf("run(%v) exit code = %d, want 1", args, code)
		}
		if !strings.Contains(stdout.String(), "Usage: switch-network") {
			t.Errorf("run(%v) did not print usage", args)
		}
		if _, err := os.Stat(filepath.Join(dir, envFile)); !os.IsNotExist(err) {
			t.Errorf("run(%v) created .env", args)
		}
	}
}
