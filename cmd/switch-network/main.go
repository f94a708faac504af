// switch-network 改写本地 .env 中的 NETWORK_MODE，并打印切换后的网络配置
//
//	switch-network [testnet|mainnet]
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"bnb-faucet/internal/config"
)

const (
	envFile    = ".env"
	envExample = "config.example.env"
	networkKey = "NETWORK_MODE"
)

var networkModeLine = regexp.MustCompile(`(?m)^` + networkKey + `=.*$`)

func main() {
	os.Exit(run(os.Args[1:], ".", os.Stdout, os.Stderr))
}

func run(args []string, dir string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		usage(stdout)
		return 1
	}

	mode := config.NetworkMode(strings.ToLower(args[0]))
	profile, ok := config.Profiles[mode]
	if !ok {
		usage(stdout)
		return 1
	}

	if err := updateEnvFile(dir, mode, stdout); err != nil {
		fmt.Fprintf(stderr, "failed to switch network: %v\n", err)
		return 1
	}

	printProfile(stdout, profile)
	fmt.Fprintf(stdout, "Network switched to %s\n", strings.ToUpper(string(mode)))
	return 0
}

// updateEnvFile 只替换 NETWORK_MODE 一行，保留文件中的其他内容与注释
func updateEnvFile(dir string, mode config.NetworkMode, stdout io.Writer) error {
	envPath := filepath.Join(dir, envFile)

	content, err := os.ReadFile(envPath)
	if os.IsNotExist(err) {
		content, err = os.ReadFile(filepath.Join(dir, envExample))
		if os.IsNotExist(err) {
			return fmt.Errorf("neither %s nor %s found", envFile, envExample)
		}
		if err == nil {
			fmt.Fprintf(stdout, "Creating %s from %s\n", envFile, envExample)
		}
	}
	if err != nil {
		return err
	}

	line := networkKey + "=" + string(mode)
	updated := string(content)
	if networkModeLine.MatchString(updated) {
		updated = networkModeLine.ReplaceAllString(updated, line)
	} else {
		if updated != "" && !strings.HasSuffix(updated, "\n") {
			updated += "\n"
		}
		updated += line + "\n"
	}

	parsed, err := godotenv.Unmarshal(updated)
	if err != nil {
		return fmt.Errorf("resulting %s is not valid: %w", envFile, err)
	}
	if parsed[networkKey] != string(mode) {
		return fmt.Errorf("%s was not updated", networkKey)
	}

	return os.WriteFile(envPath, []byte(updated), 0o600)
}

func printProfile(w io.Writer, p config.NetworkProfile) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "NETWORK CONFIGURATION UPDATED")
	fmt.Fprintln(w, "=====================================")
	fmt.Fprintf(w, "Network:          %s\n", p.ChainName)
	fmt.Fprintf(w, "Chain ID:         %d (%s)\n", p.ChainID, p.ChainIDHex())
	fmt.Fprintf(w, "Currency:         %s\n", p.NativeCurrency.Symbol)
	fmt.Fprintf(w, "Amount per claim: %s %s\n", p.FaucetAmount, p.NativeCurrency.Symbol)
	if len(p.BlockExplorerURLs) > 0 {
		fmt.Fprintf(w, "Explorer:         %s\n", p.BlockExplorerURLs[0])
	}
	if len(p.RPCURLs) > 0 {
		fmt.Fprintf(w, "RPC:              %s\n", p.RPCURLs[0])
	}

	if p.IsTestnet() {
		fmt.Fprintln(w, "\nTESTNET MODE: tokens have no real value.")
	} else {
		fmt.Fprintln(w, "\nMAINNET MODE: tokens have real value. Check the faucet balance and configuration.")
	}

	fmt.Fprintln(w, "Restart the faucet server for the change to take effect.")
	fmt.Fprintln(w, "=====================================")
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: switch-network [testnet|mainnet]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Networks:")
	fmt.Fprintln(w, "  testnet - BSC Testnet (development)")
	fmt.Fprintln(w, "  mainnet - BNB Smart Chain (production)")
}
