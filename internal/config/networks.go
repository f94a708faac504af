package config

import (
	"fmt"
	"strings"
)

type NetworkMode string

const (
	Testnet NetworkMode = "testnet"
	Mainnet NetworkMode = "mainnet"
)

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// NetworkProfile 与钱包 wallet_addEthereumChain 参数结构一致，前端可直接用于切换网络
type NetworkProfile struct {
	Mode              NetworkMode    `json:"-"`
	ChainID           uint64         `json:"chainIdDecimal"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
	FaucetAmount      string         `json:"faucetAmount"`
	ExplorerName      string         `json:"explorerName"`
}

var Profiles = map[NetworkMode]NetworkProfile{
	Testnet: {
		Mode:      Testnet,
		ChainID:   97,
		ChainName: "BSC Testnet",
		NativeCurrency: NativeCurrency{
			Name:     "tBNB",
			Symbol:   "tBNB",
			Decimals: 18,
		},
		RPCURLs: []string{
			"https://data-seed-prebsc-1-s1.binance.org:8545/",
			"https://data-seed-prebsc-2-s1.binance.org:8545/",
			"https://data-seed-prebsc-1-s2.binance.org:8545/",
		},
		BlockExplorerURLs: []string{"https://testnet.bscscan.com/"},
		FaucetAmount:      "0.003",
		ExplorerName:      "BSCScan Testnet",
	},
	Mainnet: {
		Mode:      Mainnet,
		ChainID:   56,
		ChainName: "BNB Smart Chain",
		NativeCurrency: NativeCurrency{
			Name:     "BNB",
			Symbol:   "BNB",
			Decimals: 18,
		},
		RPCURLs: []string{
			"https://bsc-dataseed.binance.org/",
			"https://bsc-dataseed1.defibit.io/",
			"https://bsc-dataseed1.ninicoin.io/",
		},
		BlockExplorerURLs: []string{"https://bscscan.com/"},
		FaucetAmount:      "0.003",
		ExplorerName:      "BSCScan",
	},
}

// ParseNetworkMode 解析网络模式，空值默认为 testnet，未知值返回错误
func ParseNetworkMode(s string) (NetworkMode, error) {
	mode := NetworkMode(strings.ToLower(strings.TrimSpace(s)))
	if mode == "" {
		return Testnet, nil
	}
	if _, ok := Profiles[mode]; !ok {
		return "", fmt.Errorf("unknown network mode %q (expected %s or %s)", s, Testnet, Mainnet)
	}
	return mode, nil
}

func (p NetworkProfile) IsTestnet() bool {
	return p.Mode == Testnet
}

// ChainIDHex 返回 0x 前缀的十六进制链 ID，例如 97 -> 0x61
func (p NetworkProfile) ChainIDHex() string {
	return fmt.Sprintf("0x%x", p.ChainID)
}

// ExplorerTxURL 拼接交易在区块浏览器中的地址
func (p NetworkProfile) ExplorerTxURL(txHash string) string {
	if len(p.BlockExplorerURLs) == 0 {
		return ""
	}
	base := p.BlockExplorerURLs[0]
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "tx/" + txHash
}
