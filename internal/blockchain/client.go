package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"bnb-faucet/internal/config"
	"bnb-faucet/pkg/errors"
	"bnb-faucet/pkg/logger"
)

const dialTimeout = 10 * time.Second

// Client 按需连接 RPC。连接失败不会缓存，下一次调用会重新尝试所有候选地址。
type Client struct {
	profile config.NetworkProfile
	rpcURLs []string

	mu      sync.Mutex
	rpcURL  string
	client  *ethclient.Client
	chainID *big.Int
}

// NewLazyClient 创建尚未连接的客户端，首次查询或转账时才拨号
func NewLazyClient(profile config.NetworkProfile, rpcURLs []string) *Client {
	return &Client{
		profile: profile,
		rpcURLs: append([]string(nil), rpcURLs...),
	}
}

// NewClient 依次尝试候选 RPC 地址，返回第一个链 ID 与网络配置一致的客户端
func NewClient(ctx context.Context, profile config.NetworkProfile, rpcURLs []string) (*Client, error) {
	c := NewLazyClient(profile, rpcURLs)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect 在尚未连接时拨号，已连接时直接返回。失败时返回 ErrRPConnect。
func (c *Client) Connect(ctx context.Context) error {
	_, _, err := c.conn(ctx)
	return err
}

func (c *Client) conn(ctx context.Context) (*ethclient.Client, *big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, c.chainID, nil
	}

	var lastErr error
	for _, url := range c.rpcURLs {
		client, chainID, err := dial(ctx, url)
		if err != nil {
			lastErr = err
			logger.WithFields(map[string]interface{}{
				"rpc_url": url,
				"error":   err.Error(),
			}).Warn("RPC endpoint unavailable, trying next")
			continue
		}

		if chainID.Uint64() != c.profile.ChainID {
			client.Close()
			lastErr = fmt.Errorf("chain id mismatch at %s: got %s, want %d", url, chainID, c.profile.ChainID)
			logger.WithFields(map[string]interface{}{
				"rpc_url":  url,
				"chain_id": chainID.String(),
				"expected": c.profile.ChainID,
			}).Warn("RPC endpoint serves a different chain")
			continue
		}

		logger.WithFields(map[string]interface{}{
			"rpc_url":  url,
			"chain_id": chainID.String(),
			"network":  c.profile.ChainName,
		}).Info("connected to RPC endpoint")

		c.client = client
		c.chainID = chainID
		c.rpcURL = url
		return client, chainID, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no RPC endpoints configured")
	}
	return nil, nil, errors.New(errors.ErrRPConnect,
		fmt.Sprintf("连接RPC失败: %s", c.profile.ChainName), lastErr)
}

func dial(ctx context.Context, url string) (*ethclient.Client, *big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, chainID, nil
}

// Close 关闭区块链客户端连接
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// ChainID 返回已连接节点的链 ID，未连接时返回网络配置中的链 ID
func (c *Client) ChainID() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chainID == nil {
		return new(big.Int).SetUint64(c.profile.ChainID)
	}
	return new(big.Int).Set(c.chainID)
}

func (c *Client) RPCURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rpcURL
}

// GetBalance 查询地址的原生代币余额（wei）
func (c *Client) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	eth, _, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("获取余额失败: %w", err)
	}
	return balance, nil
}
