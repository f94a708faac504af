package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"bnb-faucet/pkg/logger"
)

// Wallet 水龙头运营账户，负责签名并发送原生代币转账
type Wallet struct {
	client   *Client
	key      *ecdsa.PrivateKey
	address  common.Address
	gasLimit uint64

	// mu 串行化 nonce 获取到广播的过程，避免并发转账拿到相同 nonce
	mu sync.Mutex
}

// NewWallet 从十六进制私钥创建钱包，允许带 0x 前缀
func NewWallet(client *Client, privateKeyHex string, gasLimit uint64) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid faucet private key: %w", err)
	}

	return &Wallet{
		client:   client,
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		gasLimit: gasLimit,
	}, nil
}

func (w *Wallet) Address() common.Address {
	return w.address
}

// Balance 查询运营账户余额
func (w *Wallet) Balance(ctx context.Context) (*big.Int, error) {
	return w.client.GetBalance(ctx, w.address)
}

// Transfer 发送固定 gas 上限的转账并阻塞等待回执
func (w *Wallet) Transfer(ctx context.Context, to common.Address, value *big.Int) (*types.Receipt, error) {
	eth, chainID, err := w.client.conn(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := w.send(ctx, eth, chainID, to, value)
	if err != nil {
		return nil, err
	}

	receipt, err := bind.WaitMined(ctx, eth, signed)
	if err != nil {
		return nil, fmt.Errorf("等待交易确认失败: %w", err)
	}

	return receipt, nil
}

func (w *Wallet) send(ctx context.Context, eth *ethclient.Client, chainID *big.Int, to common.Address, value *big.Int) (*types.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	nonce, err := eth.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("获取nonce失败: %w", err)
	}

	gasPrice, err := eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取gas价格失败: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      w.gasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("签名交易失败: %w", err)
	}

	if err := eth.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"tx_hash":   signed.Hash().Hex(),
		"to":        to.Hex(),
		"value":     value.String(),
		"nonce":     nonce,
		"gas_price": gasPrice.String(),
	}).Info("transfer submitted, waiting for receipt")

	return signed, nil
}
