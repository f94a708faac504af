package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bnb-faucet/internal/blockchain"
	"bnb-faucet/internal/service"
	"bnb-faucet/pkg/errors"
	"bnb-faucet/pkg/logger"
)

const (
	fallbackIP   = "127.0.0.1"
	maxClaimBody = 4 << 10 // 请求体只包含一个钱包地址
)

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("wallet", func(fl validator.FieldLevel) bool {
		return blockchain.IsValidAddress(fl.Field().String())
	})
	return v
}

type claimRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,wallet"`
}

// ClientIP 依次读取 X-Forwarded-For 第一项、X-Real-IP，都没有时返回回环地址
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return fallbackIP
}

type ClaimHandler struct {
	faucetSvc *service.FaucetService
	now       func() time.Time
}

func NewClaimHandler(faucetSvc *service.FaucetService) *ClaimHandler {
	return &ClaimHandler{faucetSvc: faucetSvc, now: time.Now}
}

func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxClaimBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)

	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}

	ip := ClientIP(r)
	result, err := h.faucetSvc.Claim(r.Context(), ip, req.WalletAddress)
	if err != nil {
		h.writeClaimError(w, ip, req.WalletAddress, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"txHash":      result.TxHash,
		"amount":      result.Amount,
		"explorerUrl": result.ExplorerURL,
		"network":     result.Network,
		"isTestnet":   result.IsTestnet,
	})
}

func (h *ClaimHandler) writeClaimError(w http.ResponseWriter, ip, wallet string, err error) {
	code := errors.CodeOf(err)

	entry := logger.WithFields(map[string]interface{}{
		"ip":     ip,
		"wallet": wallet,
		"code":   code,
		"error":  err.Error(),
	})

	switch code {
	case errors.ErrInvalidAddress:
		writeError(w, http.StatusBadRequest, "Invalid wallet address")
	case errors.ErrRateLimited:
		var rl *service.RateLimitedError
		if !stderrors.As(err, &rl) {
			rl = &service.RateLimitedError{}
		}
		entry.Info("claim rejected: rate limited")
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":        fmt.Sprintf("Too many attempts. Try again in %d minutes.", rl.MinutesLeft(h.now())),
			"rateLimited":  true,
			"blockedUntil": rl.BlockedUntil,
		})
	case errors.ErrIPAlreadyClaimed:
		writeError(w, http.StatusForbidden, "IP already claimed")
	case errors.ErrWalletAlreadyClaimed:
		writeError(w, http.StatusForbidden, "wallet already claimed")
	case errors.ErrClaimInProgress:
		writeError(w, http.StatusConflict, "A claim for this IP or wallet is already in progress")
	case errors.ErrConfig:
		entry.Error("claim failed: server misconfigured")
		writeError(w, http.StatusInternalServerError, "Server configuration error")
	case errors.ErrInsufficientBalance:
		entry.Warn("claim failed: insufficient faucet balance")
		writeError(w, http.StatusServiceUnavailable, "The faucet does not have enough balance")
	case errors.ErrRPConnect:
		entry.Warn("claim failed: RPC unavailable")
		writeError(w, http.StatusServiceUnavailable, "The network is temporarily unavailable, please try again later")
	case errors.ErrGas:
		entry.Error("claim failed: gas error")
		writeError(w, http.StatusInternalServerError, "Transaction gas error")
	default:
		entry.Error("claim failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *ClaimHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.faucetSvc.Stats(r.Context())
	if err != nil {
		logger.Error("Failed to get faucet stats:", err)
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type NetworkHandler struct {
	faucetSvc *service.FaucetService
}

func NewNetworkHandler(faucetSvc *service.FaucetService) *NetworkHandler {
	return &NetworkHandler{faucetSvc: faucetSvc}
}

// GetNetwork 返回当前网络配置，结构与钱包 wallet_addEthereumChain 参数一致
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	p := h.faucetSvc.Profile()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chainId":           p.ChainIDHex(),
		"chainIdDecimal":    p.ChainID,
		"chainName":         p.ChainName,
		"nativeCurrency":    p.NativeCurrency,
		"rpcUrls":           p.RPCURLs,
		"blockExplorerUrls": p.BlockExplorerURLs,
		"faucetAmount":      p.FaucetAmount,
		"explorerName":      p.ExplorerName,
		"isTestnet":         p.IsTestnet(),
	})
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
