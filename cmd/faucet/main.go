package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bnb-faucet/internal/blockchain"
	"bnb-faucet/internal/config"
	"bnb-faucet/internal/database"
	"bnb-faucet/internal/handler"
	"bnb-faucet/internal/repository"
	"bnb-faucet/internal/scheduler"
	"bnb-faucet/internal/service"
	"bnb-faucet/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Failed to load .env: %v\n", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executor, closeExecutor := initExecutor(ctx, cfg)
	defer closeExecutor()

	rateLimitSvc := service.NewRateLimitService(repository.NewRateLimitRepository(db), cfg.RateLimit)
	ledgerSvc := service.NewLedgerService(repository.NewClaimRepository(db))

	faucetSvc, err := service.NewFaucetService(rateLimitSvc, ledgerSvc, executor, cfg.Profile, cfg.Faucet)
	if err != nil {
		logger.Fatal("Failed to create faucet service:", err)
	}

	cleanupScheduler := scheduler.NewCleanupScheduler(rateLimitSvc, cfg.RateLimit.CleanupCron)
	if err := cleanupScheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler:", err)
	}
	defer cleanupScheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(cfg.Server, faucetSvc),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.WithFields(map[string]interface{}{
			"port":    cfg.Server.Port,
			"network": cfg.Profile.ChainName,
			"amount":  cfg.Profile.FaucetAmount,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

// initExecutor 加载运营私钥并连接 RPC。只有私钥缺失或无效时返回 nil，领取请求会得到配置错误；
// RPC 暂时不可用时仍返回钱包，客户端会在后续请求中重新拨号。
func initExecutor(ctx context.Context, cfg *config.Config) (service.TransferExecutor, func()) {
	noop := func() {}

	if cfg.Faucet.PrivateKey == "" {
		logger.Warn("FAUCET_PK is not set; claims will fail with a configuration error")
		return nil, noop
	}

	client := blockchain.NewLazyClient(cfg.Profile, cfg.RPCURLs())

	wallet, err := blockchain.NewWallet(client, cfg.Faucet.PrivateKey, cfg.Faucet.GasLimit)
	if err != nil {
		logger.Error("Failed to load faucet wallet:", err)
		return nil, noop
	}

	if err := client.Connect(ctx); err != nil {
		logger.WithFields(map[string]interface{}{
			"address": wallet.Address().Hex(),
			"error":   err.Error(),
		}).Warn("RPC unavailable at startup; will retry on the next claim")
		return wallet, client.Close
	}

	logger.WithFields(map[string]interface{}{
		"address": wallet.Address().Hex(),
		"rpc_url": client.RPCURL(),
	}).Info("Faucet wallet loaded")

	return wallet, client.Close
}
