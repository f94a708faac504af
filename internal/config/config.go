package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Network   NetworkConfig   `mapstructure:"network"`
	Faucet    FaucetConfig    `mapstructure:"faucet"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// Profile 启动时根据 Network.Mode 解析，运行期间不再变化
	Profile NetworkProfile `mapstructure:"-"`
}

type ServerConfig struct {
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	StaticDir    string   `mapstructure:"static_dir"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	// BurstPerMinute 是路由层按 IP 的粗粒度限流，0 表示关闭
	BurstPerMinute int `mapstructure:"burst_per_minute"`
}

type DatabaseConfig struct {
	Path         string `mapstructure:"path"`
	BusyTimeout  int    `mapstructure:"busy_timeout"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	WriteRetries int    `mapstructure:"write_retries"`
	// RetryDelay 单位毫秒，实际延迟为 [RetryDelay, 2*RetryDelay) 之间的随机值
	RetryDelay int `mapstructure:"retry_delay"`
}

type NetworkConfig struct {
	Mode   string `mapstructure:"mode"`
	RPCURL string `mapstructure:"rpc_url"`
}

type FaucetConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	GasLimit   uint64 `mapstructure:"gas_limit"`
	// ConfirmTimeout 单位秒，0 表示一直等待回执
	ConfirmTimeout int `mapstructure:"confirm_timeout"`
}

type RateLimitConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
	BlockPeriod time.Duration `mapstructure:"block_period"`
	CleanupCron string        `mapstructure:"cleanup_cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.burst_per_minute", 30)

	v.SetDefault("database.path", "faucet.db")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.write_retries", 3)
	v.SetDefault("database.retry_delay", 50)

	v.SetDefault("network.mode", string(Testnet))
	v.SetDefault("network.rpc_url", "")

	v.SetDefault("faucet.private_key", "")
	v.SetDefault("faucet.gas_limit", 21000)
	v.SetDefault("faucet.confirm_timeout", 0)

	v.SetDefault("rate_limit.max_attempts", 5)
	v.SetDefault("rate_limit.window", "24h")
	v.SetDefault("rate_limit.block_period", "1h")
	v.SetDefault("rate_limit.cleanup_cron", "0 */10 * * * *")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"network.mode":       "NETWORK_MODE",
		"network.rpc_url":    "BSC_RPC_URL",
		"faucet.private_key": "FAUCET_PK",
		"database.path":      "DB_PATH",
		"server.port":        "PORT",
		"server.static_dir":  "STATIC_DIR",
		"logging.level":      "LOG_LEVEL",
		"logging.format":     "LOG_FORMAT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}
	return nil
}

// Load 读取配置文件（可选）并叠加环境变量，随后解析网络配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mode, err := ParseNetworkMode(config.Network.Mode)
	if err != nil {
		return nil, err
	}
	config.Profile = Profiles[mode]

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.RateLimit.MaxAttempts <= 0 {
		return fmt.Errorf("rate_limit.max_attempts must be positive")
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.BlockPeriod <= 0 {
		return fmt.Errorf("rate_limit.window and rate_limit.block_period must be positive")
	}
	if c.Faucet.GasLimit == 0 {
		return fmt.Errorf("faucet.gas_limit must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// RPCURLs 返回按优先级排列的 RPC 地址，覆盖地址优先
func (c *Config) RPCURLs() []string {
	urls := make([]string, 0, len(c.Profile.RPCURLs)+1)
	if c.Network.RPCURL != "" {
		urls = append(urls, c.Network.RPCURL)
	}
	return append(urls, c.Profile.RPCURLs...)
}
