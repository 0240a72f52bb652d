package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/events"
	"github.com/lightlink-network/plugin-lightlink/internal/storage/mysql"
	"github.com/lightlink-network/plugin-lightlink/internal/storage/redis"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

// Config 描述守护进程启动所需的全部配置。
type Config struct {
	Server  ServerConfig  `json:"server" toml:"server"`
	Wallet  WalletConfig  `json:"wallet" toml:"wallet"`
	Chains  ChainsConfig  `json:"chains" toml:"chains"`
	Cache   CacheConfig   `json:"cache" toml:"cache"`
	Events  EventsConfig  `json:"events" toml:"events"`
	Logging logger.Config `json:"logging" toml:"logging"`
}

// ServerConfig 控制 HTTP 监听。
type ServerConfig struct {
	Address string `json:"address" toml:"address"`
}

// WalletConfig 选择签名凭证，按私钥、助记词、keystore 文件的顺序取第一个非空来源。
type WalletConfig struct {
	PrivateKey       string `json:"private_key" toml:"private_key"`
	Mnemonic         string `json:"mnemonic" toml:"mnemonic"`
	Passphrase       string `json:"passphrase" toml:"passphrase"`
	DerivationPath   string `json:"derivation_path" toml:"derivation_path"`
	KeystorePath     string `json:"keystore_path" toml:"keystore_path"`
	KeystorePassword string `json:"keystore_password" toml:"keystore_password"`
	TEEMode          string `json:"tee_mode" toml:"tee_mode"`
}

// ChainsConfig 覆盖内置链目录中的节点地址与合约。
type ChainsConfig struct {
	DefinitionsPath string `json:"definitions_path" toml:"definitions_path"`
	MainnetRPC      string `json:"mainnet_rpc_url" toml:"mainnet_rpc_url"`
	TestnetRPC      string `json:"testnet_rpc_url" toml:"testnet_rpc_url"`
}

// CacheConfig 选择余额缓存的持久层。
type CacheConfig struct {
	Driver string        `json:"driver" toml:"driver"`
	TTL    time.Duration `json:"ttl" toml:"ttl"`
	Redis  redis.Config  `json:"redis" toml:"redis"`
	MySQL  mysql.Config  `json:"mysql" toml:"mysql"`
}

// EventsConfig 列出交易事件的投递目标。
type EventsConfig struct {
	Drivers   []string              `json:"drivers" toml:"drivers"`
	RabbitMQ  events.RabbitMQConfig `json:"rabbitmq" toml:"rabbitmq"`
	RedisList string                `json:"redis_list" toml:"redis_list"`
	MaxLen    int64                 `json:"max_len" toml:"max_len"`
}

// 缓存与事件驱动。
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMySQL    = "mysql"
	DriverRabbitMQ = "rabbitmq"
)

// environment 保存可覆盖文件配置的环境变量。
type environment struct {
	PrivateKey       string `envconfig:"EVM_PRIVATE_KEY"`
	Mnemonic         string `envconfig:"EVM_MNEMONIC"`
	TEEMode          string `envconfig:"TEE_MODE"`
	MainnetRPC       string `envconfig:"LIGHTLINK_MAINNET_RPC_URL"`
	TestnetRPC       string `envconfig:"LIGHTLINK_TESTNET_RPC_URL"`
	ChainsFile       string `envconfig:"LIGHTLINK_CHAINS_FILE"`
	KeystorePath     string `envconfig:"LIGHTLINK_KEYSTORE"`
	KeystorePassword string `envconfig:"LIGHTLINK_KEYSTORE_PASSWORD"`
	RedisAddr        string `envconfig:"LIGHTLINK_REDIS_ADDR"`
	MySQLDSN         string `envconfig:"LIGHTLINK_MYSQL_DSN"`
	RabbitMQURL      string `envconfig:"LIGHTLINK_RABBITMQ_URL"`
	HTTPAddr         string `envconfig:"LIGHTLINK_HTTP_ADDR"`
	LogLevel         string `envconfig:"LIGHTLINK_LOG_LEVEL"`
}

// Load 按扩展名（.json 或 .toml）解析配置文件，再应用环境变量覆盖与默认值。
// path 为空时仅从环境变量读取配置。
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "read config file")
		}
		if err := decode(path, content, &cfg); err != nil {
			return nil, err
		}
		baseDir = filepath.Dir(path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	return &cfg, nil
}

func decode(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(content, cfg); err != nil {
			return apperrors.Wrap(apperrors.CodeConfiguration, err, "parse json config")
		}
	case ".toml":
		if _, err := toml.Decode(string(content), cfg); err != nil {
			return apperrors.Wrap(apperrors.CodeConfiguration, err, "parse toml config")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfiguration, "unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func (c *Config) applyEnv() error {
	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return apperrors.Wrap(apperrors.CodeConfiguration, err, "read environment")
	}
	set := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	set(&c.Wallet.PrivateKey, env.PrivateKey)
	set(&c.Wallet.Mnemonic, env.Mnemonic)
	set(&c.Wallet.TEEMode, env.TEEMode)
	set(&c.Wallet.KeystorePath, env.KeystorePath)
	set(&c.Wallet.KeystorePassword, env.KeystorePassword)
	set(&c.Chains.MainnetRPC, env.MainnetRPC)
	set(&c.Chains.TestnetRPC, env.TestnetRPC)
	set(&c.Chains.DefinitionsPath, env.ChainsFile)
	set(&c.Cache.Redis.Address, env.RedisAddr)
	set(&c.Cache.MySQL.DSN, env.MySQLDSN)
	set(&c.Events.RabbitMQ.URL, env.RabbitMQURL)
	set(&c.Server.Address, env.HTTPAddr)
	set(&c.Logging.Level, env.LogLevel)
	return nil
}

// applyDefaults 为文件与环境变量均未设置的字段填充默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Wallet.TEEMode == "" {
		c.Wallet.TEEMode = "OFF"
	}

	if c.Cache.Driver == "" {
		switch {
		case c.Cache.Redis.Address != "":
			c.Cache.Driver = DriverRedis
		case c.Cache.MySQL.DSN != "":
			c.Cache.Driver = DriverMySQL
		default:
			c.Cache.Driver = DriverMemory
		}
	}
	c.Cache.Driver = strings.ToLower(c.Cache.Driver)

	if len(c.Events.Drivers) == 0 && c.Events.RabbitMQ.URL != "" {
		c.Events.Drivers = []string{DriverRabbitMQ}
	}
	for i, d := range c.Events.Drivers {
		c.Events.Drivers[i] = strings.ToLower(strings.TrimSpace(d))
	}

	c.Chains.DefinitionsPath = resolve(baseDir, c.Chains.DefinitionsPath)
	c.Wallet.KeystorePath = resolve(baseDir, c.Wallet.KeystorePath)
	if c.Logging.Audit.Enabled {
		if c.Logging.Audit.Path == "" {
			c.Logging.Audit.Path = filepath.Join(baseDir, "logs", "audit.log")
		} else {
			c.Logging.Audit.Path = resolve(baseDir, c.Logging.Audit.Path)
		}
	}
}

// resolve 将相对路径解析为相对于配置文件所在目录。
func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
