package config

import (
	"context"
	"errors"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lightlink-network/plugin-lightlink/internal/cache"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/events"
	"github.com/lightlink-network/plugin-lightlink/internal/storage/mysql"
	"github.com/lightlink-network/plugin-lightlink/internal/storage/redis"
	"github.com/lightlink-network/plugin-lightlink/internal/wallet"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
)

// Catalog returns the built-in catalog with the chain overlay file and the
// LightLink endpoint overrides applied.
func Catalog(cfg *Config) (web3.Catalog, error) {
	defs, err := web3.LoadChainDefinitions(cfg.Chains.DefinitionsPath)
	if err != nil {
		return web3.Catalog{}, err
	}
	catalog, err := web3.DefaultCatalog().Merge(defs)
	if err != nil {
		return web3.Catalog{}, err
	}
	catalog = catalog.WithEndpoint(web3.ChainLightlink, cfg.Chains.MainnetRPC)
	catalog = catalog.WithEndpoint(web3.ChainLightlinkTestnet, cfg.Chains.TestnetRPC)
	return catalog, nil
}

// Credential picks the signing credential. Any TEE mode other than OFF is
// rejected.
func Credential(cfg *Config) (wallet.Credential, error) {
	w := cfg.Wallet
	if mode := strings.ToUpper(strings.TrimSpace(w.TEEMode)); mode != "" && mode != "OFF" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "TEE not supported")
	}
	switch {
	case w.PrivateKey != "":
		return wallet.FromPrivateKey(w.PrivateKey), nil
	case w.Mnemonic != "":
		path := w.DerivationPath
		if path == "" {
			path = wallet.DefaultDerivationPath
		}
		return wallet.FromMnemonicPath(w.Mnemonic, w.Passphrase, path), nil
	case w.KeystorePath != "":
		keyJSON, err := os.ReadFile(w.KeystorePath)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "read keystore")
		}
		return wallet.FromKeystore(keyJSON, w.KeystorePassword), nil
	}
	return nil, apperrors.New(apperrors.CodeConfiguration, "EVM_PRIVATE_KEY is missing")
}

// NewWallet builds the wallet with every catalog chain registered and
// lightlink current.
func NewWallet(cfg *Config, store cache.Store, opts ...wallet.Option) (*wallet.Wallet, error) {
	cred, err := Credential(cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := Catalog(cfg)
	if err != nil {
		return nil, err
	}
	base := []wallet.Option{
		wallet.WithCatalog(catalog),
		wallet.WithChains(catalog.All()...),
	}
	if cfg.Cache.TTL > 0 {
		base = append(base, wallet.WithCacheTTL(cfg.Cache.TTL))
	}
	return wallet.New(cred, store, append(base, opts...)...)
}

// OpenStore connects the persistent cache tier. The returned close function
// is never nil.
func OpenStore(ctx context.Context, cfg *Config) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Cache.Driver {
	case DriverMemory, "":
		return cache.NewMemoryStore(nil), noop, nil
	case DriverRedis:
		store, err := redis.New(ctx, cfg.Cache.Redis)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case DriverMySQL:
		store, err := mysql.Open(ctx, cfg.Cache.MySQL)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	}
	return nil, noop, apperrors.Newf(apperrors.CodeConfiguration, "unknown cache driver %q", cfg.Cache.Driver)
}

// OpenPublisher connects every configured event sink. No drivers yields a
// publisher that drops events.
func OpenPublisher(ctx context.Context, cfg *Config) (events.Publisher, error) {
	var sinks events.Fanout
	fail := func(err error) (events.Publisher, error) {
		_ = sinks.Close()
		return nil, err
	}
	for _, driver := range cfg.Events.Drivers {
		switch driver {
		case DriverMemory:
			sinks = append(sinks, events.NewMemoryPublisher(int(cfg.Events.MaxLen)))
		case DriverRabbitMQ:
			p, err := events.NewRabbitMQPublisher(cfg.Events.RabbitMQ)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, p)
		case DriverRedis:
			if cfg.Cache.Redis.Address == "" {
				return fail(apperrors.New(apperrors.CodeConfiguration, "redis events need cache.redis.address"))
			}
			client := goredis.NewClient(&goredis.Options{
				Addr:     cfg.Cache.Redis.Address,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				_ = client.Close()
				return fail(apperrors.Wrap(apperrors.CodePublishFailure, err, "connect redis"))
			}
			sinks = append(sinks, redisSink{
				RedisPublisher: events.NewRedisPublisher(client, cfg.Events.RedisList, cfg.Events.MaxLen),
				client:         client,
			})
		default:
			return fail(apperrors.Newf(apperrors.CodeConfiguration, "unknown event driver %q", driver))
		}
	}
	switch len(sinks) {
	case 0:
		return events.Nop{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}

// redisSink owns the client it publishes through.
type redisSink struct {
	*events.RedisPublisher
	client *goredis.Client
}

func (s redisSink) Close() error {
	return errors.Join(s.RedisPublisher.Close(), s.client.Close())
}
