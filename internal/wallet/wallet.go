// Package wallet binds a signing account to a registry of EVM chains. A
// Wallet tracks the current chain, hands out RPC clients per chain and
// caches the native balance of the account through a two-tier cache.
package wallet

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/plugin-lightlink/internal/cache"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethereum"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/provider"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

const (
	// DefaultChain is always present in a new wallet's registry.
	DefaultChain = string(web3.ChainLightlink)

	cacheNamespace   = "evm/wallet"
	balanceKeyPrefix = "walletBalance_"
)

// Wallet is one agent session's view of its account and chains.
//
// A Wallet is not safe for concurrent use: the chain registry and the
// current chain are plain fields mutated by AddChain and SwitchChain.
type Wallet struct {
	account      Account
	catalog      web3.Catalog
	chains       map[string]web3.ChainDescriptor
	current      string
	dialer       provider.Dialer
	cache        *cache.TwoTier
	pollInterval time.Duration
	log          *slog.Logger
}

type options struct {
	catalog      *web3.Catalog
	chains       []web3.NamedChain
	dialer       provider.Dialer
	cacheTTL     time.Duration
	cacheOpts    []cache.Option
	pollInterval time.Duration
	log          *slog.Logger
}

// Option customises a Wallet.
type Option func(*options)

// WithCatalog replaces web3.DefaultCatalog as the source of chain configs.
func WithCatalog(c web3.Catalog) Option {
	return func(o *options) { o.catalog = &c }
}

// WithChains registers chains in order. The first one becomes the current
// chain.
func WithChains(chains ...web3.NamedChain) Option {
	return func(o *options) { o.chains = append(o.chains, chains...) }
}

// WithDialer sets how chain endpoints become RPC backends.
func WithDialer(d provider.Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithCacheTTL overrides the balance cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

// WithCacheOptions passes extra options to the balance cache.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) { o.cacheOpts = append(o.cacheOpts, opts...) }
}

// WithPollInterval sets how often clients poll for receipts.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithLogger sets the wallet logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New builds a wallet for cred. store backs the persistent balance cache and
// may be nil to keep balances in process only.
func New(cred Credential, store cache.Store, opts ...Option) (*Wallet, error) {
	if cred == nil {
		return nil, apperrors.New(apperrors.CodeConfiguration, "wallet credential is required")
	}
	account, err := cred()
	if err != nil {
		return nil, err
	}

	o := options{dialer: provider.EthDialer{}, cacheTTL: cache.DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	catalog := web3.DefaultCatalog()
	if o.catalog != nil {
		catalog = *o.catalog
	}
	log := o.log
	if log == nil {
		log = logger.Named("wallet")
	}

	seed, err := catalog.Lookup(DefaultChain)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "catalog has no default chain")
	}

	w := &Wallet{
		account:      account,
		catalog:      catalog,
		chains:       map[string]web3.ChainDescriptor{DefaultChain: seed},
		current:      DefaultChain,
		dialer:       o.dialer,
		pollInterval: o.pollInterval,
		log:          log.With(slog.String("address", account.Address().Hex())),
	}
	if len(o.chains) > 0 {
		if err := w.AddChain(o.chains...); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "register chains")
		}
		w.current = o.chains[0].Name
	}

	cacheOpts := append([]cache.Option{
		cache.WithTTL(o.cacheTTL),
		cache.WithNamespace(cacheNamespace + "/" + strings.ToLower(account.Address().Hex())),
		cache.WithLogger(w.log),
	}, o.cacheOpts...)
	w.cache = cache.New(store, cacheOpts...)
	return w, nil
}

// Address returns the signing address.
func (w *Wallet) Address() common.Address {
	return w.account.Address()
}

// Account returns the signing account.
func (w *Wallet) Account() Account {
	return w.account
}

// Dialer returns the dialer the wallet builds clients with.
func (w *Wallet) Dialer() provider.Dialer {
	return w.dialer
}

// Catalog returns the canonical chain table the wallet was built with.
func (w *Wallet) Catalog() web3.Catalog {
	return w.catalog
}

// CurrentChainName returns the registry key of the current chain.
func (w *Wallet) CurrentChainName() string {
	return w.current
}

// CurrentChain returns the descriptor of the current chain.
func (w *Wallet) CurrentChain() web3.ChainDescriptor {
	return w.chains[w.current]
}

// Chains returns the registered chain keys in sorted order.
func (w *Wallet) Chains() []string {
	keys := make([]string, 0, len(w.chains))
	for key := range w.chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// HasChain reports whether name, after alias normalisation, is registered.
func (w *Wallet) HasChain(name string) bool {
	_, ok := w.chains[web3.ValidateName(name)]
	return ok
}

// ChainConfig returns the canonical catalog entry for name, ignoring the
// wallet registry.
func (w *Wallet) ChainConfig(name string) (web3.ChainDescriptor, error) {
	return w.catalog.Lookup(name)
}

// AddChain registers or overwrites chains. Descriptors without an id are
// rejected and leave the registry untouched.
func (w *Wallet) AddChain(chains ...web3.NamedChain) error {
	for _, nc := range chains {
		if nc.Name == "" {
			return apperrors.New(apperrors.CodeInvalidArgument, "chain key is empty")
		}
		if !nc.Chain.Valid() {
			return apperrors.Newf(apperrors.CodeInvalidArgument, "chain %s has no id", nc.Name)
		}
	}
	for _, nc := range chains {
		w.chains[nc.Name] = nc.Chain.Clone()
	}
	return nil
}

// SwitchChain makes name the current chain, registering it from the catalog
// with customRPC when it is not yet known. An empty customRPC keeps the
// default endpoints.
func (w *Wallet) SwitchChain(name, customRPC string) error {
	key := web3.ValidateName(name)
	if _, ok := w.chains[key]; !ok {
		chain, err := w.catalog.GenChainFromName(key, customRPC)
		if err != nil {
			return err
		}
		w.chains[key] = chain
		w.log.Info("registered chain", slog.String("chain", key), slog.Uint64("chain_id", chain.ID))
	}
	w.current = key
	return nil
}

func (w *Wallet) registered(name string) (web3.ChainDescriptor, error) {
	key := web3.ValidateName(name)
	chain, ok := w.chains[key]
	if !ok || !chain.Valid() {
		return web3.ChainDescriptor{}, apperrors.Newf(apperrors.CodeUnknownChain, "invalid chain name: %s", key)
	}
	return chain, nil
}

// PublicClient returns a fresh read client for a registered chain. The
// custom endpoint is used when one is set.
func (w *Wallet) PublicClient(ctx context.Context, name string) (*ethereum.PublicClient, error) {
	chain, err := w.registered(name)
	if err != nil {
		return nil, err
	}
	backend, err := w.dialer.Dial(ctx, chain)
	if err != nil {
		return nil, err
	}
	return ethereum.NewPublicClient(chain, backend,
		ethereum.WithPollInterval(w.pollInterval),
		ethereum.WithLogger(w.log)), nil
}

// WalletClient returns a fresh signing client for a registered chain.
func (w *Wallet) WalletClient(ctx context.Context, name string) (*ethereum.WalletClient, error) {
	pub, err := w.PublicClient(ctx, name)
	if err != nil {
		return nil, err
	}
	return ethereum.NewWalletClient(pub, w.account), nil
}

// WalletBalance returns the formatted native balance on the current chain,
// served from the cache when fresh. ok is false when the balance could not
// be fetched; the failure is logged.
func (w *Wallet) WalletBalance(ctx context.Context) (balance string, ok bool) {
	chain := w.current
	key := balanceKeyPrefix + chain
	if cached, hit := w.cache.Get(ctx, key); hit {
		w.log.DebugContext(ctx, "wallet balance served from cache", slog.String("chain", chain))
		return cached, true
	}

	balance, err := w.fetchBalance(ctx, chain)
	if err != nil {
		w.warnBalance(ctx, chain, err)
		return "", false
	}
	w.cache.Set(ctx, key, balance)
	w.log.DebugContext(ctx, "wallet balance cached", slog.String("chain", chain))
	return balance, true
}

// WalletBalanceForChain returns the formatted native balance on name without
// touching the cache.
func (w *Wallet) WalletBalanceForChain(ctx context.Context, name string) (string, bool) {
	balance, err := w.fetchBalance(ctx, name)
	if err != nil {
		w.warnBalance(ctx, name, err)
		return "", false
	}
	return balance, true
}

func (w *Wallet) fetchBalance(ctx context.Context, name string) (string, error) {
	client, err := w.PublicClient(ctx, name)
	if err != nil {
		return "", err
	}
	defer client.Close()

	wei, err := client.Balance(ctx, w.account.Address())
	if err != nil {
		return "", err
	}
	decimals := client.Chain().NativeCurrency.Decimals
	if decimals == 0 {
		decimals = web3.EtherDecimals
	}
	return web3.FormatUnits(wei, decimals), nil
}

func (w *Wallet) warnBalance(ctx context.Context, chain string, err error) {
	w.log.WarnContext(ctx, "get wallet balance failed",
		slog.String("chain", chain),
		slog.String("code", string(apperrors.CodeOf(err))),
		slog.Any("error", err))
}
