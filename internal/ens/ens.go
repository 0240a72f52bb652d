// Package ens resolves ENS names to addresses through the on-chain registry.
package ens

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/net/idna"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethereum"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/provider"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

const (
	registryABIJSON = `[{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}]`
	resolverABIJSON = `[{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}]`

	defaultCacheSize = 256
	defaultCacheTTL  = 10 * time.Minute
)

var (
	registryABI = mustABI(registryABIJSON)
	resolverABI = mustABI(resolverABIJSON)

	profile = idna.New(idna.MapForLookup(), idna.StrictDomainName(false), idna.Transitional(false))
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Normalize applies UTS-46 mapping to name.
func Normalize(name string) (string, error) {
	out, err := profile.ToUnicode(name)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidArgument, err, "normalize ens name")
	}
	return out, nil
}

// NameHash computes the EIP-137 node of name.
func NameHash(name string) (common.Hash, error) {
	var node common.Hash
	if name == "" {
		return node, nil
	}
	normalized, err := Normalize(name)
	if err != nil {
		return node, err
	}
	labels := strings.Split(normalized, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node[:], label))
	}
	return node, nil
}

// Resolver resolves names against the registry of one chain and caches
// successful lookups.
type Resolver struct {
	chain  web3.ChainDescriptor
	dialer provider.Dialer
	cache  *expirable.LRU[string, common.Address]
	log    *slog.Logger
}

// Option customises a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	size int
	ttl  time.Duration
	log  *slog.Logger
}

// WithCache sets the LRU size and entry lifetime.
func WithCache(size int, ttl time.Duration) Option {
	return func(o *resolverOptions) {
		if size > 0 {
			o.size = size
		}
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *resolverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewResolver resolves names on chain, which must carry an ENS registry
// contract.
func NewResolver(chain web3.ChainDescriptor, dialer provider.Dialer, opts ...Option) *Resolver {
	o := resolverOptions{size: defaultCacheSize, ttl: defaultCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("ens")
	}
	return &Resolver{
		chain:  chain,
		dialer: dialer,
		cache:  expirable.NewLRU[string, common.Address](o.size, nil, o.ttl),
		log:    o.log,
	}
}

// Resolve returns the address for name. Hex addresses are returned as is.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	if !strings.Contains(name, ".") {
		return common.Address{}, apperrors.Newf(apperrors.CodeInvalidArgument, "unrecognized address: %s", name)
	}

	normalized, err := Normalize(name)
	if err != nil {
		return common.Address{}, err
	}
	if addr, ok := r.cache.Get(normalized); ok {
		return addr, nil
	}

	registry, ok := r.chain.Contract(web3.ContractENSRegistry)
	if !ok {
		return common.Address{}, apperrors.Newf(apperrors.CodeUnsupported, "chain %s has no ens registry", r.chain.Name)
	}
	node, err := NameHash(normalized)
	if err != nil {
		return common.Address{}, err
	}

	backend, err := r.dialer.Dial(ctx, r.chain)
	if err != nil {
		return common.Address{}, err
	}
	client := ethereum.NewPublicClient(r.chain, backend)
	defer client.Close()

	resolver, err := readAddress(ctx, client, registry, registryABI, "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	if resolver == (common.Address{}) {
		return common.Address{}, apperrors.Newf(apperrors.CodeNotFound, "no resolver for %s", normalized)
	}
	addr, err := readAddress(ctx, client, resolver, resolverABI, "addr", node)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, apperrors.Newf(apperrors.CodeNotFound, "%s has no address record", normalized)
	}

	r.cache.Add(normalized, addr)
	r.log.DebugContext(ctx, "resolved ens name", slog.String("name", normalized), slog.String("address", addr.Hex()))
	return addr, nil
}

func readAddress(ctx context.Context, client *ethereum.PublicClient, to common.Address, parsed abi.ABI, method string, node common.Hash) (common.Address, error) {
	out, err := client.ReadContract(ctx, to, parsed, method, node)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, apperrors.New(apperrors.CodeUpstreamFailure, method+" returned no value")
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, apperrors.New(apperrors.CodeUpstreamFailure, method+" returned an unexpected type")
	}
	return addr, nil
}
