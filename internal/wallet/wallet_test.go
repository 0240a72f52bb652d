package wallet

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/coocood/freecache"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/plugin-lightlink/internal/cache"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethtest"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/provider"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

const hardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var hardhatAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type freecacheTimer struct{ c *clock }

func (t freecacheTimer) Now() uint32 { return uint32(t.c.t.Unix()) }

// simWallet builds a wallet whose lightlink entry points at a simulated chain.
func simWallet(t *testing.T, sim *ethtest.Chain, store cache.Store, clk *clock, opts ...Option) *Wallet {
	t.Helper()
	catalog := web3.NewCatalog(map[web3.ChainKey]web3.ChainDescriptor{
		web3.ChainLightlink:        sim.Descriptor,
		web3.ChainLightlinkTestnet: sim.Descriptor,
	})
	fast := freecache.NewCacheCustomTimer(cache.DefaultFastCacheSize, freecacheTimer{c: clk})
	base := []Option{
		WithCatalog(catalog),
		WithDialer(provider.StaticDialer{ethtest.Endpoint: sim.Backend}),
		WithCacheOptions(cache.WithFastCache(fast), cache.WithClock(clk.Now)),
		WithLogger(logger.Discard()),
	}
	w, err := New(FromAccount(NewKeyAccount(sim.Key)), store, append(base, opts...)...)
	require.NoError(t, err)
	return w
}

func TestNewSeedsLightlink(t *testing.T) {
	w, err := New(FromPrivateKey(hardhatKey), nil, WithLogger(logger.Discard()))
	require.NoError(t, err)

	assert.Equal(t, hardhatAddress, w.Address())
	assert.Equal(t, []string{"lightlink"}, w.Chains())
	assert.Equal(t, "lightlink", w.CurrentChainName())
	assert.Equal(t, uint64(1890), w.CurrentChain().ID)
}

func TestNewWithChainsSelectsFirst(t *testing.T) {
	catalog := web3.DefaultCatalog()
	sepolia, err := catalog.Lookup("sepolia")
	require.NoError(t, err)
	eth, err := catalog.Lookup("eth")
	require.NoError(t, err)

	w, err := New(FromPrivateKey(strings.TrimPrefix(hardhatKey, "0x")), nil,
		WithChains(web3.NamedChain{Name: "sepolia", Chain: sepolia}, web3.NamedChain{Name: "ethereum", Chain: eth}),
		WithLogger(logger.Discard()))
	require.NoError(t, err)

	assert.Equal(t, "sepolia", w.CurrentChainName())
	assert.Equal(t, []string{"ethereum", "lightlink", "sepolia"}, w.Chains())
}

func TestNewRejectsBadCredentials(t *testing.T) {
	cases := map[string]Credential{
		"nil":         nil,
		"empty key":   FromPrivateKey(""),
		"short key":   FromPrivateKey("0x1234"),
		"nil account": FromAccount(nil),
		"bad phrase":  FromMnemonic("not a real mnemonic", ""),
		"bad json":    FromKeystore([]byte("{}"), "pw"),
	}
	for name, cred := range cases {
		_, err := New(cred, nil)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration, name)
	}
}

func TestPrivateKeyErrorsDoNotLeakKey(t *testing.T) {
	secret := "0x" + strings.Repeat("zz", 32)
	_, err := New(FromPrivateKey(secret), nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "zz")
}

func TestNewRejectsZeroIDChains(t *testing.T) {
	_, err := New(FromPrivateKey(hardhatKey), nil,
		WithChains(web3.NamedChain{Name: "broken", Chain: web3.ChainDescriptor{Name: "Broken"}}))
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestPublicClientNormalisesAndValidates(t *testing.T) {
	w, err := New(FromPrivateKey(hardhatKey), nil,
		WithDialer(provider.DialFunc(func(context.Context, web3.ChainDescriptor) (web3.Backend, error) { return nil, nil })),
		WithLogger(logger.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	for _, alias := range []string{"lightlink", "phoenix", "mainnet"} {
		client, err := w.PublicClient(ctx, alias)
		require.NoError(t, err, alias)
		assert.Equal(t, uint64(1890), client.Chain().ID)
	}

	_, err = w.PublicClient(ctx, "pegasus")
	require.ErrorIs(t, err, apperrors.ErrUnknownChain)
	assert.EqualError(t, err, "invalid chain name: lightlinkTestnet")

	_, err = w.WalletClient(ctx, "polygon")
	assert.EqualError(t, err, "invalid chain name: polygon")
}

func TestChainConfigUsesCatalog(t *testing.T) {
	w, err := New(FromPrivateKey(hardhatKey), nil, WithLogger(logger.Discard()))
	require.NoError(t, err)

	chain, err := w.ChainConfig("testnet")
	require.NoError(t, err)
	assert.Equal(t, uint64(1891), chain.ID)
	assert.False(t, w.HasChain("testnet"))

	_, err = w.ChainConfig("polygon")
	assert.EqualError(t, err, "unknown chain: polygon")
}

func TestSwitchChainRegistersFromCatalog(t *testing.T) {
	var dialed []string
	dialer := provider.DialFunc(func(_ context.Context, chain web3.ChainDescriptor) (web3.Backend, error) {
		dialed = append(dialed, chain.Endpoint())
		return nil, nil
	})
	w, err := New(FromPrivateKey(hardhatKey), nil, WithDialer(dialer), WithLogger(logger.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, w.SwitchChain("pegasus", "https://rpc.example/pegasus"))
	assert.Equal(t, "lightlinkTestnet", w.CurrentChainName())
	assert.True(t, w.HasChain("testnet"))

	_, err = w.PublicClient(ctx, "lightlinkTestnet")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rpc.example/pegasus"}, dialed)

	// An existing entry keeps its endpoint.
	require.NoError(t, w.SwitchChain("lightlinkTestnet", "https://other.example"))
	assert.Equal(t, []string{"https://rpc.example/pegasus"}, w.CurrentChain().RPC.Custom)

	err = w.SwitchChain("polygon", "")
	assert.EqualError(t, err, "invalid chain name: polygon")
	assert.Equal(t, "lightlinkTestnet", w.CurrentChainName())
}

func TestAddChainRejectsZeroID(t *testing.T) {
	w, err := New(FromPrivateKey(hardhatKey), nil, WithLogger(logger.Discard()))
	require.NoError(t, err)

	sepolia, _ := web3.DefaultCatalog().Lookup("sepolia")
	err = w.AddChain(web3.NamedChain{Name: "sepolia", Chain: sepolia}, web3.NamedChain{Name: "zero"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.False(t, w.HasChain("sepolia"))

	require.NoError(t, w.AddChain(web3.NamedChain{Name: "sepolia", Chain: sepolia}))
	assert.True(t, w.HasChain("sepolia"))
	assert.Equal(t, "lightlink", w.CurrentChainName())
}

func TestAddChainClientsPreferCustomEndpoint(t *testing.T) {
	var dialed []string
	dialer := provider.DialFunc(func(_ context.Context, chain web3.ChainDescriptor) (web3.Backend, error) {
		dialed = append(dialed, chain.Endpoint())
		return nil, nil
	})
	w, err := New(FromPrivateKey(hardhatKey), nil, WithDialer(dialer), WithLogger(logger.Discard()))
	require.NoError(t, err)
	ctx := context.Background()

	x := web3.ChainDescriptor{ID: 42, Name: "X", RPC: web3.RPCEndpoints{
		Default: []string{"http://def-x"},
		Custom:  []string{"http://custom"},
	}}
	y := web3.ChainDescriptor{ID: 43, Name: "Y", RPC: web3.RPCEndpoints{Default: []string{"http://def-y"}}}
	require.NoError(t, w.AddChain(web3.NamedChain{Name: "x", Chain: x}, web3.NamedChain{Name: "y", Chain: y}))

	pub, err := w.PublicClient(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), pub.Chain().ID)
	_, err = w.PublicClient(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://custom", "http://def-y"}, dialed)

	require.NoError(t, w.SwitchChain("x", ""))
	assert.Equal(t, "x", w.CurrentChainName())
	assert.Equal(t, uint64(42), w.CurrentChain().ID)
}

func TestFromMnemonicDerivesFirstAccount(t *testing.T) {
	account, err := FromMnemonic("test test test test test test test test test test test junk", "")()
	require.NoError(t, err)
	assert.Equal(t, hardhatAddress, account.Address())

	second, err := FromMnemonicPath("test test test test test test test test test test test junk", "", "m/44'/60'/0'/0/1")()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), second.Address())
}

func TestWalletBalanceIsCached(t *testing.T) {
	sim := ethtest.NewChain(t, new(big.Int).Mul(big.NewInt(5), ethtest.OneEther))
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	store := cache.NewMemoryStore(clk.Now)
	w := simWallet(t, sim, store, clk)
	ctx := context.Background()

	balance, ok := w.WalletBalance(ctx)
	require.True(t, ok)
	assert.Equal(t, "5", balance)

	key := "evm/wallet/" + strings.ToLower(w.Address().Hex()) + "/walletBalance_lightlink"
	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "balance should be written through to the store")

	half := new(big.Int).Div(ethtest.OneEther, big.NewInt(2))
	sim.Fund(t, common.HexToAddress("0x000000000000000000000000000000000000dEaD"), half)

	balance, ok = w.WalletBalance(ctx)
	require.True(t, ok)
	assert.Equal(t, "5", balance, "cached value expected within the ttl")

	fresh, ok := w.WalletBalanceForChain(ctx, "phoenix")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(fresh, "4.49"), "uncached balance %s", fresh)

	clk.Advance(6 * time.Second)
	balance, ok = w.WalletBalance(ctx)
	require.True(t, ok)
	assert.Equal(t, fresh, balance)
}

func TestWalletBalanceSharesPersistentTier(t *testing.T) {
	sim := ethtest.NewChain(t, ethtest.OneEther)
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	store := cache.NewMemoryStore(clk.Now)
	ctx := context.Background()

	first := simWallet(t, sim, store, clk)
	balance, ok := first.WalletBalance(ctx)
	require.True(t, ok)
	assert.Equal(t, "1", balance)

	sim.Fund(t, common.HexToAddress("0x000000000000000000000000000000000000dEaD"), big.NewInt(1))

	second := simWallet(t, sim, store, clk)
	balance, ok = second.WalletBalance(ctx)
	require.True(t, ok)
	assert.Equal(t, "1", balance, "second wallet should read the persisted entry")
}

func TestWalletBalanceKeysByCurrentChain(t *testing.T) {
	sim := ethtest.NewChain(t, ethtest.OneEther)
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	store := cache.NewMemoryStore(clk.Now)
	w := simWallet(t, sim, store, clk)
	ctx := context.Background()

	_, ok := w.WalletBalance(ctx)
	require.True(t, ok)
	require.NoError(t, w.SwitchChain("testnet", ""))
	_, ok = w.WalletBalance(ctx)
	require.True(t, ok)

	prefix := "evm/wallet/" + strings.ToLower(w.Address().Hex()) + "/walletBalance_"
	for _, chain := range []string{"lightlink", "lightlinkTestnet"} {
		_, ok, err := store.Get(ctx, prefix+chain)
		require.NoError(t, err)
		assert.True(t, ok, chain)
	}
}

func TestWalletBalanceSuppressesFailures(t *testing.T) {
	dialer := provider.DialFunc(func(context.Context, web3.ChainDescriptor) (web3.Backend, error) {
		return nil, errors.New("connection refused")
	})
	w, err := New(FromPrivateKey(hardhatKey), cache.NewMemoryStore(nil), WithDialer(dialer), WithLogger(logger.Discard()))
	require.NoError(t, err)

	balance, ok := w.WalletBalance(context.Background())
	assert.False(t, ok)
	assert.Empty(t, balance)

	_, ok = w.WalletBalanceForChain(context.Background(), "polygon")
	assert.False(t, ok)
}

func TestFromKeystoreRoundTrip(t *testing.T) {
	priv, err := crypto.HexToECDSA(strings.TrimPrefix(hardhatKey, "0x"))
	require.NoError(t, err)
	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Id:         uuid.New(),
		Address:    hardhatAddress,
		PrivateKey: priv,
	}, "correct horse", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	account, err := FromKeystore(encrypted, "correct horse")()
	require.NoError(t, err)
	assert.Equal(t, hardhatAddress, account.Address())

	_, err = FromKeystore(encrypted, "wrong")()
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}
