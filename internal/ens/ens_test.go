package ens

import (
	"context"
	"errors"
	"math/big"
	"testing"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/provider"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

func TestNameHash(t *testing.T) {
	cases := map[string]string{
		"":        "0x0000000000000000000000000000000000000000000000000000000000000000",
		"eth":     "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae",
		"foo.eth": "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f",
		"Foo.ETH": "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f",
	}
	for name, want := range cases {
		got, err := NameHash(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got.Hex(), name)
	}
}

var (
	registryAddr = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	resolverAddr = common.HexToAddress("0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41")
	vitalik      = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
)

// ensBackend serves the registry and a single resolver.
type ensBackend struct {
	web3.Backend
	records map[common.Hash]common.Address
	calls   int
}

func (b *ensBackend) CallContract(_ context.Context, call gethcore.CallMsg, _ *big.Int) ([]byte, error) {
	b.calls++
	var node common.Hash
	copy(node[:], call.Data[4:36])
	switch *call.To {
	case registryAddr:
		if _, ok := b.records[node]; !ok {
			return registryABI.Methods["resolver"].Outputs.Pack(common.Address{})
		}
		return registryABI.Methods["resolver"].Outputs.Pack(resolverAddr)
	case resolverAddr:
		return resolverABI.Methods["addr"].Outputs.Pack(b.records[node])
	}
	return nil, errors.New("unexpected contract")
}

func newTestResolver(t *testing.T, backend *ensBackend) *Resolver {
	t.Helper()
	chain, err := web3.DefaultCatalog().Lookup("ethereum")
	require.NoError(t, err)
	dialer := provider.StaticDialer{chain.Endpoint(): backend}
	return NewResolver(chain, dialer, WithLogger(logger.Discard()))
}

func TestResolve(t *testing.T) {
	node, _ := NameHash("vitalik.eth")
	backend := &ensBackend{records: map[common.Hash]common.Address{node: vitalik}}
	r := newTestResolver(t, backend)
	ctx := context.Background()

	addr, err := r.Resolve(ctx, "vitalik.eth")
	require.NoError(t, err)
	assert.Equal(t, vitalik, addr)
	assert.Equal(t, 2, backend.calls)

	addr, err = r.Resolve(ctx, "Vitalik.eth")
	require.NoError(t, err)
	assert.Equal(t, vitalik, addr)
	assert.Equal(t, 2, backend.calls, "second lookup should be served from the cache")
}

func TestResolvePassesHexThrough(t *testing.T) {
	r := newTestResolver(t, &ensBackend{})
	addr, err := r.Resolve(context.Background(), vitalik.Hex())
	require.NoError(t, err)
	assert.Equal(t, vitalik, addr)
}

func TestResolveErrors(t *testing.T) {
	r := newTestResolver(t, &ensBackend{records: map[common.Hash]common.Address{}})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "nodots")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))

	_, err = r.Resolve(ctx, "missing.eth")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	chain, _ := web3.DefaultCatalog().Lookup("lightlink")
	noRegistry := NewResolver(chain, provider.StaticDialer{}, WithLogger(logger.Discard()))
	_, err = noRegistry.Resolve(ctx, "vitalik.eth")
	assert.True(t, errors.Is(err, apperrors.ErrUnsupported))
}
