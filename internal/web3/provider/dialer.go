// Package provider turns chain descriptors into live RPC backends.
package provider

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
)

// Dialer connects to the endpoint selected by a chain descriptor.
type Dialer interface {
	Dial(ctx context.Context, chain web3.ChainDescriptor) (web3.Backend, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, chain web3.ChainDescriptor) (web3.Backend, error)

// Dial calls f.
func (f DialFunc) Dial(ctx context.Context, chain web3.ChainDescriptor) (web3.Backend, error) {
	return f(ctx, chain)
}

// EthDialer dials JSON-RPC endpoints with go-ethereum's ethclient. HTTP
// endpoints are connected lazily, so dialing per call stays cheap.
type EthDialer struct{}

// Dial opens a client against chain.Endpoint().
func (EthDialer) Dial(ctx context.Context, chain web3.ChainDescriptor) (web3.Backend, error) {
	endpoint := chain.Endpoint()
	if endpoint == "" {
		return nil, apperrors.Newf(apperrors.CodeConfiguration, "chain %s has no rpc endpoint", chain.Name)
	}
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "dial "+endpoint)
	}
	return client, nil
}

// StaticDialer serves pre-built backends keyed by endpoint url. It lets tests
// and embedded nodes stand in for remote RPC servers.
type StaticDialer map[string]web3.Backend

// Dial returns the backend registered for chain.Endpoint().
func (d StaticDialer) Dial(_ context.Context, chain web3.ChainDescriptor) (web3.Backend, error) {
	endpoint := strings.TrimSpace(chain.Endpoint())
	backend, ok := d[endpoint]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUpstreamFailure, "no backend for endpoint %q", endpoint)
	}
	return backend, nil
}
