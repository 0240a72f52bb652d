package provider

import (
	"context"
	"testing"

	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethtest"
)

func TestStaticDialerSelectsCustomEndpoint(t *testing.T) {
	chain := ethtest.NewChain(t, ethtest.OneEther)
	other := ethtest.NewChain(t, ethtest.OneEther)

	dialer := StaticDialer{
		ethtest.Endpoint:     chain.Backend,
		"http://custom.node": other.Backend,
	}
	ctx := context.Background()

	got, err := dialer.Dial(ctx, ethtest.Descriptor())
	if err != nil {
		t.Fatal(err)
	}
	if got != chain.Backend {
		t.Fatal("expected default endpoint backend")
	}

	got, err = dialer.Dial(ctx, ethtest.Descriptor().WithCustomRPC("http://custom.node"))
	if err != nil {
		t.Fatal(err)
	}
	if got != other.Backend {
		t.Fatal("expected custom endpoint backend")
	}

	if _, err := dialer.Dial(ctx, web3.ChainDescriptor{ID: 5}); err == nil {
		t.Fatal("expected error for unknown endpoint")
	}
}

func TestEthDialerRequiresEndpoint(t *testing.T) {
	if _, err := (EthDialer{}).Dial(context.Background(), web3.ChainDescriptor{ID: 1, Name: "empty"}); err == nil {
		t.Fatal("expected configuration error")
	}

	backend, err := (EthDialer{}).Dial(context.Background(), web3.ChainDescriptor{
		ID:  1,
		RPC: web3.RPCEndpoints{Default: []string{"http://127.0.0.1:1"}},
	})
	if err != nil {
		t.Fatalf("http dial should be lazy: %v", err)
	}
	if closer, ok := backend.(interface{ Close() }); ok {
		closer.Close()
	}
}
