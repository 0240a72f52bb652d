// Package ethtest spins up in-process EVM chains for tests.
package ethtest

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"

	"github.com/lightlink-network/plugin-lightlink/internal/web3"
)

// ChainID is the id the simulated backend signs with.
const ChainID = 1337

// Endpoint is the pseudo RPC url the simulated chain is registered under.
const Endpoint = "simulated://1337"

// OneEther is 10^18 wei.
var OneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Chain is a funded simulated chain.
type Chain struct {
	Sim        *simulated.Backend
	Backend    web3.Backend
	Descriptor web3.ChainDescriptor
	Key        *ecdsa.PrivateKey
	Address    common.Address
}

// NewChain starts a simulated chain whose genesis funds a fresh key with
// funds wei. The chain mines a block after every accepted transaction.
func NewChain(t testing.TB, funds *big.Int) *Chain {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	sim := simulated.NewBackend(types.GenesisAlloc{addr: {Balance: funds}})
	t.Cleanup(func() { _ = sim.Close() })

	return &Chain{
		Sim:        sim,
		Backend:    &autoMine{Client: sim.Client(), sim: sim},
		Descriptor: Descriptor(),
		Key:        key,
		Address:    addr,
	}
}

// Descriptor describes the simulated chain.
func Descriptor() web3.ChainDescriptor {
	return web3.ChainDescriptor{
		ID:             ChainID,
		Name:           "Simulated",
		NativeCurrency: web3.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		RPC:            web3.RPCEndpoints{Default: []string{Endpoint}},
		Explorer:       web3.Explorer{Name: "None", URL: "http://explorer.invalid"},
	}
}

// Fund transfers amount wei from the chain's funded key to to.
func (c *Chain) Fund(t testing.TB, to common.Address, amount *big.Int) {
	t.Helper()
	ctx := context.Background()

	nonce, err := c.Backend.PendingNonceAt(ctx, c.Address)
	if err != nil {
		t.Fatalf("pending nonce: %v", err)
	}
	head, err := c.Backend.HeaderByNumber(ctx, nil)
	if err != nil {
		t.Fatalf("latest header: %v", err)
	}
	tip := big.NewInt(1_000_000_000)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(ChainID),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip),
		Gas:       21_000,
		To:        &to,
		Value:     amount,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(ChainID)), c.Key)
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	if err := c.Backend.SendTransaction(ctx, signed); err != nil {
		t.Fatalf("send tx: %v", err)
	}
}

type autoMine struct {
	simulated.Client
	sim *simulated.Backend
}

func (a *autoMine) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := a.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	a.sim.Commit()
	return nil
}
