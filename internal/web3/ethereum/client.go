package ethereum

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

const defaultPollInterval = time.Second

// PublicClient performs read-only calls against one chain.
type PublicClient struct {
	chain        web3.ChainDescriptor
	backend      web3.Backend
	pollInterval time.Duration
	log          *slog.Logger
}

// Option customises a PublicClient.
type Option func(*PublicClient)

// WithPollInterval sets how often WaitForReceipt polls for a receipt.
func WithPollInterval(d time.Duration) Option {
	return func(c *PublicClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger receipt polling reports failed attempts to.
func WithLogger(log *slog.Logger) Option {
	return func(c *PublicClient) {
		if log != nil {
			c.log = log
		}
	}
}

// NewPublicClient binds backend to chain.
func NewPublicClient(chain web3.ChainDescriptor, backend web3.Backend, opts ...Option) *PublicClient {
	c := &PublicClient{chain: chain, backend: backend, pollInterval: defaultPollInterval, log: logger.Named("ethereum")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chain returns the descriptor the client is bound to.
func (c *PublicClient) Chain() web3.ChainDescriptor {
	return c.chain
}

// Backend exposes the underlying RPC capability.
func (c *PublicClient) Backend() web3.Backend {
	return c.backend
}

// Close releases the connection when the backend holds one.
func (c *PublicClient) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Balance returns the latest native balance of account in wei.
func (c *PublicClient) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "get balance")
	}
	return balance, nil
}

// ReadContract packs method with args, executes an eth_call against to and
// unpacks the outputs.
func (c *PublicClient) ReadContract(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "pack "+method)
	}
	out, err := c.backend.CallContract(ctx, gethcore.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "call "+method)
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "unpack "+method)
	}
	return values, nil
}

// WaitForReceipt polls until the transaction is mined or ctx ends. Node
// errors such as "transaction indexing is in progress" are retried.
func (c *PublicClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*coretypes.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	attempt := 0
	for {
		attempt++
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, gethcore.NotFound) && ctx.Err() == nil {
			c.log.DebugContext(ctx, "get receipt failed, retrying",
				slog.String("hash", hash.Hex()),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.CodeTimeout, ctx.Err(), "wait for receipt "+hash.Hex())
		case <-ticker.C:
		}
	}
}

// Signer signs transactions on behalf of one address.
type Signer interface {
	Address() common.Address
	SignTx(tx *coretypes.Transaction, chainID *big.Int) (*coretypes.Transaction, error)
}

// TxRequest describes a transaction to fill, sign and broadcast. A zero Gas
// asks the node for an estimate.
type TxRequest struct {
	To    *common.Address
	Value *big.Int
	Data  []byte
	Gas   uint64
}

// WalletClient is a PublicClient that can also sign and send.
type WalletClient struct {
	*PublicClient
	signer Signer
}

// NewWalletClient pairs a read client with a signer.
func NewWalletClient(pub *PublicClient, signer Signer) *WalletClient {
	return &WalletClient{PublicClient: pub, signer: signer}
}

// Address returns the signing account.
func (w *WalletClient) Address() common.Address {
	return w.signer.Address()
}

// SendTransaction fills nonce, gas and fees, signs req and broadcasts it.
// EIP-1559 fees are used when the latest header carries a base fee.
func (w *WalletClient) SendTransaction(ctx context.Context, req TxRequest) (*coretypes.Transaction, error) {
	from := w.signer.Address()
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "get nonce")
	}

	gas := req.Gas
	if gas == 0 {
		gas, err = w.backend.EstimateGas(ctx, gethcore.CallMsg{From: from, To: req.To, Value: value, Data: req.Data})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeTransactionFailed, err, "estimate gas")
		}
	}

	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "get latest header")
	}

	chainID := w.chain.ChainID()
	var tx *coretypes.Transaction
	if head.BaseFee != nil {
		tip, err := w.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "suggest gas tip")
		}
		feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
		tx = coretypes.NewTx(&coretypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        req.To,
			Value:     value,
			Data:      req.Data,
		})
	} else {
		price, err := w.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "suggest gas price")
		}
		tx = coretypes.NewTx(&coretypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       req.To,
			Value:    value,
			Data:     req.Data,
		})
	}

	signed, err := w.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransactionFailed, err, "sign transaction")
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransactionFailed, err, "send transaction")
	}
	return signed, nil
}

// DecodeHexData decodes call data, accepting "", "0x" and 0x-prefixed hex.
func DecodeHexData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "0x") {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "call data must be 0x-prefixed hex: %s", s)
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "decode call data")
	}
	return data, nil
}
