package dex

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethereum"
)

var (
	tokenA  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	owner   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	fixedAt = time.Unix(1_700_000_000, 0)
)

// dexBackend answers quoter, ERC-20 and Permit2 calls from fixed state.
type dexBackend struct {
	web3.Backend
	amountOut      *big.Int
	tokenAllowance *big.Int
	permit2Amount  *big.Int
	permit2Expiry  int64
	lastQuote      QuoteExactInputSingleParams
	quoterFailure  error
}

func (b *dexBackend) CallContract(_ context.Context, call gethcore.CallMsg, _ *big.Int) ([]byte, error) {
	for _, parsed := range []abi.ABI{QuoterABI, Permit2ABI, ethereum.ERC20ABI} {
		method, err := parsed.MethodById(call.Data[:4])
		if err != nil {
			continue
		}
		args, err := method.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "quoteExactInputSingle":
			if b.quoterFailure != nil {
				return nil, b.quoterFailure
			}
			b.lastQuote = *abi.ConvertType(args[0], new(QuoteExactInputSingleParams)).(*QuoteExactInputSingleParams)
			return method.Outputs.Pack(b.amountOut, big.NewInt(0), uint32(1), big.NewInt(90_000))
		case "allowance":
			if len(args) == 3 {
				return method.Outputs.Pack(b.permit2Amount, big.NewInt(b.permit2Expiry), big.NewInt(0))
			}
			return method.Outputs.Pack(b.tokenAllowance)
		}
	}
	return nil, errors.New("unexpected call")
}

func lightlink(t *testing.T) web3.ChainDescriptor {
	t.Helper()
	chain, err := web3.DefaultCatalog().Lookup("lightlink")
	require.NoError(t, err)
	return chain
}

func TestQuoteExactInput(t *testing.T) {
	backend := &dexBackend{amountOut: big.NewInt(2_500_000)}
	client := ethereum.NewPublicClient(lightlink(t), backend)

	q, err := NewQuoter(client)
	require.NoError(t, err)

	quote, err := q.QuoteExactInput(context.Background(), QuoteRequest{TokenIn: tokenA, TokenOut: tokenB, AmountIn: big.NewInt(1_000)})
	require.NoError(t, err)
	assert.Equal(t, "2500000", quote.AmountOut.String())
	assert.Equal(t, DefaultFee, quote.Fee)
	assert.Equal(t, "90000", quote.GasEstimate.String())

	assert.Equal(t, tokenA, backend.lastQuote.TokenIn)
	assert.Equal(t, tokenB, backend.lastQuote.TokenOut)
	assert.Equal(t, int64(3000), backend.lastQuote.Fee.Int64())
	assert.Zero(t, backend.lastQuote.SqrtPriceLimitX96.Sign())
}

func TestQuoteRejectsBadRequests(t *testing.T) {
	backend := &dexBackend{amountOut: big.NewInt(1)}
	q, err := NewQuoter(ethereum.NewPublicClient(lightlink(t), backend))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = q.QuoteExactInput(ctx, QuoteRequest{TokenIn: tokenA, TokenOut: tokenB})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = q.QuoteExactInput(ctx, QuoteRequest{TokenIn: tokenA, TokenOut: tokenA, AmountIn: big.NewInt(1)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	backend.quoterFailure = errors.New("execution reverted")
	_, err = q.QuoteExactInput(ctx, QuoteRequest{TokenIn: tokenA, TokenOut: tokenB, AmountIn: big.NewInt(1)})
	assert.Equal(t, apperrors.CodeUpstreamFailure, apperrors.CodeOf(err))
}

func TestQuoterUnsupportedWithoutContract(t *testing.T) {
	testnet, err := web3.DefaultCatalog().Lookup("testnet")
	require.NoError(t, err)

	_, err = NewQuoter(ethereum.NewPublicClient(testnet, &dexBackend{}))
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
}

func TestBuildSwapWithoutAllowances(t *testing.T) {
	chain := lightlink(t)
	backend := &dexBackend{tokenAllowance: big.NewInt(0), permit2Amount: big.NewInt(0)}
	builder, err := NewBuilder(ethereum.NewPublicClient(chain, backend), WithClock(func() time.Time { return fixedAt }))
	require.NoError(t, err)

	plan, err := builder.BuildSwap(context.Background(), SwapRequest{
		TokenIn:   tokenA,
		TokenOut:  tokenB,
		AmountIn:  big.NewInt(1_000),
		AmountOut: big.NewInt(2_000),
		Recipient: owner,
	})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, "1900", plan.MinAmountOut.String())
	assert.Equal(t, fixedAt.Add(20*time.Minute), plan.Deadline)

	permit2, _ := chain.Contract(web3.ContractPermit2)
	router, _ := chain.Contract(web3.ContractUniversalRouter)

	approve := plan.Steps[0]
	assert.Equal(t, tokenA, *approve.Tx.To)
	args, err := ethereum.ERC20ABI.Methods["approve"].Inputs.Unpack(approve.Tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, permit2, args[0])

	assert.Equal(t, permit2, *plan.Steps[1].Tx.To)

	swap := plan.Steps[2]
	assert.Equal(t, router, *swap.Tx.To)
	assert.Equal(t, RouterABI.Methods["execute"].ID, swap.Tx.Data[:4])
	execArgs, err := RouterABI.Methods["execute"].Inputs.Unpack(swap.Tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, execArgs[0])

	inputs := execArgs[1].([][]byte)
	require.Len(t, inputs, 1)
	decoded, err := v3SwapExactInArgs.Unpack(inputs[0])
	require.NoError(t, err)
	assert.Equal(t, owner, decoded[0])
	assert.Equal(t, "1000", decoded[1].(*big.Int).String())
	assert.Equal(t, "1900", decoded[2].(*big.Int).String())
	assert.Equal(t, EncodePath(tokenA, 3000, tokenB), decoded[3])
	assert.Equal(t, true, decoded[4])
}

func TestBuildSwapSkipsSatisfiedAllowances(t *testing.T) {
	backend := &dexBackend{
		tokenAllowance: big.NewInt(10_000),
		permit2Amount:  big.NewInt(10_000),
		permit2Expiry:  fixedAt.Add(24 * time.Hour).Unix(),
	}
	builder, err := NewBuilder(ethereum.NewPublicClient(lightlink(t), backend), WithClock(func() time.Time { return fixedAt }))
	require.NoError(t, err)

	plan, err := builder.BuildSwap(context.Background(), SwapRequest{
		TokenIn:   tokenA,
		TokenOut:  tokenB,
		AmountIn:  big.NewInt(1_000),
		AmountOut: big.NewInt(2_000),
		Slippage:  0.01,
		Recipient: owner,
	})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "swap exact input", plan.Steps[0].Description)
	assert.Equal(t, "1980", plan.MinAmountOut.String())
}

func TestBuildSwapRenewsExpiringPermit(t *testing.T) {
	backend := &dexBackend{
		tokenAllowance: big.NewInt(10_000),
		permit2Amount:  big.NewInt(10_000),
		permit2Expiry:  fixedAt.Add(time.Minute).Unix(),
	}
	builder, err := NewBuilder(ethereum.NewPublicClient(lightlink(t), backend), WithClock(func() time.Time { return fixedAt }))
	require.NoError(t, err)

	plan, err := builder.BuildSwap(context.Background(), SwapRequest{
		TokenIn: tokenA, TokenOut: tokenB, AmountIn: big.NewInt(1), AmountOut: big.NewInt(1), Recipient: owner,
	})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "approve router", plan.Steps[0].Description)
}

func TestMinAmountOut(t *testing.T) {
	cases := []struct {
		slippage float64
		want     string
		wantErr  bool
	}{
		{slippage: 0, want: "9500"},
		{slippage: 0.05, want: "9500"},
		{slippage: 0.005, want: "9950"},
		{slippage: 0.999, want: "10"},
		{slippage: 1, wantErr: true},
		{slippage: -0.1, wantErr: true},
	}
	for _, tc := range cases {
		got, err := MinAmountOut(big.NewInt(10_000), tc.slippage)
		if tc.wantErr {
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, "slippage %v", tc.slippage)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.String(), "slippage %v", tc.slippage)
	}
}

func TestEncodePath(t *testing.T) {
	path := EncodePath(tokenA, 3000, tokenB)
	require.Len(t, path, 43)
	assert.Equal(t, tokenA.Bytes(), path[:20])
	assert.Equal(t, []byte{0x00, 0x0b, 0xb8}, path[20:23])
	assert.Equal(t, tokenB.Bytes(), path[23:])
}
