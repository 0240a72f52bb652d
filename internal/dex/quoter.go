// Package dex quotes and builds Uniswap V3 swaps against the contracts listed
// in a chain descriptor. Quotes come from the on-chain QuoterV2 and swaps are
// routed through the Universal Router with Permit2 allowances.
package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethereum"
)

// DefaultFee is the 0.3% pool tier.
const DefaultFee uint32 = 3000

const quoterABIJSON = `[
	{"type":"function","name":"quoteExactInputSingle","stateMutability":"nonpayable",
	 "inputs":[{"name":"params","type":"tuple","components":[
		{"name":"tokenIn","type":"address"},
		{"name":"tokenOut","type":"address"},
		{"name":"amountIn","type":"uint256"},
		{"name":"fee","type":"uint24"},
		{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
	 "outputs":[
		{"name":"amountOut","type":"uint256"},
		{"name":"sqrtPriceX96After","type":"uint160"},
		{"name":"initializedTicksCrossed","type":"uint32"},
		{"name":"gasEstimate","type":"uint256"}]}
]`

// QuoterABI is the QuoterV2 single-pool quoting interface.
var QuoterABI = mustParseABI(quoterABIJSON)

// QuoteExactInputSingleParams mirrors the QuoterV2 parameter tuple.
type QuoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// QuoteRequest asks for the output of selling AmountIn of TokenIn.
type QuoteRequest struct {
	TokenIn  common.Address
	TokenOut common.Address
	AmountIn *big.Int
	Fee      uint32
}

// Quote is the quoter's answer.
type Quote struct {
	AmountIn    *big.Int
	AmountOut   *big.Int
	Fee         uint32
	GasEstimate *big.Int
}

// Quoter reads swap quotes through eth_call.
type Quoter struct {
	client  *ethereum.PublicClient
	address common.Address
}

// NewQuoter binds a quoter to the chain of client. Chains without a quoter
// contract are unsupported.
func NewQuoter(client *ethereum.PublicClient) (*Quoter, error) {
	chain := client.Chain()
	addr, ok := chain.Contract(web3.ContractUniswapV3Quoter)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnsupported, "no uniswap v3 quoter on chain %s", chain.Name)
	}
	return &Quoter{client: client, address: addr}, nil
}

// QuoteExactInput returns how much TokenOut AmountIn buys in the single pool
// of the requested fee tier.
func (q *Quoter) QuoteExactInput(ctx context.Context, req QuoteRequest) (Quote, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return Quote{}, apperrors.New(apperrors.CodeInvalidArgument, "amount in must be positive")
	}
	if req.TokenIn == req.TokenOut {
		return Quote{}, apperrors.New(apperrors.CodeInvalidArgument, "cannot swap a token for itself")
	}
	fee := req.Fee
	if fee == 0 {
		fee = DefaultFee
	}

	out, err := q.client.ReadContract(ctx, q.address, QuoterABI, "quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           req.TokenIn,
		TokenOut:          req.TokenOut,
		AmountIn:          req.AmountIn,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return Quote{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "quote exact input")
	}
	if len(out) < 4 {
		return Quote{}, apperrors.New(apperrors.CodeUpstreamFailure, "quoter returned too few values")
	}
	amountOut, ok := out[0].(*big.Int)
	if !ok {
		return Quote{}, apperrors.New(apperrors.CodeUpstreamFailure, "quoter returned an unexpected amount")
	}
	gas, _ := out[3].(*big.Int)
	return Quote{AmountIn: req.AmountIn, AmountOut: amountOut, Fee: fee, GasEstimate: gas}, nil
}
