package dex

import (
	"context"
	"encoding/binary"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethereum"
)

// DefaultSlippage is applied when a swap request leaves slippage unset.
const DefaultSlippage = 0.05

const (
	defaultDeadline   = 20 * time.Minute
	permit2Expiration = 30 * 24 * time.Hour

	// Universal Router command for an exact-input V3 swap.
	commandV3SwapExactIn byte = 0x00
)

const routerABIJSON = `[
	{"type":"function","name":"execute","stateMutability":"payable",
	 "inputs":[{"name":"commands","type":"bytes"},{"name":"inputs","type":"bytes[]"},{"name":"deadline","type":"uint256"}],
	 "outputs":[]}
]`

const permit2ABIJSON = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"token","type":"address"},{"name":"spender","type":"address"},{"name":"amount","type":"uint160"},{"name":"expiration","type":"uint48"}],
	 "outputs":[]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"amount","type":"uint160"},{"name":"expiration","type":"uint48"},{"name":"nonce","type":"uint48"}]}
]`

var (
	// RouterABI is the Universal Router entrypoint.
	RouterABI = mustParseABI(routerABIJSON)
	// Permit2ABI covers the allowance-transfer half of Permit2.
	Permit2ABI = mustParseABI(permit2ABIJSON)

	v3SwapExactInArgs = abi.Arguments{
		{Type: mustType("address")},
		{Type: mustType("uint256")},
		{Type: mustType("uint256")},
		{Type: mustType("bytes")},
		{Type: mustType("bool")},
	}

	maxUint160 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))
)

// SwapRequest describes an exact-input swap for Recipient.
type SwapRequest struct {
	TokenIn   common.Address
	TokenOut  common.Address
	AmountIn  *big.Int
	AmountOut *big.Int
	Slippage  float64
	Fee       uint32
	Recipient common.Address
}

// Step is one transaction of a swap plan.
type Step struct {
	Description string
	Tx          ethereum.TxRequest
}

// Plan is the ordered list of transactions that performs a swap.
type Plan struct {
	Steps        []Step
	MinAmountOut *big.Int
	Deadline     time.Time
}

// Builder turns quotes into Universal Router transactions.
type Builder struct {
	client  *ethereum.PublicClient
	router  common.Address
	permit2 common.Address
	now     func() time.Time
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithClock sets the clock used for deadlines and Permit2 expirations.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder binds a builder to the router and Permit2 contracts of the
// client's chain.
func NewBuilder(client *ethereum.PublicClient, opts ...BuilderOption) (*Builder, error) {
	chain := client.Chain()
	router, ok := chain.Contract(web3.ContractUniversalRouter)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnsupported, "no universal router on chain %s", chain.Name)
	}
	permit2, ok := chain.Contract(web3.ContractPermit2)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeUnsupported, "no permit2 on chain %s", chain.Name)
	}
	b := &Builder{client: client, router: router, permit2: permit2, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// BuildSwap returns the transactions that sell req.AmountIn of req.TokenIn.
// Allowance steps are emitted only when the current allowances fall short.
func (b *Builder) BuildSwap(ctx context.Context, req SwapRequest) (Plan, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return Plan{}, apperrors.New(apperrors.CodeInvalidArgument, "amount in must be positive")
	}
	if req.AmountOut == nil || req.AmountOut.Sign() < 0 {
		return Plan{}, apperrors.New(apperrors.CodeInvalidArgument, "quoted amount out is missing")
	}
	if req.AmountIn.Cmp(maxUint160) > 0 {
		return Plan{}, apperrors.New(apperrors.CodeInvalidArgument, "amount in exceeds permit2 limits")
	}
	minOut, err := MinAmountOut(req.AmountOut, req.Slippage)
	if err != nil {
		return Plan{}, err
	}
	fee := req.Fee
	if fee == 0 {
		fee = DefaultFee
	}

	now := b.now()
	plan := Plan{MinAmountOut: minOut, Deadline: now.Add(defaultDeadline)}

	tokenAllowance, err := b.client.TokenAllowance(ctx, req.TokenIn, req.Recipient, b.permit2)
	if err != nil {
		return Plan{}, err
	}
	if tokenAllowance.Cmp(req.AmountIn) < 0 {
		data, err := ethereum.ERC20ABI.Pack("approve", b.permit2, req.AmountIn)
		if err != nil {
			return Plan{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "pack approve")
		}
		plan.Steps = append(plan.Steps, Step{Description: "approve permit2", Tx: txTo(req.TokenIn, data)})
	}

	permitted, expiration, err := b.permit2Allowance(ctx, req.Recipient, req.TokenIn)
	if err != nil {
		return Plan{}, err
	}
	if permitted.Cmp(req.AmountIn) < 0 || expiration <= uint64(plan.Deadline.Unix()) {
		expiry := new(big.Int).SetInt64(now.Add(permit2Expiration).Unix())
		data, err := Permit2ABI.Pack("approve", req.TokenIn, b.router, req.AmountIn, expiry)
		if err != nil {
			return Plan{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "pack permit2 approve")
		}
		plan.Steps = append(plan.Steps, Step{Description: "approve router", Tx: txTo(b.permit2, data)})
	}

	input, err := v3SwapExactInArgs.Pack(req.Recipient, req.AmountIn, minOut, EncodePath(req.TokenIn, fee, req.TokenOut), true)
	if err != nil {
		return Plan{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "pack swap input")
	}
	data, err := RouterABI.Pack("execute", []byte{commandV3SwapExactIn}, [][]byte{input}, big.NewInt(plan.Deadline.Unix()))
	if err != nil {
		return Plan{}, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "pack execute")
	}
	plan.Steps = append(plan.Steps, Step{Description: "swap exact input", Tx: txTo(b.router, data)})
	return plan, nil
}

func (b *Builder) permit2Allowance(ctx context.Context, owner, token common.Address) (*big.Int, uint64, error) {
	out, err := b.client.ReadContract(ctx, b.permit2, Permit2ABI, "allowance", owner, token, b.router)
	if err != nil {
		return nil, 0, err
	}
	if len(out) < 2 {
		return nil, 0, apperrors.New(apperrors.CodeUpstreamFailure, "permit2 allowance returned too few values")
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, 0, apperrors.New(apperrors.CodeUpstreamFailure, "permit2 allowance returned an unexpected amount")
	}
	expiration, ok := out[1].(*big.Int)
	if !ok || !expiration.IsUint64() {
		return nil, 0, apperrors.New(apperrors.CodeUpstreamFailure, "permit2 allowance returned an unexpected expiration")
	}
	return amount, expiration.Uint64(), nil
}

// MinAmountOut lowers amountOut by slippage, a fraction in [0, 1). Zero
// selects DefaultSlippage.
func MinAmountOut(amountOut *big.Int, slippage float64) (*big.Int, error) {
	if slippage == 0 {
		slippage = DefaultSlippage
	}
	if math.IsNaN(slippage) || slippage < 0 || slippage >= 1 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "slippage must be between 0 and 1, got %v", slippage)
	}
	bps := int64(math.Round(slippage * 10_000))
	out := new(big.Int).Mul(amountOut, big.NewInt(10_000-bps))
	return out.Quo(out, big.NewInt(10_000)), nil
}

// EncodePath packs a single-hop V3 path: tokenIn, 3-byte fee, tokenOut.
func EncodePath(tokenIn common.Address, fee uint32, tokenOut common.Address) []byte {
	path := make([]byte, 0, 2*common.AddressLength+3)
	path = append(path, tokenIn.Bytes()...)
	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], fee)
	path = append(path, feeBytes[1:]...)
	return append(path, tokenOut.Bytes()...)
}

func txTo(to common.Address, data []byte) ethereum.TxRequest {
	return ethereum.TxRequest{To: &to, Data: data}
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}
