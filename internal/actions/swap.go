package actions

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/plugin-lightlink/internal/dex"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/events"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethereum"
)

// SwapParams asks to sell Amount of FromToken for ToToken on Chain. Tokens
// are ERC-20 addresses; Slippage is a fraction and defaults to 5%.
type SwapParams struct {
	Chain     string  `json:"chain"`
	FromToken string  `json:"inputToken"`
	ToToken   string  `json:"outputToken"`
	Amount    string  `json:"amount"`
	Slippage  float64 `json:"slippage,omitempty"`
}

// SwapStep is one mined transaction of a swap.
type SwapStep struct {
	TxHash      common.Hash `json:"txHash"`
	Description string      `json:"description"`
}

// SwapTransaction summarises a completed swap. Hash is the final router
// transaction.
type SwapTransaction struct {
	Hash            common.Hash    `json:"hash"`
	FromToken       common.Address `json:"fromToken"`
	ToToken         common.Address `json:"toToken"`
	AmountIn        *big.Int       `json:"amountIn"`
	QuotedAmountOut *big.Int       `json:"quotedAmountOut"`
	MinAmountOut    *big.Int       `json:"minAmountOut"`
	Recipient       common.Address `json:"recipient"`
	Steps           []SwapStep     `json:"steps"`
}

// Swap quotes the trade on the chain's Uniswap V3 quoter, then sends the
// allowance and router transactions in order, waiting for each receipt.
func (s *Service) Swap(ctx context.Context, params SwapParams) (SwapTransaction, error) {
	fromToken, err := swapToken(params.FromToken)
	if err != nil {
		return SwapTransaction{}, err
	}
	toToken, err := swapToken(params.ToToken)
	if err != nil {
		return SwapTransaction{}, err
	}

	if err := s.wallet.SwitchChain(params.Chain, ""); err != nil {
		return SwapTransaction{}, err
	}
	client, err := s.wallet.WalletClient(ctx, params.Chain)
	if err != nil {
		return SwapTransaction{}, err
	}
	defer client.Close()
	chainKey := s.wallet.CurrentChainName()

	// Contract addresses come from the catalog; the endpoint from the registry.
	config, err := s.wallet.ChainConfig(params.Chain)
	if err != nil {
		return SwapTransaction{}, err
	}
	contracts := ethereum.NewPublicClient(config, client.Backend())

	decimals, err := client.TokenDecimals(ctx, fromToken)
	if err != nil {
		return SwapTransaction{}, err
	}
	amountIn, err := web3.ParseUnits(params.Amount, decimals)
	if err != nil {
		return SwapTransaction{}, err
	}

	quoter, err := dex.NewQuoter(contracts)
	if err != nil {
		return SwapTransaction{}, err
	}
	quote, err := quoter.QuoteExactInput(ctx, dex.QuoteRequest{
		TokenIn:  fromToken,
		TokenOut: toToken,
		AmountIn: amountIn,
		Fee:      dex.DefaultFee,
	})
	if err != nil {
		return SwapTransaction{}, err
	}

	builder, err := dex.NewBuilder(contracts, dex.WithClock(s.now))
	if err != nil {
		return SwapTransaction{}, err
	}
	recipient := client.Address()
	plan, err := builder.BuildSwap(ctx, dex.SwapRequest{
		TokenIn:   fromToken,
		TokenOut:  toToken,
		AmountIn:  amountIn,
		AmountOut: quote.AmountOut,
		Slippage:  params.Slippage,
		Fee:       dex.DefaultFee,
		Recipient: recipient,
	})
	if err != nil {
		return SwapTransaction{}, err
	}

	result := SwapTransaction{
		FromToken:       fromToken,
		ToToken:         toToken,
		AmountIn:        amountIn,
		QuotedAmountOut: quote.AmountOut,
		MinAmountOut:    plan.MinAmountOut,
		Recipient:       recipient,
	}
	for _, step := range plan.Steps {
		hash, err := s.runSwapStep(ctx, client, chainKey, step)
		if err != nil {
			return SwapTransaction{}, err
		}
		result.Steps = append(result.Steps, SwapStep{TxHash: hash, Description: "Swap:" + step.Description})
		result.Hash = hash
	}

	s.audit.InfoContext(ctx, "swap confirmed",
		slog.String("chain", chainKey),
		slog.String("hash", result.Hash.Hex()),
		slog.String("token_in", fromToken.Hex()),
		slog.String("token_out", toToken.Hex()),
		slog.String("amount_in", amountIn.String()),
		slog.String("min_amount_out", plan.MinAmountOut.String()))
	return result, nil
}

func (s *Service) runSwapStep(ctx context.Context, client *ethereum.WalletClient, chainKey string, step dex.Step) (common.Hash, error) {
	event := events.New(events.KindSubmitted, "swap", chainKey)
	event.ChainID = client.Chain().ID
	event.From = client.Address().Hex()
	event.To = step.Tx.To.Hex()

	signed, err := client.SendTransaction(ctx, step.Tx)
	if err != nil {
		return common.Hash{}, err
	}
	hash := signed.Hash()
	event.Hash = hash.Hex()
	s.audit.InfoContext(ctx, "swap step submitted",
		slog.String("chain", chainKey),
		slog.String("step", step.Description),
		slog.String("hash", hash.Hex()))
	s.publish(ctx, event)

	receipt, err := client.WaitForReceipt(ctx, hash)
	if err == nil && receipt.Status != coretypes.ReceiptStatusSuccessful {
		err = apperrors.New(apperrors.CodeTransactionFailed, "transaction failed")
	}
	if err != nil {
		s.publish(ctx, event.Next(events.KindFailed, err))
		return common.Hash{}, err
	}
	s.publish(ctx, event.Next(events.KindConfirmed, nil))
	return hash, nil
}

func swapToken(input string) (common.Address, error) {
	asset, err := web3.ParseAsset(input)
	if err != nil {
		return common.Address{}, err
	}
	token, ok := asset.Token()
	if !ok {
		return common.Address{}, apperrors.New(apperrors.CodeUnsupported, "native currency swaps are not supported, use the wrapped token address")
	}
	return token, nil
}
