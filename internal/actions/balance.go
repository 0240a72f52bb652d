package actions

import (
	"context"

	"github.com/lightlink-network/plugin-lightlink/internal/web3"
)

// BalanceParams asks for the balance of Address on Chain. An empty, "null"
// or "eth" Token selects the native currency; otherwise Token is an ERC-20
// address. Address may be an ENS name.
type BalanceParams struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Token   string `json:"token,omitempty"`
}

// BalanceResult is a balance in base units and formatted with the asset's
// decimals.
type BalanceResult struct {
	Balance          string `json:"balance"`
	FormattedBalance string `json:"formattedBalance"`
	Symbol           string `json:"symbol"`
}

// Balance reads a native or token balance.
func (s *Service) Balance(ctx context.Context, params BalanceParams) (BalanceResult, error) {
	asset, err := web3.ParseAsset(params.Token)
	if err != nil {
		return BalanceResult{}, err
	}
	client, err := s.wallet.PublicClient(ctx, params.Chain)
	if err != nil {
		return BalanceResult{}, err
	}
	defer client.Close()

	owner, err := s.resolveAddress(ctx, params.Address)
	if err != nil {
		return BalanceResult{}, err
	}

	token, isToken := asset.Token()
	if !isToken {
		wei, err := client.Balance(ctx, owner)
		if err != nil {
			return BalanceResult{}, err
		}
		native := client.Chain().NativeCurrency
		decimals := native.Decimals
		if decimals == 0 {
			decimals = web3.EtherDecimals
		}
		symbol := native.Symbol
		if symbol == "" {
			symbol = "ETH"
		}
		return BalanceResult{
			Balance:          wei.String(),
			FormattedBalance: web3.FormatUnits(wei, decimals),
			Symbol:           symbol,
		}, nil
	}

	amount, err := client.TokenBalance(ctx, token, owner)
	if err != nil {
		return BalanceResult{}, err
	}
	decimals, err := client.TokenDecimals(ctx, token)
	if err != nil {
		return BalanceResult{}, err
	}
	symbol, err := client.TokenSymbol(ctx, token)
	if err != nil {
		return BalanceResult{}, err
	}
	return BalanceResult{
		Balance:          amount.String(),
		FormattedBalance: web3.FormatUnits(amount, decimals),
		Symbol:           symbol,
	}, nil
}
