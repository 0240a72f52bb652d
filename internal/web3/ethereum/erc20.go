package ethereum

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// ERC20ABI is the minimal token interface used by the actions.
var ERC20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TokenBalance returns balanceOf(account) on token.
func (c *PublicClient) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := c.ReadContract(ctx, token, ERC20ABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return firstBigInt(out, "balanceOf")
}

// TokenDecimals returns decimals() of token.
func (c *PublicClient) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.ReadContract(ctx, token, ERC20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, apperrors.New(apperrors.CodeUpstreamFailure, "decimals returned no value")
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, apperrors.New(apperrors.CodeUpstreamFailure, "decimals returned an unexpected type")
	}
	return decimals, nil
}

// TokenSymbol returns symbol() of token.
func (c *PublicClient) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	out, err := c.ReadContract(ctx, token, ERC20ABI, "symbol")
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", apperrors.New(apperrors.CodeUpstreamFailure, "symbol returned no value")
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", apperrors.New(apperrors.CodeUpstreamFailure, "symbol returned an unexpected type")
	}
	return symbol, nil
}

// TokenAllowance returns allowance(owner, spender) on token.
func (c *PublicClient) TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.ReadContract(ctx, token, ERC20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return firstBigInt(out, "allowance")
}

func firstBigInt(out []any, method string) (*big.Int, error) {
	if len(out) == 0 {
		return nil, apperrors.New(apperrors.CodeUpstreamFailure, method+" returned no value")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, apperrors.New(apperrors.CodeUpstreamFailure, method+" returned an unexpected type")
	}
	return v, nil
}
