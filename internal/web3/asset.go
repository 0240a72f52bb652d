package web3

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// Asset is either the chain's native currency or an ERC-20 token.
type Asset struct {
	token  common.Address
	native bool
}

// NativeAsset is the chain's gas token.
func NativeAsset() Asset {
	return Asset{native: true}
}

// TokenAsset is the ERC-20 token at addr.
func TokenAsset(addr common.Address) Asset {
	return Asset{token: addr}
}

// ParseAsset accepts an empty string, "null" or "eth" (any case) for the
// native currency and a hex address for a token.
func ParseAsset(s string) (Asset, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "null", "eth":
		return NativeAsset(), nil
	}
	if !common.IsHexAddress(trimmed) {
		return Asset{}, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid token address: %s", trimmed)
	}
	return TokenAsset(common.HexToAddress(trimmed)), nil
}

// IsNative reports whether a is the native currency.
func (a Asset) IsNative() bool {
	return a.native
}

// Token returns the token address when a is an ERC-20.
func (a Asset) Token() (common.Address, bool) {
	if a.native {
		return common.Address{}, false
	}
	return a.token, true
}

func (a Asset) String() string {
	if a.native {
		return "native"
	}
	return a.token.Hex()
}
