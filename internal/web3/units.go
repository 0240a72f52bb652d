package web3

import (
	"math/big"
	"strings"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// EtherDecimals is the precision of ether and most ERC-20 tokens.
const EtherDecimals = 18

// FormatUnits renders value as a decimal string with the given precision.
// Trailing fractional zeros are dropped, so 1500000000000000000 at 18
// decimals renders as "1.5" and zero renders as "0".
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	negative := value.Sign() < 0
	display := new(big.Int).Abs(value).String()

	d := int(decimals)
	if len(display) < d {
		display = strings.Repeat("0", d-len(display)) + display
	}
	integer := display[:len(display)-d]
	fraction := strings.TrimRight(display[len(display)-d:], "0")
	if integer == "" {
		integer = "0"
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(integer)
	if fraction != "" {
		b.WriteByte('.')
		b.WriteString(fraction)
	}
	return b.String()
}

// FormatEther formats a wei amount.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ParseUnits converts a decimal string into its integer representation at
// the given precision. Fractions longer than decimals are rounded half up.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	raw := strings.TrimSpace(value)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	integer, fraction, _ := strings.Cut(raw, ".")
	if integer == "" {
		integer = "0"
	}
	if raw == "" || raw == "." || !isDigits(integer) || !isDigits(fraction) {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid amount: %q", value)
	}

	d := int(decimals)
	roundUp := false
	if len(fraction) > d {
		roundUp = fraction[d] >= '5'
		fraction = fraction[:d]
	} else {
		fraction += strings.Repeat("0", d-len(fraction))
	}

	out, ok := new(big.Int).SetString(integer+fraction, 10)
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid amount: %q", value)
	}
	if roundUp {
		out.Add(out, big.NewInt(1))
	}
	if negative {
		out.Neg(out)
	}
	return out, nil
}

// ParseEther converts an ether amount into wei.
func ParseEther(value string) (*big.Int, error) {
	return ParseUnits(value, EtherDecimals)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
