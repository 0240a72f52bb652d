package web3

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		value    string
		decimals uint8
		want     string
	}{
		{"0", 18, "0"},
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 18, "0.000000000000000001"},
		{"-250000", 6, "-0.25"},
		{"123456789", 0, "123456789"},
		{"100000000", 8, "1"},
	}
	for _, tc := range tests {
		v, _ := new(big.Int).SetString(tc.value, 10)
		if got := FormatUnits(v, tc.decimals); got != tc.want {
			t.Errorf("FormatUnits(%s, %d) = %q, want %q", tc.value, tc.decimals, got, tc.want)
		}
	}
	if FormatUnits(nil, 18) != "0" {
		t.Error("nil should format as zero")
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		value    string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"0.001", 18, "1000000000000000"},
		{".5", 6, "500000"},
		{"2.", 6, "2000000"},
		{"1.23456789", 6, "1234568"},
		{"1.2345674", 6, "1234567"},
		{"-1.5", 1, "-15"},
	}
	for _, tc := range tests {
		got, err := ParseUnits(tc.value, tc.decimals)
		if err != nil {
			t.Fatalf("ParseUnits(%q): %v", tc.value, err)
		}
		if got.String() != tc.want {
			t.Errorf("ParseUnits(%q, %d) = %s, want %s", tc.value, tc.decimals, got, tc.want)
		}
	}

	for _, bad := range []string{"", ".", "abc", "1.2.3", "1e18", "0x10"} {
		if _, err := ParseUnits(bad, 18); !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Errorf("ParseUnits(%q) expected invalid argument, got %v", bad, err)
		}
	}
}

func TestEtherRoundTrip(t *testing.T) {
	wei, err := ParseEther("0.0123")
	if err != nil {
		t.Fatal(err)
	}
	if FormatEther(wei) != "0.0123" {
		t.Fatalf("unexpected round trip %s", FormatEther(wei))
	}
}

func TestParseAsset(t *testing.T) {
	for _, native := range []string{"", "null", "NULL", "eth", "ETH", " Eth "} {
		asset, err := ParseAsset(native)
		if err != nil || !asset.IsNative() {
			t.Errorf("ParseAsset(%q) = %v, %v; want native", native, asset, err)
		}
	}

	token := "0xd9d7123552fA2bEdB2348bB562576D67f6E8e96E"
	asset, err := ParseAsset(token)
	if err != nil {
		t.Fatal(err)
	}
	addr, ok := asset.Token()
	if !ok || addr != common.HexToAddress(token) {
		t.Fatalf("unexpected token %v", asset)
	}

	if _, err := ParseAsset("usdc"); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
