package web3

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// ChainKey names a chain of the canonical catalog.
type ChainKey string

const (
	ChainLightlink        ChainKey = "lightlink"
	ChainLightlinkTestnet ChainKey = "lightlinkTestnet"
	ChainEthereum         ChainKey = "ethereum"
	ChainSepolia          ChainKey = "sepolia"
)

// ChainKeys lists every canonical key in catalog order.
var ChainKeys = []ChainKey{ChainLightlink, ChainLightlinkTestnet, ChainEthereum, ChainSepolia}

var aliases = map[string]ChainKey{
	"phoenix": ChainLightlink,
	"mainnet": ChainLightlink,
	"pegasus": ChainLightlinkTestnet,
	"testnet": ChainLightlinkTestnet,
	"eth":     ChainEthereum,
}

// ValidateName maps network aliases to their canonical key and returns every
// other input unchanged. Applying it twice gives the same result as once.
func ValidateName(name string) string {
	if key, ok := aliases[name]; ok {
		return string(key)
	}
	return name
}

// ParseChainKey normalises name and reports whether it is a canonical key.
func ParseChainKey(name string) (ChainKey, bool) {
	key := ChainKey(ValidateName(name))
	for _, known := range ChainKeys {
		if key == known {
			return key, true
		}
	}
	return "", false
}

// Catalog is the immutable table of supported chains. Methods never mutate
// the receiver; WithEndpoint and Merge return new values.
type Catalog struct {
	chains map[ChainKey]ChainDescriptor
}

// NewCatalog builds a catalog from the given entries. Keys outside ChainKeys
// are ignored.
func NewCatalog(entries map[ChainKey]ChainDescriptor) Catalog {
	out := Catalog{chains: make(map[ChainKey]ChainDescriptor, len(entries))}
	for _, key := range ChainKeys {
		if chain, ok := entries[key]; ok {
			out.chains[key] = chain.Clone()
		}
	}
	return out
}

// DefaultCatalog returns the built-in chain table.
func DefaultCatalog() Catalog {
	eth := NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}
	permit2 := common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	return NewCatalog(map[ChainKey]ChainDescriptor{
		ChainLightlink: {
			ID:             1890,
			Name:           "Lightlink Phoenix",
			NativeCurrency: eth,
			RPC: RPCEndpoints{
				Default:   []string{"https://replicator-01.phoenix.lightlink.io/rpc/v1"},
				WebSocket: []string{"wss://replicator-01.phoenix.lightlink.io/rpc/v1"},
			},
			Explorer: Explorer{Name: "LightLink Phoenix Explorer", URL: "https://phoenix.lightlink.io"},
			Contracts: map[string]common.Address{
				ContractUniversalRouter:  common.HexToAddress("0x6B3ea22C757BbF9C78CcAaa2eD9562b57001720B"),
				ContractUniswapV3Factory: common.HexToAddress("0xEE6099234bbdC793a43676D98Eb6B589ca7112D7"),
				ContractUniswapV3Quoter:  common.HexToAddress("0x243551e321Dac40508c22de2E00aBECF17F764b5"),
				ContractPermit2:          permit2,
			},
		},
		ChainLightlinkTestnet: {
			ID:             1891,
			Name:           "Lightlink Pegasus Testnet",
			NativeCurrency: eth,
			RPC: RPCEndpoints{
				Default:   []string{"https://replicator-01.pegasus.lightlink.io/rpc/v1"},
				WebSocket: []string{"wss://replicator-01.pegasus.lightlink.io/rpc/v1"},
			},
			Explorer: Explorer{Name: "LightLink Pegasus Explorer", URL: "https://pegasus.lightlink.io"},
			Contracts: map[string]common.Address{
				ContractUniversalRouter:  common.HexToAddress("0x742d315e929B188e3F05FbC49774474a627b0502"),
				ContractUniswapV3Factory: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346364d5Db4"),
				ContractUniswapV3Quoter:  common.Address{},
				ContractPermit2:          permit2,
			},
			Testnet: true,
		},
		ChainEthereum: {
			ID:             1,
			Name:           "Ethereum",
			NativeCurrency: eth,
			RPC:            RPCEndpoints{Default: []string{"https://cloudflare-eth.com"}},
			Explorer:       Explorer{Name: "Etherscan", URL: "https://etherscan.io", APIURL: "https://api.etherscan.io/api"},
			Contracts: map[string]common.Address{
				ContractENSRegistry:          common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"),
				ContractENSUniversalResolver: common.HexToAddress("0xce01f8eee7E479C928F8919abD53E553a36CeF67"),
				ContractMulticall3:           common.HexToAddress("0xca11bde05977b3631167028862be2a173976ca11"),
			},
		},
		ChainSepolia: {
			ID:             11155111,
			Name:           "Sepolia",
			NativeCurrency: NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
			RPC:            RPCEndpoints{Default: []string{"https://sepolia.drpc.org"}},
			Explorer:       Explorer{Name: "Etherscan", URL: "https://sepolia.etherscan.io", APIURL: "https://api-sepolia.etherscan.io/api"},
			Contracts: map[string]common.Address{
				ContractENSRegistry:          common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"),
				ContractENSUniversalResolver: common.HexToAddress("0xc8Af999e38273D658BE1b921b88A9Ddf005769cC"),
				ContractMulticall3:           common.HexToAddress("0xca11bde05977b3631167028862be2a173976ca11"),
			},
			Testnet: true,
		},
	})
}

// Lookup normalises name and returns the catalog descriptor. It fails with an
// unknown-chain error when the chain is absent or has no id.
func (c Catalog) Lookup(name string) (ChainDescriptor, error) {
	normalized := ValidateName(name)
	chain, ok := c.chains[ChainKey(normalized)]
	if !ok || !chain.Valid() {
		return ChainDescriptor{}, apperrors.Newf(apperrors.CodeUnknownChain, "unknown chain: %s", normalized)
	}
	return chain.Clone(), nil
}

// GenChainFromName builds a registrable descriptor for a catalog chain,
// optionally pinned to a custom RPC endpoint.
func (c Catalog) GenChainFromName(name, customRPC string) (ChainDescriptor, error) {
	normalized := ValidateName(name)
	chain, ok := c.chains[ChainKey(normalized)]
	if !ok || !chain.Valid() {
		return ChainDescriptor{}, apperrors.Newf(apperrors.CodeUnknownChain, "invalid chain name: %s", normalized)
	}
	if strings.TrimSpace(customRPC) == "" {
		return chain.Clone(), nil
	}
	return chain.WithCustomRPC(customRPC), nil
}

// WithEndpoint returns a copy of the catalog whose entry for key uses url as
// its default RPC endpoint. Unknown keys and empty urls leave it unchanged.
func (c Catalog) WithEndpoint(key ChainKey, url string) Catalog {
	chain, ok := c.chains[key]
	if !ok || strings.TrimSpace(url) == "" {
		return c
	}
	next := NewCatalog(c.chains)
	next.chains[key] = chain.WithDefaultRPC(url)
	return next
}

// Keys returns the catalog keys in canonical order.
func (c Catalog) Keys() []ChainKey {
	keys := make([]ChainKey, 0, len(c.chains))
	for _, key := range ChainKeys {
		if _, ok := c.chains[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// All returns every catalog chain in canonical order.
func (c Catalog) All() []NamedChain {
	out := make([]NamedChain, 0, len(c.chains))
	for _, key := range c.Keys() {
		out = append(out, NamedChain{Name: string(key), Chain: c.chains[key].Clone()})
	}
	return out
}
