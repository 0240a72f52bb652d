package web3

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeCurrency describes the gas token of a chain.
type NativeCurrency struct {
	Name     string `yaml:"name" json:"name"`
	Symbol   string `yaml:"symbol" json:"symbol"`
	Decimals uint8  `yaml:"decimals" json:"decimals"`
}

// RPCEndpoints lists the endpoints known for a chain. Custom is set when the
// operator supplied an override and always wins over Default.
type RPCEndpoints struct {
	Default   []string `yaml:"default" json:"default"`
	WebSocket []string `yaml:"websocket,omitempty" json:"websocket,omitempty"`
	Custom    []string `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// Explorer points at the block explorer of a chain.
type Explorer struct {
	Name   string `yaml:"name" json:"name"`
	URL    string `yaml:"url" json:"url"`
	APIURL string `yaml:"api_url,omitempty" json:"apiUrl,omitempty"`
}

// Well-known contract names used in ChainDescriptor.Contracts.
const (
	ContractUniversalRouter      = "universalRouter"
	ContractUniswapV3Factory     = "uniswapV3Factory"
	ContractUniswapV3Quoter      = "uniswapV3Quoter"
	ContractENSRegistry          = "ensRegistry"
	ContractENSUniversalResolver = "ensUniversalResolver"
	ContractMulticall3           = "multicall3"
	ContractPermit2              = "permit2"
)

// ChainDescriptor is the static description of one EVM network.
type ChainDescriptor struct {
	ID             uint64                    `yaml:"id" json:"id"`
	Name           string                    `yaml:"name" json:"name"`
	NativeCurrency NativeCurrency            `yaml:"native_currency" json:"nativeCurrency"`
	RPC            RPCEndpoints              `yaml:"rpc" json:"rpcUrls"`
	Explorer       Explorer                  `yaml:"explorer" json:"blockExplorer"`
	Contracts      map[string]common.Address `yaml:"contracts,omitempty" json:"contracts,omitempty"`
	Testnet        bool                      `yaml:"testnet" json:"testnet"`
}

// Valid reports whether the descriptor carries a usable chain id.
func (c ChainDescriptor) Valid() bool {
	return c.ID != 0
}

// ChainID returns the id as a big integer for signing.
func (c ChainDescriptor) ChainID() *big.Int {
	return new(big.Int).SetUint64(c.ID)
}

// Endpoint returns the RPC url clients should use: the first custom endpoint
// if one is set, otherwise the first default endpoint.
func (c ChainDescriptor) Endpoint() string {
	for _, url := range c.RPC.Custom {
		if url = strings.TrimSpace(url); url != "" {
			return url
		}
	}
	for _, url := range c.RPC.Default {
		if url = strings.TrimSpace(url); url != "" {
			return url
		}
	}
	return ""
}

// WithCustomRPC returns a copy of c with its custom endpoint replaced. An
// empty url clears the override.
func (c ChainDescriptor) WithCustomRPC(url string) ChainDescriptor {
	out := c.Clone()
	url = strings.TrimSpace(url)
	if url == "" {
		out.RPC.Custom = nil
		return out
	}
	out.RPC.Custom = []string{url}
	return out
}

// WithDefaultRPC returns a copy of c whose default endpoint is url.
func (c ChainDescriptor) WithDefaultRPC(url string) ChainDescriptor {
	out := c.Clone()
	if url = strings.TrimSpace(url); url != "" {
		out.RPC.Default = []string{url}
	}
	return out
}

// Contract looks up a named contract address.
func (c ChainDescriptor) Contract(name string) (common.Address, bool) {
	addr, ok := c.Contracts[name]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

// Clone deep-copies the slices and maps of c.
func (c ChainDescriptor) Clone() ChainDescriptor {
	out := c
	out.RPC.Default = append([]string(nil), c.RPC.Default...)
	out.RPC.WebSocket = append([]string(nil), c.RPC.WebSocket...)
	out.RPC.Custom = append([]string(nil), c.RPC.Custom...)
	if c.Contracts != nil {
		out.Contracts = make(map[string]common.Address, len(c.Contracts))
		for k, v := range c.Contracts {
			out.Contracts[k] = v
		}
	}
	return out
}

// NamedChain pairs a registry key with its descriptor. Slices of NamedChain
// keep the order in which chains were supplied.
type NamedChain struct {
	Name  string
	Chain ChainDescriptor
}
