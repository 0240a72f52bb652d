package web3

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// ChainDefinitions models an operator-supplied chains.yaml overlay.
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition overrides parts of one catalog entry. Empty fields keep the
// built-in value.
type ChainDefinition struct {
	RPCURL      string            `yaml:"rpc_url"`
	WSURL       string            `yaml:"ws_url"`
	ExplorerURL string            `yaml:"explorer_url"`
	Contracts   map[string]string `yaml:"contracts"`
}

// LoadChainDefinitions parses the YAML overlay at path. An empty path yields
// an empty overlay.
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return ChainDefinitions{Chains: map[string]ChainDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, apperrors.Wrap(apperrors.CodeConfiguration, err, "read chain definitions")
	}
	return ParseChainDefinitions(content)
}

// ParseChainDefinitions decodes a YAML overlay document.
func ParseChainDefinitions(content []byte) (ChainDefinitions, error) {
	var defs ChainDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return ChainDefinitions{}, apperrors.Wrap(apperrors.CodeConfiguration, err, "parse chain definitions")
	}
	if defs.Chains == nil {
		defs.Chains = map[string]ChainDefinition{}
	}
	return defs, nil
}

// Merge applies an overlay and returns the resulting catalog. Overlay keys go
// through ValidateName, so aliases such as "phoenix" are accepted.
func (c Catalog) Merge(defs ChainDefinitions) (Catalog, error) {
	next := NewCatalog(c.chains)
	for name, def := range defs.Chains {
		key, ok := ParseChainKey(name)
		if !ok {
			return Catalog{}, apperrors.Newf(apperrors.CodeUnknownChain, "unknown chain: %s", name)
		}
		chain := next.chains[key].WithDefaultRPC(def.RPCURL)
		if ws := strings.TrimSpace(def.WSURL); ws != "" {
			chain.RPC.WebSocket = []string{ws}
		}
		if explorer := strings.TrimSpace(def.ExplorerURL); explorer != "" {
			chain.Explorer.URL = strings.TrimRight(explorer, "/")
		}
		for contract, hex := range def.Contracts {
			if !common.IsHexAddress(hex) {
				return Catalog{}, apperrors.New(apperrors.CodeConfiguration,
					fmt.Sprintf("chain %s: contract %s has invalid address %q", key, contract, hex))
			}
			if chain.Contracts == nil {
				chain.Contracts = map[string]common.Address{}
			}
			chain.Contracts[contract] = common.HexToAddress(hex)
		}
		next.chains[key] = chain
	}
	return next, nil
}
