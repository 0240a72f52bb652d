package actions

import (
	"context"
	"encoding/json"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
)

// SearchParams asks the explorer of Chain about Query, which may be an
// address, a token name or symbol, a block or a transaction hash.
type SearchParams struct {
	Chain string `json:"chain"`
	Query string `json:"query"`
}

// SearchResult carries the explorer hits as indented JSON.
type SearchResult struct {
	Result string `json:"result"`
}

// Search queries the Blockscout explorer. Only LightLink chains run one.
func (s *Service) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	client, err := s.wallet.PublicClient(ctx, params.Chain)
	if err != nil {
		return SearchResult{}, err
	}
	client.Close()

	key := web3.ChainKey(web3.ValidateName(params.Chain))
	if key != web3.ChainLightlink && key != web3.ChainLightlinkTestnet {
		return SearchResult{}, apperrors.New(apperrors.CodeUnsupported, "chain not supported")
	}

	searcher, err := s.searchers(client.Chain())
	if err != nil {
		return SearchResult{}, err
	}
	items, err := searcher.Search(ctx, params.Query)
	if err != nil {
		return SearchResult{}, err
	}
	body, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return SearchResult{}, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "encode search results")
	}
	return SearchResult{Result: string(body)}, nil
}
