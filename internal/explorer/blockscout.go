// Package explorer queries the Blockscout search API of a chain's block
// explorer.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
)

const (
	defaultTimeout = 15 * time.Second
	searchPath     = "/api/v2/search"
	errorBodyLimit = 2048
)

// Config describes how to reach the explorer.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the Blockscout v2 REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Item is one search hit. Blockscout fills only the fields relevant to Type.
type Item struct {
	Type            string `json:"type"`
	Name            string `json:"name,omitempty"`
	Symbol          string `json:"symbol,omitempty"`
	Address         string `json:"address,omitempty"`
	TokenType       string `json:"token_type,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	BlockHash       string `json:"block_hash,omitempty"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
	URL             string `json:"url,omitempty"`
	Verified        bool   `json:"is_smart_contract_verified,omitempty"`
	ExchangeRate    string `json:"exchange_rate,omitempty"`
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "explorer base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "parse explorer base url")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ForChain builds a client for the explorer of chain.
func ForChain(chain web3.ChainDescriptor) (*Client, error) {
	return NewClient(Config{BaseURL: chain.Explorer.URL})
}

// Search runs a free-text search over addresses, tokens, blocks and
// transactions.
func (c *Client) Search(ctx context.Context, query string) ([]Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "search query is required")
	}

	endpoint := c.baseURL + searchPath + "?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "build search request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "query explorer")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, apperrors.New(apperrors.CodeUpstreamFailure,
			fmt.Sprintf("explorer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded struct {
		Items []Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstreamFailure, err, "decode explorer response")
	}
	if decoded.Items == nil {
		decoded.Items = []Item{}
	}
	return decoded.Items, nil
}
