package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lightlink-network/plugin-lightlink/internal/actions"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
)

func failure(text string, err error) Result {
	return Result{
		Text:    text + err.Error(),
		Content: map[string]any{"error": err.Error(), "code": string(apperrors.CodeOf(err))},
	}
}

func (p *Plugin) transfer(ctx context.Context, raw json.RawMessage) (Result, error) {
	var params actions.TransferParams
	if err := decode(raw, "transfer", &params); err != nil {
		return Result{}, err
	}
	w := p.service.Wallet()
	if !w.HasChain(params.FromChain) {
		return Result{}, apperrors.Newf(apperrors.CodeUnknownChain,
			"The chain %s not configured yet. Add the chain or choose one from configured: %s",
			params.FromChain, strings.Join(w.Chains(), ","))
	}

	tx, err := p.service.Transfer(ctx, params)
	if err != nil {
		return failure("Error transferring tokens: ", err), nil
	}
	return Result{
		Success: true,
		Text:    fmt.Sprintf("Successfully transferred %s tokens to %s\nTransaction Hash: %s", params.Amount, params.ToAddress, tx.Hash.Hex()),
		Content: map[string]any{
			"success":   true,
			"hash":      tx.Hash.Hex(),
			"amount":    web3.FormatEther(tx.Value),
			"recipient": tx.To.Hex(),
			"chain":     params.FromChain,
		},
	}, nil
}

func (p *Plugin) swap(ctx context.Context, raw json.RawMessage) (Result, error) {
	var params actions.SwapParams
	if err := decode(raw, "swap", &params); err != nil {
		return Result{}, err
	}

	tx, err := p.service.Swap(ctx, params)
	if err != nil {
		return failure("Error: ", err), nil
	}
	steps := make([]map[string]string, 0, len(tx.Steps))
	for _, step := range tx.Steps {
		steps = append(steps, map[string]string{"txHash": step.TxHash.Hex(), "description": step.Description})
	}
	return Result{
		Success: true,
		Text:    fmt.Sprintf("Successfully swap %s %s tokens to %s\nTransaction Hash: %s", params.Amount, params.FromToken, params.ToToken, tx.Hash.Hex()),
		Content: map[string]any{
			"success":      true,
			"hash":         tx.Hash.Hex(),
			"recipient":    tx.Recipient.Hex(),
			"chain":        params.Chain,
			"minAmountOut": tx.MinAmountOut.String(),
			"steps":        steps,
		},
	}, nil
}

func (p *Plugin) search(ctx context.Context, raw json.RawMessage) (Result, error) {
	var params actions.SearchParams
	if err := decode(raw, "search", &params); err != nil {
		return Result{}, err
	}

	resp, err := p.service.Search(ctx, params)
	if err != nil {
		return failure("Error: ", err), nil
	}
	return Result{
		Success: true,
		Text:    fmt.Sprintf("Successfully searched for %s on %s\nResults: %s", params.Query, params.Chain, resp.Result),
		Content: map[string]any{
			"success": true,
			"chain":   params.Chain,
		},
	}, nil
}

func (p *Plugin) balance(ctx context.Context, raw json.RawMessage) (Result, error) {
	var params actions.BalanceParams
	if err := decode(raw, "balance", &params); err != nil {
		return Result{}, err
	}

	resp, err := p.service.Balance(ctx, params)
	if err != nil {
		return failure("Error: ", err), nil
	}
	token := params.Token
	if asset, err := web3.ParseAsset(token); err == nil && asset.IsNative() {
		token = "ETH"
	}
	return Result{
		Success: true,
		Text: fmt.Sprintf("Successfully got the balance for `%s`\n - Chain: %s\n - Balance: %s %s\n         (%s Units)",
			params.Address, params.Chain, resp.FormattedBalance, resp.Symbol, resp.Balance),
		Content: map[string]any{
			"success":          true,
			"chain":            params.Chain,
			"token":            token,
			"balance":          resp.Balance,
			"formattedBalance": resp.FormattedBalance,
			"symbol":           resp.Symbol,
		},
	}, nil
}
