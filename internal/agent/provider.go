package agent

import (
	"context"
	"fmt"
	"strings"
)

const defaultAgentName = "The agent"

// WalletSummary renders the wallet context the agent runtime injects into
// prompts: address, balance on the current chain and chain identity. An
// unknown balance renders as "unavailable".
func (p *Plugin) WalletSummary(ctx context.Context, agentName string) string {
	if strings.TrimSpace(agentName) == "" {
		agentName = defaultAgentName
	}
	w := p.service.Wallet()
	chain := w.CurrentChain()

	balance, ok := w.WalletBalance(ctx)
	if !ok {
		balance = "unavailable"
	}
	return fmt.Sprintf("%s's EVM Wallet Address: %s\nBalance: %s %s\nChain ID: %d, Name: %s",
		agentName, w.Address().Hex(), balance, chain.NativeCurrency.Symbol, chain.ID, chain.Name)
}
