package actions

import (
	"context"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/events"
	"github.com/lightlink-network/plugin-lightlink/internal/web3"
	"github.com/lightlink-network/plugin-lightlink/internal/web3/ethereum"
)

// TransferParams asks for Amount of the native currency to be sent to
// ToAddress on FromChain. ToAddress may be an ENS name.
type TransferParams struct {
	FromChain string `json:"fromChain"`
	ToAddress string `json:"toAddress"`
	Amount    string `json:"amount"`
	Data      string `json:"data,omitempty"`
}

// Transaction describes a submitted and mined transfer.
type Transaction struct {
	Hash    common.Hash    `json:"hash"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Value   *big.Int       `json:"value"`
	Data    string         `json:"data"`
	ChainID uint64         `json:"chainId"`
}

// Transfer sends native currency and waits for the receipt. Every failure
// is reported as "transfer failed: <cause>".
func (s *Service) Transfer(ctx context.Context, params TransferParams) (Transaction, error) {
	tx, err := s.transfer(ctx, params)
	if err != nil {
		return Transaction{}, wrap(err, apperrors.CodeTransactionFailed, "transfer failed")
	}
	return tx, nil
}

func (s *Service) transfer(ctx context.Context, params TransferParams) (Transaction, error) {
	data := strings.TrimSpace(params.Data)
	if data == "" {
		data = "0x"
	}
	payload, err := ethereum.DecodeHexData(data)
	if err != nil {
		return Transaction{}, err
	}
	value, err := web3.ParseEther(params.Amount)
	if err != nil {
		return Transaction{}, err
	}
	to, err := s.resolveAddress(ctx, params.ToAddress)
	if err != nil {
		return Transaction{}, err
	}

	if err := s.wallet.SwitchChain(params.FromChain, ""); err != nil {
		return Transaction{}, err
	}
	client, err := s.wallet.WalletClient(ctx, params.FromChain)
	if err != nil {
		return Transaction{}, err
	}
	defer client.Close()
	chain := client.Chain()
	chainKey := s.wallet.CurrentChainName()

	signed, err := client.SendTransaction(ctx, ethereum.TxRequest{To: &to, Value: value, Data: payload})
	if err != nil {
		return Transaction{}, err
	}
	result := Transaction{
		Hash:    signed.Hash(),
		From:    client.Address(),
		To:      to,
		Value:   value,
		Data:    data,
		ChainID: chain.ID,
	}

	s.audit.InfoContext(ctx, "transfer submitted",
		slog.String("chain", chainKey),
		slog.String("hash", result.Hash.Hex()),
		slog.String("from", result.From.Hex()),
		slog.String("to", to.Hex()),
		slog.String("value_wei", value.String()))
	submitted := transferEvent(chainKey, result)
	s.publish(ctx, submitted)

	receipt, err := client.WaitForReceipt(ctx, result.Hash)
	if err != nil {
		s.publish(ctx, submitted.Next(events.KindFailed, err))
		return Transaction{}, err
	}
	if receipt.Status != coretypes.ReceiptStatusSuccessful {
		err := apperrors.Newf(apperrors.CodeTransactionFailed, "transaction %s reverted", result.Hash.Hex())
		s.audit.WarnContext(ctx, "transfer reverted", slog.String("chain", chainKey), slog.String("hash", result.Hash.Hex()))
		s.publish(ctx, submitted.Next(events.KindFailed, err))
		return Transaction{}, err
	}

	s.audit.InfoContext(ctx, "transfer confirmed",
		slog.String("chain", chainKey),
		slog.String("hash", result.Hash.Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()))
	s.publish(ctx, submitted.Next(events.KindConfirmed, nil))
	return result, nil
}

func transferEvent(chainKey string, tx Transaction) events.Event {
	e := events.New(events.KindSubmitted, "transfer", chainKey)
	e.ChainID = tx.ChainID
	e.Hash = tx.Hash.Hex()
	e.From = tx.From.Hex()
	e.To = tx.To.Hex()
	e.Value = tx.Value.String()
	return e
}
