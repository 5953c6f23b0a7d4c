package bank

import (
	"context"
	"fmt"
	"strconv"

	"github.com/R3E-Network/nft_lottery/internal/chain"
	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

// TxSubmitter signs and broadcasts a token transfer.
type TxSubmitter interface {
	SubmitTransfer(ctx context.Context, tokenContract, from, to string, amount int64) (txHash string, err error)
}

// TokenLedger is a Ledger backed by a fungible token contract on chain.
type TokenLedger struct {
	client    *chain.Client
	contract  string
	submitter TxSubmitter
	log       *logger.Logger
}

// NewTokenLedger creates a ledger client for the given token contract.
func NewTokenLedger(client *chain.Client, contractHash string, submitter TxSubmitter, log *logger.Logger) (*TokenLedger, error) {
	normalized, err := chain.ValidateScriptHash(contractHash)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewDefault("token-ledger")
	}
	return &TokenLedger{client: client, contract: normalized, submitter: submitter, log: log}, nil
}

// Transfer implements Ledger.
func (l *TokenLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if err := validateTransfer(from, to, amount); err != nil {
		return err
	}
	if l.submitter == nil {
		return fmt.Errorf("no transaction submitter configured")
	}
	txHash, err := l.submitter.SubmitTransfer(ctx, l.contract, from, to, amount)
	if err != nil {
		return fmt.Errorf("submit transfer: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, chain.DefaultTxWaitTimeout)
	defer cancel()
	applog, err := l.client.WaitForApplicationLog(wctx, txHash, 0)
	if err != nil {
		return fmt.Errorf("confirm transfer %s: %w", txHash, err)
	}
	for _, ex := range applog.Executions {
		if ex.VMState != "HALT" {
			return fmt.Errorf("transfer %s faulted: %s", txHash, ex.Exception)
		}
	}

	l.log.WithField("tx_hash", txHash).
		WithField("amount", Amount(amount, GASDecimals)).
		Debug("token transfer confirmed")
	return nil
}

// BalanceOf implements Ledger.
func (l *TokenLedger) BalanceOf(ctx context.Context, account string) (int64, error) {
	stack, err := l.client.TestInvoke(ctx, l.contract, "balanceOf", []chain.ContractParam{
		{Type: "Hash160", Value: account},
	})
	if err != nil {
		return 0, err
	}
	if len(stack) == 0 {
		return 0, fmt.Errorf("balanceOf %s: empty stack", account)
	}
	n, err := chain.ParseInteger(stack[0])
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("balance of %s overflows int64", account)
	}
	return n.Int64(), nil
}

var _ Ledger = (*TokenLedger)(nil)

// GASDecimals is the decimal precision of the GAS token.
const GASDecimals = 8

// Amount formats an integer token amount for display with the given decimals.
func Amount(raw int64, decimals int) string {
	s := strconv.FormatInt(raw, 10)
	if decimals <= 0 || raw < 0 {
		return s
	}
	for len(s) <= decimals {
		s = "0" + s
	}
	return s[:len(s)-decimals] + "." + s[len(s)-decimals:]
}
