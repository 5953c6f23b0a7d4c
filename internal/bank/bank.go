// Package bank moves ticket payments between accounts. The lottery only
// needs two operations from the payment token: transfer and balance lookup.
package bank

import (
	"context"
	"errors"
	"fmt"
)

// ErrInsufficientFunds is returned when a transfer exceeds the sender balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the fungible-token surface the lottery settles through.
type Ledger interface {
	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to string, amount int64) error
	// BalanceOf returns the balance of an account.
	BalanceOf(ctx context.Context, account string) (int64, error)
}

// IsInsufficientFunds reports whether err means the sender could not pay.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func validateTransfer(from, to string, amount int64) error {
	if from == "" || to == "" {
		return fmt.Errorf("transfer requires both accounts")
	}
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	return nil
}
