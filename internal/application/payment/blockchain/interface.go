// Package blockchain defines the chain gateway port: everything the lottery
// needs from the underlying network, and nothing more.
package blockchain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Validation failures returned by TransactionByHash. Callers treat these as
// non-fatal: the bet stays pending and the reconciler retries.
var (
	ErrTxNotFound      = errors.New("transaction not found on chain")
	ErrTxPending       = errors.New("transaction is not yet mined")
	ErrTxFailed        = errors.New("transaction failed on chain")
	ErrWrongRecipient  = errors.New("transaction recipient is not the receiving wallet")
	ErrValueTooLow     = errors.New("transaction value below minimum bet amount")
)

// Transaction is a confirmed inbound transfer observed on chain. Value is in
// native currency units.
type Transaction struct {
	Hash          string
	From          string
	To            string
	Value         decimal.Decimal
	BlockNumber   uint64
	Confirmations int
	Timestamp     time.Time
}

// Payment is the receipt of a sent payout.
type Payment struct {
	TxHash      string
	To          string
	Amount      decimal.Decimal
	BlockNumber uint64
}

// Gateway wraps blockchain reads and the single payout write the lottery
// performs.
type Gateway interface {
	// TransactionByHash fetches and validates a confirmed inbound transaction.
	// Returns one of the Err* sentinel errors when validation fails.
	TransactionByHash(ctx context.Context, hash string) (*Transaction, error)

	// RecentInbound lists recent confirmed transactions to the receiving
	// wallet, newest first, bounded by limit.
	RecentInbound(ctx context.Context, limit int) ([]Transaction, error)

	// SendPayment sends amount to the given address from the payout wallet
	// and waits for the transaction to be mined.
	SendPayment(ctx context.Context, to string, amount decimal.Decimal) (*Payment, error)

	// Balance returns the native-currency balance of an address.
	Balance(ctx context.Context, address string) (decimal.Decimal, error)

	// ReceivingAddress returns the configured wallet that collects bets.
	ReceivingAddress() string
}
