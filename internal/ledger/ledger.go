package ledger

import (
	"context"
	"errors"

	"wager-engine-backend/internal/models"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateBet        = errors.New("duplicate bet")
	ErrUnknownBet          = errors.New("unknown bet")
	ErrAlreadySettled      = errors.New("bet already settled")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// Ledger is the sole mutator of user balances. Debit creates the pending bet
// record and removes the stake in one atomic step; Credit settles that bet
// exactly once. Retrying either with the same bet ID is safe: the duplicate
// surfaces as a conflict instead of moving money twice. Operations on the
// same user never interleave.
//
// Deposits and withdrawals are the payment subsystem's funnel into the same
// contract; gateway approval flows live elsewhere.
type Ledger interface {
	Debit(ctx context.Context, userID int64, amount float64, betID string, gameType models.GameType) error
	Credit(ctx context.Context, userID int64, payout float64, betID string) error
	// Void refunds the stake of a pending bet and marks it voided. The
	// operational cancellation path: a voided bet is terminal and can never
	// be credited afterwards.
	Void(ctx context.Context, userID int64, betID string) error

	Deposit(ctx context.Context, userID int64, amount float64) (newBalance float64, err error)
	Withdraw(ctx context.Context, userID int64, amount float64) (newBalance float64, err error)

	// Wallet returns the balance snapshot, creating the wallet with the
	// starting balance on first touch.
	Wallet(ctx context.Context, userID int64) (*models.Wallet, error)
	// ConsumeNonce atomically hands out the wallet's next draw nonce so no
	// decision point can ever see the same draw twice.
	ConsumeNonce(ctx context.Context, userID int64) (clientSeed string, nonce int64, err error)

	Bet(ctx context.Context, betID string) (*models.BetRecord, error)
	Transactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error)
}
