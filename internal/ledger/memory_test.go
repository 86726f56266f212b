package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-engine-backend/internal/models"
)

func TestDebitCredit(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	w, err := l.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, w.Balance)

	require.NoError(t, l.Debit(ctx, 1, 500, "bet-1", models.GameTypeDice))

	w, err = l.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9500.0, w.Balance)
	assert.Equal(t, 500.0, w.TotalWagered)

	require.NoError(t, l.Credit(ctx, 1, 990, "bet-1"))

	w, err = l.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10490.0, w.Balance)
	assert.Equal(t, 990.0, w.TotalWon)

	bet, err := l.Bet(ctx, "bet-1")
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusWon, bet.Status)
	assert.Equal(t, 990.0, bet.Payout)
}

func TestCreditZeroMarksLost(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	require.NoError(t, l.Debit(ctx, 1, 500, "bet-1", models.GameTypeMines))
	require.NoError(t, l.Credit(ctx, 1, 0, "bet-1"))

	bet, err := l.Bet(ctx, "bet-1")
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusLost, bet.Status)

	w, err := l.Wallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9500.0, w.Balance)
}

func TestInsufficientBalance(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	err := l.Debit(ctx, 1, 10001, "bet-1", models.GameTypeDice)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// The failed debit left nothing behind: same bet ID is usable and the
	// balance is untouched.
	w, _ := l.Wallet(ctx, 1)
	assert.Equal(t, 10000.0, w.Balance)
	require.NoError(t, l.Debit(ctx, 1, 100, "bet-1", models.GameTypeDice))
}

func TestDuplicateBet(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	require.NoError(t, l.Debit(ctx, 1, 100, "bet-1", models.GameTypeDice))

	err := l.Debit(ctx, 1, 100, "bet-1", models.GameTypeDice)
	assert.ErrorIs(t, err, ErrDuplicateBet)

	// Only the first debit moved money.
	w, _ := l.Wallet(ctx, 1)
	assert.Equal(t, 9900.0, w.Balance)
}

func TestCreditUnknownBet(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	err := l.Credit(ctx, 1, 100, "never-debited")
	assert.ErrorIs(t, err, ErrUnknownBet)

	// A bet debited by another user is unknown to this one.
	require.NoError(t, l.Debit(ctx, 2, 100, "bet-1", models.GameTypeDice))
	err = l.Credit(ctx, 1, 100, "bet-1")
	assert.ErrorIs(t, err, ErrUnknownBet)
}

func TestCreditIdempotent(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	require.NoError(t, l.Debit(ctx, 1, 100, "bet-1", models.GameTypeCrash))
	require.NoError(t, l.Credit(ctx, 1, 200, "bet-1"))

	err := l.Credit(ctx, 1, 200, "bet-1")
	assert.ErrorIs(t, err, ErrAlreadySettled)

	// The duplicate attempt credited nothing.
	w, _ := l.Wallet(ctx, 1)
	assert.Equal(t, 10100.0, w.Balance)
}

func TestVoidRefundsStake(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	require.NoError(t, l.Debit(ctx, 1, 300, "bet-1", models.GameTypeMines))
	require.NoError(t, l.Void(ctx, 1, "bet-1"))

	w, _ := l.Wallet(ctx, 1)
	assert.Equal(t, 10000.0, w.Balance)
	assert.Equal(t, 0.0, w.TotalWagered)

	bet, err := l.Bet(ctx, "bet-1")
	require.NoError(t, err)
	assert.Equal(t, models.BetStatusVoided, bet.Status)

	// A voided bet is terminal: no credit can land on it afterwards.
	err = l.Credit(ctx, 1, 100, "bet-1")
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestConcurrentDebitsSameBetID(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Debit(ctx, 1, 100, "bet-1", models.GameTypeDice)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateBet)
		}
	}
	assert.Equal(t, 1, succeeded)

	w, _ := l.Wallet(ctx, 1)
	assert.Equal(t, 9900.0, w.Balance)
}

func TestConcurrentDebitsNeverGoNegative(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	// 100 debits of 200 against a 10000 balance: at most 50 can land.
	const workers = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Debit(ctx, 1, 200, fmt.Sprintf("bet-%d", n), models.GameTypeDice)
		}(i)
	}
	wg.Wait()

	w, _ := l.Wallet(ctx, 1)
	assert.GreaterOrEqual(t, w.Balance, 0.0)
	assert.Equal(t, 0.0, w.Balance)
}

func TestDepositWithdraw(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	balance, err := l.Deposit(ctx, 1, 5000)
	require.NoError(t, err)
	assert.Equal(t, 15000.0, balance)

	balance, err = l.Withdraw(ctx, 1, 12000)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, balance)

	_, err = l.Withdraw(ctx, 1, 3001)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = l.Deposit(ctx, 1, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConsumeNonce(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	seed, nonce, err := l.ConsumeNonce(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, seed)
	assert.Equal(t, int64(0), nonce)

	_, nonce, err = l.ConsumeNonce(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nonce)

	// Concurrent consumers each get a distinct nonce.
	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, n, err := l.ConsumeNonce(ctx, 1)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers)
}

func TestTransactionsNewestFirst(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	require.NoError(t, l.Debit(ctx, 1, 100, "bet-1", models.GameTypeDice))
	require.NoError(t, l.Credit(ctx, 1, 198, "bet-1"))
	_, err := l.Deposit(ctx, 1, 500)
	require.NoError(t, err)

	txs, err := l.Transactions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, models.TransactionTypeDeposit, txs[0].Type)
	assert.Equal(t, models.TransactionTypeWin, txs[1].Type)
	assert.Equal(t, models.TransactionTypeBet, txs[2].Type)

	// Balance chains: each entry's after equals the next-newer entry's before.
	assert.Equal(t, txs[2].BalanceAfter, txs[1].BalanceBefore)
	assert.Equal(t, txs[1].BalanceAfter, txs[0].BalanceBefore)
}
