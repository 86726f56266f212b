package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wager-engine-backend/internal/models"
)

// Memory is the in-process ledger. Mutations on one user serialize on that
// user's wallet lock; the bet index has its own lock, always taken inside a
// wallet lock, so the two can never deadlock.
type Memory struct {
	mu      sync.Mutex
	wallets map[int64]*memWallet

	betsMu sync.Mutex
	bets   map[string]*models.BetRecord
}

type memWallet struct {
	mu     sync.Mutex
	wallet models.Wallet
	txs    []*models.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		wallets: make(map[int64]*memWallet),
		bets:    make(map[string]*models.BetRecord),
	}
}

func (l *Memory) get(userID int64) (*memWallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mw, ok := l.wallets[userID]; ok {
		return mw, nil
	}

	w, err := models.NewWallet(userID)
	if err != nil {
		return nil, err
	}
	mw := &memWallet{wallet: *w}
	l.wallets[userID] = mw
	return mw, nil
}

func (l *Memory) Debit(ctx context.Context, userID int64, amount float64, betID string, gameType models.GameType) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	mw, err := l.get(userID)
	if err != nil {
		return err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.wallet.Balance < amount {
		return fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientBalance, mw.wallet.Balance, amount)
	}

	l.betsMu.Lock()
	if _, ok := l.bets[betID]; ok {
		l.betsMu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateBet, betID)
	}
	l.bets[betID] = &models.BetRecord{
		ID:        betID,
		UserID:    userID,
		GameType:  gameType,
		Amount:    amount,
		Status:    models.BetStatusPending,
		CreatedAt: time.Now(),
	}
	l.betsMu.Unlock()

	before := mw.wallet.Balance
	mw.wallet.Balance -= amount
	mw.wallet.TotalWagered += amount
	mw.record(userID, models.TransactionTypeBet, -amount, before, betID,
		fmt.Sprintf("Placed %s bet", gameType))
	return nil
}

func (l *Memory) Credit(ctx context.Context, userID int64, payout float64, betID string) error {
	if payout < 0 {
		return ErrInvalidAmount
	}

	mw, err := l.get(userID)
	if err != nil {
		return err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	l.betsMu.Lock()
	bet, ok := l.bets[betID]
	if !ok || bet.UserID != userID {
		l.betsMu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownBet, betID)
	}
	if bet.Status.Terminal() {
		l.betsMu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrAlreadySettled, betID, bet.Status)
	}
	bet.Payout = payout
	bet.SettledAt = time.Now()
	if payout > 0 {
		bet.Status = models.BetStatusWon
	} else {
		bet.Status = models.BetStatusLost
	}
	gameType := bet.GameType
	l.betsMu.Unlock()

	if payout > 0 {
		before := mw.wallet.Balance
		mw.wallet.Balance += payout
		mw.wallet.TotalWon += payout
		mw.record(userID, models.TransactionTypeWin, payout, before, betID,
			fmt.Sprintf("Won %s on %s", models.FormatCurrency(payout), gameType))
	}
	return nil
}

func (l *Memory) Void(ctx context.Context, userID int64, betID string) error {
	mw, err := l.get(userID)
	if err != nil {
		return err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	l.betsMu.Lock()
	bet, ok := l.bets[betID]
	if !ok || bet.UserID != userID {
		l.betsMu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownBet, betID)
	}
	if bet.Status.Terminal() {
		l.betsMu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrAlreadySettled, betID, bet.Status)
	}
	bet.Status = models.BetStatusVoided
	bet.SettledAt = time.Now()
	stake := bet.Amount
	l.betsMu.Unlock()

	before := mw.wallet.Balance
	mw.wallet.Balance += stake
	mw.wallet.TotalWagered -= stake
	mw.record(userID, models.TransactionTypeRefund, stake, before, betID, "Voided bet refund")
	return nil
}

func (l *Memory) Deposit(ctx context.Context, userID int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	mw, err := l.get(userID)
	if err != nil {
		return 0, err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	before := mw.wallet.Balance
	mw.wallet.Balance += amount
	mw.record(userID, models.TransactionTypeDeposit, amount, before, "", "Deposit")
	return mw.wallet.Balance, nil
}

func (l *Memory) Withdraw(ctx context.Context, userID int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	mw, err := l.get(userID)
	if err != nil {
		return 0, err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	if mw.wallet.Balance < amount {
		return 0, fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientBalance, mw.wallet.Balance, amount)
	}

	before := mw.wallet.Balance
	mw.wallet.Balance -= amount
	mw.record(userID, models.TransactionTypeWithdraw, -amount, before, "", "Withdrawal")
	return mw.wallet.Balance, nil
}

func (l *Memory) Wallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	mw, err := l.get(userID)
	if err != nil {
		return nil, err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()
	w := mw.wallet
	return &w, nil
}

func (l *Memory) ConsumeNonce(ctx context.Context, userID int64) (string, int64, error) {
	mw, err := l.get(userID)
	if err != nil {
		return "", 0, err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()
	nonce := mw.wallet.Nonce
	mw.wallet.Nonce++
	return mw.wallet.ClientSeed, nonce, nil
}

func (l *Memory) Bet(ctx context.Context, betID string) (*models.BetRecord, error) {
	l.betsMu.Lock()
	defer l.betsMu.Unlock()

	bet, ok := l.bets[betID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBet, betID)
	}
	b := *bet
	return &b, nil
}

func (l *Memory) Transactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	mw, err := l.get(userID)
	if err != nil {
		return nil, err
	}

	mw.mu.Lock()
	defer mw.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	// newest first
	out := make([]*models.Transaction, 0, limit)
	for i := len(mw.txs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		tx := *mw.txs[i]
		out = append(out, &tx)
	}
	return out, nil
}

// record appends a transaction entry; caller holds the wallet lock.
func (mw *memWallet) record(userID int64, txType models.TransactionType, amount, before float64, betID, description string) {
	mw.txs = append(mw.txs, &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  mw.wallet.Balance,
		BetID:         betID,
		Description:   description,
		CreatedAt:     time.Now(),
	})
}
