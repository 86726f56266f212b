package models

import "time"

type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWon     BetStatus = "won"
	BetStatusLost    BetStatus = "lost"
	BetStatusVoided  BetStatus = "voided"
)

func (s BetStatus) Terminal() bool {
	return s == BetStatusWon || s == BetStatusLost || s == BetStatusVoided
}

// BetRecord identifies one wager. It is created by the ledger at debit time
// with status pending and transitions to a terminal status exactly once, at
// settlement. Immutable afterwards.
type BetRecord struct {
	ID        string    `json:"id" redis:"id"`
	UserID    int64     `json:"user_id" redis:"user_id"`
	GameType  GameType  `json:"game_type" redis:"game_type"`
	Amount    float64   `json:"amount" redis:"amount"`
	Payout    float64   `json:"payout" redis:"payout"`
	Status    BetStatus `json:"status" redis:"status"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	SettledAt time.Time `json:"settled_at,omitempty" redis:"settled_at"`
}
