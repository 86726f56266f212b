package models

import "fmt"

type DicePlayRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Target float64 `json:"target" binding:"required"`
	Over   bool    `json:"over"` // true = roll over target wins, false = under
}

// Validate covers shape only; bet limits come from the game config and are
// enforced by the engine against a fresh config read.
func (r *DicePlayRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: bet amount must be positive", ErrInvalidBet)
	}
	if r.Target <= 0 || r.Target >= 100 {
		return fmt.Errorf("%w: target must be strictly between 0 and 100", ErrInvalidBet)
	}
	return nil
}

type StartSessionRequest struct {
	GameType    GameType `json:"game_type" binding:"required"`
	Amount      float64  `json:"amount" binding:"required"`
	MineCount   int      `json:"mine_count,omitempty"`
	AutoCashout float64  `json:"auto_cashout,omitempty"`
}

func (r *StartSessionRequest) Validate() error {
	if !r.GameType.Multistep() {
		return fmt.Errorf("%w: game type %q does not run as a session", ErrInvalidBet, r.GameType)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: bet amount must be positive", ErrInvalidBet)
	}
	switch r.GameType {
	case GameTypeMines:
		if r.MineCount < 1 {
			return fmt.Errorf("%w: mine count must be at least 1", ErrInvalidBet)
		}
	case GameTypeCrash:
		if r.AutoCashout != 0 && r.AutoCashout <= 1 {
			return fmt.Errorf("%w: auto cashout must be greater than 1.0", ErrInvalidBet)
		}
	}
	return nil
}

type ActionType string

const (
	ActionReveal  ActionType = "reveal"
	ActionCashout ActionType = "cashout"
	ActionTick    ActionType = "tick"
)

// Action is one request against a live session: reveal a cell, cash out, or
// evaluate the clock.
type Action struct {
	Type     ActionType `json:"type"`
	Position int        `json:"position,omitempty"`
}

type DiceResult struct {
	BetID          string  `json:"bet_id"`
	Roll           float64 `json:"roll"`
	Target         float64 `json:"target"`
	Over           bool    `json:"over"`
	Win            bool    `json:"win"`
	Multiplier     float64 `json:"multiplier"`
	Payout         float64 `json:"payout"`
	NewBalance     float64 `json:"new_balance"`
	ClientSeed     string  `json:"client_seed"`
	ServerSeedHash string  `json:"server_seed_hash"`
	Nonce          int64   `json:"nonce"`
}

type VerificationData struct {
	ClientSeed     string `json:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	CurrentNonce   int64  `json:"current_nonce"`
}
