package models

import "time"

type GameType string

const (
	GameTypeDice  GameType = "dice"
	GameTypeMines GameType = "mines"
	GameTypeCrash GameType = "crash"
)

func (g GameType) Valid() bool {
	switch g {
	case GameTypeDice, GameTypeMines, GameTypeCrash:
		return true
	}
	return false
}

// Multistep reports whether the game runs as a live session (mines, crash)
// rather than resolving in a single call (dice).
func (g GameType) Multistep() bool {
	return g == GameTypeMines || g == GameTypeCrash
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCashedOut SessionStatus = "cashed_out"
	SessionStatusLost      SessionStatus = "lost"
	SessionStatusExpired   SessionStatus = "expired"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCashedOut || s == SessionStatusLost || s == SessionStatusExpired
}

// GameSession is the live state of one in-progress multi-step game. It is
// created on session start, mutated only by the engine, and archived on the
// terminal transition. MinePositions and CrashPoint are draw material and
// must never reach the caller while the session is active; handlers strip
// them from responses until the session is terminal.
type GameSession struct {
	ID        string   `json:"id" redis:"id"`
	UserID    int64    `json:"user_id" redis:"user_id"`
	GameType  GameType `json:"game_type" redis:"game_type"`
	BetID     string   `json:"bet_id" redis:"bet_id"`
	BetAmount float64  `json:"bet_amount" redis:"bet_amount"`

	Multiplier float64 `json:"multiplier" redis:"multiplier"`
	Payout     float64 `json:"payout" redis:"payout"`

	// Provably fair material for the session's draw.
	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	Nonce          int64  `json:"nonce" redis:"nonce"`

	// Mines state.
	GridSize      int   `json:"grid_size,omitempty" redis:"grid_size"`
	MineCount     int   `json:"mine_count,omitempty" redis:"mine_count"`
	MinePositions []int `json:"mine_positions,omitempty" redis:"mine_positions"`
	Revealed      []int `json:"revealed,omitempty" redis:"revealed"`

	// Crash state. CrashPoint is drawn at session start; GrowthRate is the
	// curve constant k in multiplier(t) = exp(k*t).
	CrashPoint  float64 `json:"crash_point,omitempty" redis:"crash_point"`
	AutoCashout float64 `json:"auto_cashout,omitempty" redis:"auto_cashout"`
	GrowthRate  float64 `json:"growth_rate,omitempty" redis:"growth_rate"`

	// Expiry safety valve, snapshotted from the game config at start.
	MaxSessionAgeSec int64 `json:"max_session_age_sec,omitempty" redis:"max_session_age_sec"`

	Status    SessionStatus `json:"status" redis:"status"`
	StartedAt time.Time     `json:"started_at" redis:"started_at"`
	UpdatedAt time.Time     `json:"updated_at" redis:"updated_at"`
	EndedAt   time.Time     `json:"ended_at,omitempty" redis:"ended_at"`
}

// Clone returns a copy safe to hand out while the original keeps mutating.
func (s *GameSession) Clone() *GameSession {
	c := *s
	c.MinePositions = append([]int(nil), s.MinePositions...)
	c.Revealed = append([]int(nil), s.Revealed...)
	return &c
}
