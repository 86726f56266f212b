package models

import "time"

// GameConfig carries the per-game-type bounds supplied by the configuration
// provider. It is re-read for every money-moving operation; the engine never
// caches it across bets.
type GameConfig struct {
	MinBet        float64 `json:"min_bet"`
	MaxBet        float64 `json:"max_bet"`
	HouseEdge     float64 `json:"house_edge"`
	MaxMultiplier float64 `json:"max_multiplier"`

	// Mines bounds.
	GridSize int `json:"grid_size,omitempty"`
	MaxMines int `json:"max_mines,omitempty"`

	// Crash curve constant k in multiplier(t) = exp(k*t).
	GrowthRate float64 `json:"growth_rate,omitempty"`

	// Safety valve: an active session older than this is expired (settled as
	// lost). Zero means the game has no session clock (dice).
	MaxSessionAgeSec int64 `json:"max_session_age_sec,omitempty"`
}

func (c GameConfig) MaxSessionAge() time.Duration {
	return time.Duration(c.MaxSessionAgeSec) * time.Second
}
