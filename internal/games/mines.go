package games

import (
	"errors"
	"fmt"
)

var (
	ErrCellOutOfRange  = errors.New("cell position out of range")
	ErrCellAlreadyOpen = errors.New("cell already revealed")
)

// MinesRound is the board state of one sequential-reveal session.
type MinesRound struct {
	GridSize   int
	Mines      []int
	Revealed   []int
	Multiplier float64
}

func NewMinesRound(gridSize int, mines []int) *MinesRound {
	return &MinesRound{
		GridSize:   gridSize,
		Mines:      mines,
		Revealed:   []int{},
		Multiplier: 1.0,
	}
}

// ResumeMinesRound rebuilds board state from a stored session. The running
// multiplier is recomputed from the reveal history, so it is always the
// deterministic product regardless of how the session was persisted.
func ResumeMinesRound(gridSize int, mines, revealed []int) *MinesRound {
	r := &MinesRound{
		GridSize:   gridSize,
		Mines:      mines,
		Revealed:   append([]int(nil), revealed...),
		Multiplier: MinesMultiplier(gridSize, len(mines), len(revealed)),
	}
	return r
}

// Reveal opens one cell. A mine hit is terminal and leaves the multiplier
// untouched; a safe reveal compounds the multiplier by
// remainingCells / remainingSafeCells evaluated at this reveal.
func (r *MinesRound) Reveal(pos int) (hit bool, err error) {
	if pos < 0 || pos >= r.GridSize {
		return false, fmt.Errorf("%w: %d on a %d-cell grid", ErrCellOutOfRange, pos, r.GridSize)
	}
	for _, p := range r.Revealed {
		if p == pos {
			return false, fmt.Errorf("%w: %d", ErrCellAlreadyOpen, pos)
		}
	}

	for _, m := range r.Mines {
		if m == pos {
			return true, nil
		}
	}

	remaining := r.GridSize - len(r.Revealed)
	remainingSafe := remaining - len(r.Mines)
	r.Multiplier *= float64(remaining) / float64(remainingSafe)
	r.Revealed = append(r.Revealed, pos)
	return false, nil
}

// SafeCellsLeft reports how many unrevealed safe cells remain.
func (r *MinesRound) SafeCellsLeft() int {
	return r.GridSize - len(r.Mines) - len(r.Revealed)
}

// MinesMultiplier is the closed form of the running multiplier after k safe
// reveals on an n-cell grid with m mines: the product of (n-i)/(n-i-m) for
// i in [0, k).
func MinesMultiplier(gridSize, mineCount, safeReveals int) float64 {
	multiplier := 1.0
	for i := 0; i < safeReveals; i++ {
		remaining := gridSize - i
		multiplier *= float64(remaining) / float64(remaining-mineCount)
	}
	return multiplier
}
