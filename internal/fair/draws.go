package fair

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrMineBounds = errors.New("mine count must be positive and less than grid size")

const (
	tagRoll  = "roll"
	tagMines = "mines"
	tagCrash = "crash"
)

// DrawRoll draws a value uniformly in [0, 100) at two-decimal resolution.
// The house edge never biases the roll; it is realized in the payout
// multiplier so the draw stays auditable on its own.
func (e *Engine) DrawRoll(clientSeed string, nonce int64) float64 {
	return Roll(e.seed(), clientSeed, nonce)
}

func Roll(serverSeed, clientSeed string, nonce int64) float64 {
	f := floats(serverSeed, clientSeed, tagRoll, nonce, 1)[0]
	return math.Floor(f*10000) / 100
}

// DrawMines draws mineCount distinct positions out of [0, gridSize) without
// replacement.
func (e *Engine) DrawMines(clientSeed string, nonce int64, gridSize, mineCount int) ([]int, error) {
	return MinePositions(e.seed(), clientSeed, nonce, gridSize, mineCount)
}

func MinePositions(serverSeed, clientSeed string, nonce int64, gridSize, mineCount int) ([]int, error) {
	if mineCount <= 0 || mineCount >= gridSize {
		return nil, fmt.Errorf("%w: %d mines on %d cells", ErrMineBounds, mineCount, gridSize)
	}

	// Partial Fisher-Yates over the cell indices, driven by the float stream.
	cells := make([]int, gridSize)
	for i := range cells {
		cells[i] = i
	}

	fs := floats(serverSeed, clientSeed, tagMines, nonce, mineCount)
	for i := 0; i < mineCount; i++ {
		j := i + int(fs[i]*float64(gridSize-i))
		if j >= gridSize { // guard the f==0.999... edge
			j = gridSize - 1
		}
		cells[i], cells[j] = cells[j], cells[i]
	}

	positions := append([]int(nil), cells[:mineCount]...)
	sort.Ints(positions)
	return positions, nil
}

// DrawCrashPoint draws the terminal multiplier for a crash round from the
// heavy-tailed distribution P(crash <= m) = 1 - (1-houseEdge)/m, floored to
// two decimals, never below 1.00 and clamped to maxMultiplier. Over many
// rounds the expected payout ratio equals 1 - houseEdge.
func (e *Engine) DrawCrashPoint(clientSeed string, nonce int64, houseEdge, maxMultiplier float64) float64 {
	return CrashPoint(e.seed(), clientSeed, nonce, houseEdge, maxMultiplier)
}

func CrashPoint(serverSeed, clientSeed string, nonce int64, houseEdge, maxMultiplier float64) float64 {
	f := floats(serverSeed, clientSeed, tagCrash, nonce, 1)[0]

	crash := math.Floor((1-houseEdge)/(1-f)*100) / 100
	if crash < 1.0 {
		crash = 1.0
	}
	if maxMultiplier > 0 && crash > maxMultiplier {
		crash = maxMultiplier
	}
	return crash
}
