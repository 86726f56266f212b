package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDice(t *testing.T) {
	tests := []struct {
		name   string
		roll   float64
		target float64
		over   bool
		win    bool
	}{
		{"over wins above target", 50.01, 50, true, true},
		{"over loses on exact target", 50, 50, true, false},
		{"over loses below target", 49.99, 50, true, false},
		{"under wins below target", 49.99, 50, false, true},
		{"under loses on exact target", 50, 50, false, false},
		{"under loses above target", 50.01, 50, false, false},
		{"over near top of range", 99.98, 99.5, true, true},
		{"under near bottom of range", 0.01, 0.5, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.win, ResolveDice(tt.roll, tt.target, tt.over))
		})
	}
}

func TestDiceMultiplier(t *testing.T) {
	// 50/50 at 1% edge pays 1.98x.
	assert.InDelta(t, 1.98, DiceMultiplier(50, true, 0.01), 1e-9)
	assert.InDelta(t, 1.98, DiceMultiplier(50, false, 0.01), 1e-9)

	// A 10% win chance pays just under 10x.
	assert.InDelta(t, 9.9, DiceMultiplier(90, true, 0.01), 1e-9)
	assert.InDelta(t, 9.9, DiceMultiplier(10, false, 0.01), 1e-9)

	// Expected payout equals stake * (1 - houseEdge) at any target.
	for _, target := range []float64{1, 25, 50, 75, 99} {
		winChance := (100 - target) / 100
		expected := winChance * DiceMultiplier(target, true, 0.01)
		assert.InDelta(t, 0.99, expected, 1e-9, "target %v", target)
	}
}
