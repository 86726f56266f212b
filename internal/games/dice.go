package games

// Package games holds the per-game outcome math. Everything here is pure and
// deterministic: draws come in from the fairness engine, money moves are the
// ledger's job, and the coordinator wires the two together.

// ResolveDice decides a single-shot roll bet. Win iff the roll lands strictly
// beyond the target on the chosen side.
func ResolveDice(roll, target float64, over bool) bool {
	if over {
		return roll > target
	}
	return roll < target
}

// DiceMultiplier returns the payout multiplier for a winning roll. The house
// edge is applied here, never to the draw itself:
// multiplier = (100 / targetRange) * (1 - houseEdge).
func DiceMultiplier(target float64, over bool, houseEdge float64) float64 {
	targetRange := target
	if over {
		targetRange = 100 - target
	}
	return (100 / targetRange) * (1 - houseEdge)
}
