package fair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestServerSeedCommitment(t *testing.T) {
	e := NewEngineWithSeed(testSeed)

	hash := e.ServerSeedHash()
	assert.Len(t, hash, 64)
	assert.Equal(t, HashSeed(testSeed), hash)
}

func TestRotateRevealsOldSeed(t *testing.T) {
	e := NewEngineWithSeed(testSeed)
	before := e.ServerSeedHash()

	revealed, err := e.Rotate()
	require.NoError(t, err)

	// The revealed seed must verify against the hash committed before
	// rotation, and the engine must now commit to something else.
	assert.Equal(t, before, HashSeed(revealed))
	assert.NotEqual(t, before, e.ServerSeedHash())
}

func TestRollRangeAndResolution(t *testing.T) {
	for nonce := int64(0); nonce < 1000; nonce++ {
		roll := Roll(testSeed, "client", nonce)
		assert.GreaterOrEqual(t, roll, 0.0)
		assert.Less(t, roll, 100.0)

		// Two-decimal resolution.
		assert.Equal(t, float64(int(roll*100))/100, roll)
	}
}

func TestRollDeterministic(t *testing.T) {
	a := Roll(testSeed, "client", 42)
	b := Roll(testSeed, "client", 42)
	assert.Equal(t, a, b)

	// Any change to the material changes the draw.
	assert.NotEqual(t, a, Roll(testSeed, "client", 43))
	assert.NotEqual(t, a, Roll(testSeed, "other", 42))
}

func TestMinePositions(t *testing.T) {
	positions, err := MinePositions(testSeed, "client", 7, 25, 5)
	require.NoError(t, err)
	require.Len(t, positions, 5)

	seen := make(map[int]bool)
	for _, p := range positions {
		assert.GreaterOrEqual(t, p, 0)
		assert.Less(t, p, 25)
		assert.False(t, seen[p], "duplicate position %d", p)
		seen[p] = true
	}

	again, err := MinePositions(testSeed, "client", 7, 25, 5)
	require.NoError(t, err)
	assert.Equal(t, positions, again)
}

func TestMinePositionsBounds(t *testing.T) {
	_, err := MinePositions(testSeed, "client", 0, 25, 0)
	assert.ErrorIs(t, err, ErrMineBounds)

	_, err = MinePositions(testSeed, "client", 0, 25, 25)
	assert.ErrorIs(t, err, ErrMineBounds)

	// 24 mines on 25 cells is the maximum.
	positions, err := MinePositions(testSeed, "client", 0, 25, 24)
	require.NoError(t, err)
	assert.Len(t, positions, 24)
}

func TestCrashPointDistribution(t *testing.T) {
	atLeastTwo := 0
	for nonce := int64(0); nonce < 5000; nonce++ {
		crash := CrashPoint(testSeed, "client", nonce, 0.01, 1000)
		assert.GreaterOrEqual(t, crash, 1.0)
		assert.LessOrEqual(t, crash, 1000.0)
		if crash >= 2.0 {
			atLeastTwo++
		}
	}

	// P(crash >= 2) = (1-he)/2 ~= 49.5%; allow a generous band.
	ratio := float64(atLeastTwo) / 5000
	assert.Greater(t, ratio, 0.45)
	assert.Less(t, ratio, 0.55)
}

func TestCrashPointClamped(t *testing.T) {
	for nonce := int64(0); nonce < 2000; nonce++ {
		crash := CrashPoint(testSeed, "client", nonce, 0.01, 10)
		assert.LessOrEqual(t, crash, 10.0)
	}
}

func TestDrawTagsIndependent(t *testing.T) {
	// Different draw types at the same nonce must not share stream bytes.
	a := floats(testSeed, "client", tagRoll, 1, 1)[0]
	b := floats(testSeed, "client", tagCrash, 1, 1)[0]
	c := floats(testSeed, "client", tagMines, 1, 1)[0]
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)

	// Within a type the stream is uniform in [0, 1).
	for _, f := range floats(testSeed, "client", tagRoll, 2, 100) {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestDiceExpectedReturn(t *testing.T) {
	// Betting over 50 at 1% edge across many nonces should return about 99%
	// of the total staked.
	const rounds = 20000
	multiplier := 1.98

	var returned float64
	for nonce := int64(0); nonce < rounds; nonce++ {
		if Roll(testSeed, "client", nonce) > 50 {
			returned += multiplier
		}
	}

	ratio := returned / rounds
	assert.InDelta(t, 0.99, ratio, 0.03)
}
