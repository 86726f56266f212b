package games

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func crashRound(crashPoint, auto float64, start time.Time) CrashRound {
	return CrashRound{
		CrashPoint:  crashPoint,
		AutoCashout: auto,
		GrowthRate:  0.1,
		StartedAt:   start,
	}
}

func TestCrashMultiplierAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(10, 0, start)

	assert.Equal(t, 1.0, r.MultiplierAt(start))
	assert.Equal(t, 1.0, r.MultiplierAt(start.Add(-time.Second)))

	// exp(0.1 * 10) = e
	assert.InDelta(t, 2.718281828, r.MultiplierAt(start.Add(10*time.Second)), 1e-6)
}

func TestCrashEvaluateRunning(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(3.0, 0, start)

	event, m := r.Evaluate(start.Add(time.Second))
	assert.Equal(t, CrashRunning, event)
	assert.InDelta(t, 1.10, m, 1e-9) // floor(exp(0.1)*100)/100

	event, _ = r.Evaluate(start)
	assert.Equal(t, CrashRunning, event)
}

func TestCrashEvaluateCrashed(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(3.0, 0, start)

	// ln(3)/0.1 ~= 10.986s; well past it the round has crashed.
	event, payout := r.Evaluate(start.Add(time.Minute))
	assert.Equal(t, CrashCrashed, event)
	assert.Equal(t, 0.0, payout)
}

func TestCrashAutoCashoutBeatsCrash(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(3.0, 2.0, start)

	// The auto threshold is strictly below the crash point, so it wins even
	// when the evaluation arrives long after both instants passed.
	event, m := r.Evaluate(start.Add(time.Hour))
	assert.Equal(t, CrashAutoCashed, event)
	assert.Equal(t, 2.0, m)
}

func TestCrashAutoCashoutAboveCrashLoses(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(3.0, 5.0, start)

	event, payout := r.Evaluate(start.Add(time.Hour))
	assert.Equal(t, CrashCrashed, event)
	assert.Equal(t, 0.0, payout)
}

func TestCrashAutoCashoutEqualToCrashLoses(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(3.0, 3.0, start)

	event, _ := r.Evaluate(start.Add(time.Hour))
	assert.Equal(t, CrashCrashed, event)
}

func TestCrashAutoCashoutNotYetReached(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(3.0, 2.0, start)

	// ln(2)/0.1 ~= 6.93s; at 5s the round is still running.
	event, m := r.Evaluate(start.Add(5 * time.Second))
	assert.Equal(t, CrashRunning, event)
	assert.Less(t, m, 2.0)
	assert.GreaterOrEqual(t, m, 1.0)
}

func TestCrashTimeInvertsCurve(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := crashRound(4.0, 0, start)

	at := r.CrashTime()
	assert.InDelta(t, 4.0, r.MultiplierAt(at), 1e-6)

	event, _ := r.Evaluate(at)
	assert.Equal(t, CrashCrashed, event)
}
