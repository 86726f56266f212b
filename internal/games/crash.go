package games

import (
	"math"
	"time"
)

// CrashEvent is the state of a crash round at an evaluation instant.
type CrashEvent int

const (
	// CrashRunning: the curve has reached neither the auto threshold nor the
	// crash point.
	CrashRunning CrashEvent = iota
	// CrashAutoCashed: the pre-registered auto cash-out threshold was crossed
	// before the crash point.
	CrashAutoCashed
	// CrashCrashed: the curve reached the drawn crash point.
	CrashCrashed
)

// CrashRound models the continuous-growth game as a pure function of elapsed
// wall-clock time: multiplier(t) = exp(k*t). There is no ticking goroutine
// that owns the outcome; crash-reached and auto cash-out are both evaluated
// on demand from (StartedAt, CrashPoint, GrowthRate), which makes the round
// immune to missed ticks.
type CrashRound struct {
	CrashPoint  float64
	AutoCashout float64 // 0 = none registered
	GrowthRate  float64 // k
	StartedAt   time.Time
}

// MultiplierAt returns the live multiplier at time t, never below 1.0.
func (r CrashRound) MultiplierAt(t time.Time) float64 {
	elapsed := t.Sub(r.StartedAt).Seconds()
	if elapsed <= 0 {
		return 1.0
	}
	return math.Exp(r.GrowthRate * elapsed)
}

// timeToReach inverts the curve: the instant multiplier(t) first reaches m.
func (r CrashRound) timeToReach(m float64) time.Time {
	if m <= 1 {
		return r.StartedAt
	}
	return r.StartedAt.Add(time.Duration(math.Log(m) / r.GrowthRate * float64(time.Second)))
}

// CrashTime is when the round terminates if nothing cashes out first.
func (r CrashRound) CrashTime() time.Time {
	return r.timeToReach(r.CrashPoint)
}

// Evaluate arbitrates the two termination triggers at time now.
//
// An auto cash-out strictly below the crash point is contractual: it was
// agreed before the draw was consumed and is resolved as a threshold
// crossing on the continuous curve, so it wins no matter how late the
// evaluation runs. The crash event wins every other race, including an auto
// threshold equal to or above the crash point. Manual cash-outs are the
// caller's concern: evaluate first, and only if the round is still running
// may the live multiplier be locked in.
func (r CrashRound) Evaluate(now time.Time) (CrashEvent, float64) {
	autoFires := r.AutoCashout > 1 && r.AutoCashout < r.CrashPoint
	if autoFires && !now.Before(r.timeToReach(r.AutoCashout)) {
		return CrashAutoCashed, r.AutoCashout
	}
	if !now.Before(r.CrashTime()) {
		return CrashCrashed, 0
	}
	return CrashRunning, roundMultiplier(r.MultiplierAt(now))
}

// roundMultiplier floors to two decimals so a settled multiplier is stable
// money math.
func roundMultiplier(m float64) float64 {
	out := math.Floor(m*100) / 100
	if out < 1.0 {
		out = 1.0
	}
	return out
}
