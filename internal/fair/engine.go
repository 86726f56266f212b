package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
)

// Engine produces provably fair draws. The server seed is committed to via
// its SHA-256 hash before any draw; callers verify outcomes after the seed is
// revealed on rotation. Draws are pure functions of
// (serverSeed, clientSeed, nonce), so any decision point is reproducible for
// audit and no draw biases another.
type Engine struct {
	mu         sync.RWMutex
	serverSeed string
}

func NewEngine() (*Engine, error) {
	seed, err := GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	return &Engine{serverSeed: seed}, nil
}

// NewEngineWithSeed pins the server seed. Used by tests and by the audit
// endpoint when replaying a revealed seed.
func NewEngineWithSeed(seed string) *Engine {
	return &Engine{serverSeed: seed}
}

func GenerateServerSeed() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// ServerSeedHash returns the commitment published to players.
func (e *Engine) ServerSeedHash() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return HashSeed(e.serverSeed)
}

// Rotate swaps in a fresh server seed and returns the previous one so it can
// be revealed for verification of past draws.
func (e *Engine) Rotate() (revealed string, err error) {
	next, err := GenerateServerSeed()
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	revealed = e.serverSeed
	e.serverSeed = next
	return revealed, nil
}

func (e *Engine) seed() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.serverSeed
}

func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// floats derives uniform values in [0, 1) from an HMAC-SHA256 byte stream
// keyed by the server seed. The message is tagged per draw type so a dice
// roll and a mine layout at the same nonce never share bytes. 4 bytes per
// float.
func floats(serverSeed, clientSeed, tag string, nonce int64, count int) []float64 {
	out := make([]float64, count)

	var buf []byte
	round := 0
	next := func() byte {
		if len(buf) == 0 {
			h := hmac.New(sha256.New, []byte(serverSeed))
			fmt.Fprintf(h, "%s:%s:%d:%d", tag, clientSeed, nonce, round)
			buf = h.Sum(nil)
			round++
		}
		b := buf[0]
		buf = buf[1:]
		return b
	}

	for i := range out {
		b0 := next()
		b1 := next()
		b2 := next()
		b3 := next()
		out[i] = float64(b0)/256.0 +
			float64(b1)/(256.0*256.0) +
			float64(b2)/(256.0*256.0*256.0) +
			float64(b3)/(256.0*256.0*256.0*256.0)
	}

	return out
}
