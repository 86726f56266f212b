package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wager-engine-backend/internal/models"
)

func newSession(id string, userID int64, gameType models.GameType) *models.GameSession {
	now := time.Now()
	return &models.GameSession{
		ID:        id,
		UserID:    userID,
		GameType:  gameType,
		BetID:     "bet-" + id,
		BetAmount: 100,
		Status:    models.SessionStatusActive,
		StartedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateReservesSlot(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newSession("a", 1, models.GameTypeMines)))

	err := s.Create(ctx, newSession("b", 1, models.GameTypeMines))
	assert.ErrorIs(t, err, ErrSessionConflict)

	// A different game type or a different user is a different slot.
	require.NoError(t, s.Create(ctx, newSession("c", 1, models.GameTypeCrash)))
	require.NoError(t, s.Create(ctx, newSession("d", 2, models.GameTypeMines)))
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results <- s.Create(ctx, newSession(string(rune('a'+n)), 1, models.GameTypeMines))
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestCompleteFreesSlot(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	session := newSession("a", 1, models.GameTypeMines)
	require.NoError(t, s.Create(ctx, session))

	session.Status = models.SessionStatusCashedOut
	session.EndedAt = time.Now()
	require.NoError(t, s.Complete(ctx, session))

	// The slot is free again and the archived session is still readable.
	require.NoError(t, s.Create(ctx, newSession("b", 1, models.GameTypeMines)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCashedOut, got.Status)
}

func TestDeleteRollsBack(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	session := newSession("a", 1, models.GameTypeCrash)
	require.NoError(t, s.Create(ctx, session))
	require.NoError(t, s.Delete(ctx, session))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Nothing is archived and the slot is free.
	history, err := s.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	require.NoError(t, s.Create(ctx, newSession("b", 1, models.GameTypeCrash)))
}

func TestGetReturnsSnapshot(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	session := newSession("a", 1, models.GameTypeMines)
	session.Revealed = []int{1, 2}
	require.NoError(t, s.Create(ctx, session))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the store.
	got.Revealed = append(got.Revealed, 3)
	got.Status = models.SessionStatusLost

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, again.Revealed)
	assert.Equal(t, models.SessionStatusActive, again.Status)
}

func TestActiveAndActiveIDs(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newSession("a", 1, models.GameTypeMines)))
	require.NoError(t, s.Create(ctx, newSession("b", 1, models.GameTypeCrash)))
	require.NoError(t, s.Create(ctx, newSession("c", 2, models.GameTypeMines)))

	ids, err := s.Active(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)

	all, err := s.ActiveIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, all)
}

func TestHistoryNewestFirst(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		session := newSession(id, 1, models.GameTypeMines)
		require.NoError(t, s.Create(ctx, session))
		session.Status = models.SessionStatusLost
		session.EndedAt = time.Now()
		require.NoError(t, s.Complete(ctx, session))
	}

	history, err := s.History(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].ID)
	assert.Equal(t, "b", history[1].ID)
}
