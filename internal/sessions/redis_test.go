package sessions_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"wager-engine-backend/internal/models"
	"wager-engine-backend/internal/sessions"
)

func TestRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	store := sessions.NewRedis(client)
	userID := time.Now().UnixNano()
	now := time.Now()

	session := &models.GameSession{
		ID:            fmt.Sprintf("test_session_%d", userID),
		UserID:        userID,
		GameType:      models.GameTypeMines,
		BetID:         fmt.Sprintf("test-bet-%d", userID),
		BetAmount:     500,
		GridSize:      25,
		MineCount:     3,
		MinePositions: []int{3, 10, 17},
		Revealed:      []int{},
		Status:        models.SessionStatusActive,
		StartedAt:     now,
		UpdatedAt:     now,
	}

	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	defer store.Delete(ctx, session)

	second := *session
	second.ID = session.ID + "_dup"
	if err := store.Create(ctx, &second); err == nil {
		store.Delete(ctx, &second)
		t.Error("Second session in the same slot should conflict")
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if got.GameType != models.GameTypeMines || len(got.MinePositions) != 3 {
		t.Errorf("Session did not round-trip: %+v", got)
	}

	active, err := store.Active(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to list active sessions: %v", err)
	}
	if len(active) != 1 || active[0] != session.ID {
		t.Errorf("Expected active [%s], got %v", session.ID, active)
	}

	session.Status = models.SessionStatusCashedOut
	session.EndedAt = time.Now()
	if err := store.Complete(ctx, session); err != nil {
		t.Fatalf("Failed to complete session: %v", err)
	}

	// Slot is free again.
	second.ID = session.ID + "_next"
	if err := store.Create(ctx, &second); err != nil {
		t.Errorf("Slot should be free after completion: %v", err)
	} else {
		store.Delete(ctx, &second)
	}

	history, err := store.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 || history[0].ID != session.ID {
		t.Errorf("Expected history [%s], got %d entries", session.ID, len(history))
	}
}
