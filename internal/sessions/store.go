package sessions

import (
	"context"
	"errors"

	"wager-engine-backend/internal/models"
)

var (
	// ErrSessionConflict: a session is already active for the (user, game
	// type) slot, or an action targeted a session that is not active.
	ErrSessionConflict = errors.New("session conflict")
	ErrSessionNotFound = errors.New("session not found")
)

// Store holds live and archived game sessions. Create atomically reserves
// the single active slot per (user, game type) — a second start must fail,
// never silently replace. Only the engine mutates sessions.
type Store interface {
	Create(ctx context.Context, session *models.GameSession) error
	Get(ctx context.Context, id string) (*models.GameSession, error)
	Update(ctx context.Context, session *models.GameSession) error
	// Delete removes a session and frees its slot without archiving. Rollback
	// path for a start that could not complete.
	Delete(ctx context.Context, session *models.GameSession) error
	// Complete archives a terminal session and frees the (user, game type)
	// slot for a new start.
	Complete(ctx context.Context, session *models.GameSession) error

	// ActiveIDs lists every live session, for the expiry sweeper.
	ActiveIDs(ctx context.Context) ([]string, error)
	// Active lists the user's live sessions, at most one per game type.
	Active(ctx context.Context, userID int64) ([]string, error)
	History(ctx context.Context, userID int64, limit int64) ([]*models.GameSession, error)
}
