package sessions

import (
	"context"
	"fmt"
	"sync"

	"wager-engine-backend/internal/models"
)

const historyKeep = 100

// Memory is the in-process session store.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]*models.GameSession
	slots   map[string]string // "userID:gameType" -> active session ID
	history map[int64][]*models.GameSession
}

func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]*models.GameSession),
		slots:   make(map[string]string),
		history: make(map[int64][]*models.GameSession),
	}
}

func slotKey(userID int64, gameType models.GameType) string {
	return fmt.Sprintf("%d:%s", userID, gameType)
}

func (m *Memory) Create(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := slotKey(session.UserID, session.GameType)
	if active, ok := m.slots[slot]; ok {
		return fmt.Errorf("%w: session %s already active for %s", ErrSessionConflict, active, session.GameType)
	}

	m.slots[slot] = session.ID
	m.byID[session.ID] = session.Clone()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*models.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session.Clone(), nil
}

func (m *Memory) Update(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[session.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, session.ID)
	}
	m.byID[session.ID] = session.Clone()
	return nil
}

func (m *Memory) Delete(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.byID, session.ID)
	slot := slotKey(session.UserID, session.GameType)
	if m.slots[slot] == session.ID {
		delete(m.slots, slot)
	}
	return nil
}

func (m *Memory) Complete(ctx context.Context, session *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := session.Clone()
	m.byID[session.ID] = c

	slot := slotKey(session.UserID, session.GameType)
	if m.slots[slot] == session.ID {
		delete(m.slots, slot)
	}

	h := append(m.history[session.UserID], c)
	if len(h) > historyKeep {
		h = h[len(h)-historyKeep:]
	}
	m.history[session.UserID] = h
	return nil
}

func (m *Memory) ActiveIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.slots))
	for _, id := range m.slots {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) Active(ctx context.Context, userID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, gameType := range []models.GameType{models.GameTypeMines, models.GameTypeCrash} {
		if id, ok := m.slots[slotKey(userID, gameType)]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Memory) History(ctx context.Context, userID int64, limit int64) ([]*models.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > historyKeep {
		limit = 50
	}

	h := m.history[userID]
	out := make([]*models.GameSession, 0, limit)
	for i := len(h) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, h[i].Clone())
	}
	return out, nil
}
