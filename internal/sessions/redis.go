package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wager-engine-backend/internal/models"
)

const (
	keySession            = "game:session:%s"
	keyActiveSlot         = "user:%d:active:%s"
	keyActiveSessions     = "sessions:active"
	keyUserCompletedGames = "user:%d:completed_games"

	ttlSession = 7 * 24 * time.Hour
)

// Redis stores sessions as JSON blobs, with the (user, game type) slot
// reserved by SETNX so two concurrent starts cannot both win.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Create(ctx context.Context, session *models.GameSession) error {
	slot := fmt.Sprintf(keyActiveSlot, session.UserID, session.GameType)

	ok, err := r.client.SetNX(ctx, slot, session.ID, ttlSession).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve session slot: %w", err)
	}
	if !ok {
		active, _ := r.client.Get(ctx, slot).Result()
		return fmt.Errorf("%w: session %s already active for %s", ErrSessionConflict, active, session.GameType)
	}

	if err := r.save(ctx, session); err != nil {
		r.client.Del(ctx, slot)
		return err
	}

	if err := r.client.SAdd(ctx, keyActiveSessions, session.ID).Err(); err != nil {
		return fmt.Errorf("failed to index active session: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*models.GameSession, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(keySession, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *Redis) Update(ctx context.Context, session *models.GameSession) error {
	return r.save(ctx, session)
}

func (r *Redis) Delete(ctx context.Context, session *models.GameSession) error {
	r.client.Del(ctx, fmt.Sprintf(keySession, session.ID))
	r.client.Del(ctx, fmt.Sprintf(keyActiveSlot, session.UserID, session.GameType))
	r.client.SRem(ctx, keyActiveSessions, session.ID)
	return nil
}

func (r *Redis) Complete(ctx context.Context, session *models.GameSession) error {
	if err := r.save(ctx, session); err != nil {
		return err
	}

	r.client.Del(ctx, fmt.Sprintf(keyActiveSlot, session.UserID, session.GameType))
	r.client.SRem(ctx, keyActiveSessions, session.ID)

	completed := fmt.Sprintf(keyUserCompletedGames, session.UserID)
	if err := r.client.ZAdd(ctx, completed, redis.Z{
		Score:  float64(session.EndedAt.Unix()),
		Member: session.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	// Keep only the last 100 completed games
	r.client.ZRemRangeByRank(ctx, completed, 0, -101)
	return nil
}

func (r *Redis) ActiveIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, keyActiveSessions).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return ids, nil
}

func (r *Redis) Active(ctx context.Context, userID int64) ([]string, error) {
	var ids []string
	for _, gameType := range []models.GameType{models.GameTypeMines, models.GameTypeCrash} {
		id, err := r.client.Get(ctx, fmt.Sprintf(keyActiveSlot, userID, gameType)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read active slot: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Redis) History(ctx context.Context, userID int64, limit int64) ([]*models.GameSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ids, err := r.client.ZRevRange(ctx, fmt.Sprintf(keyUserCompletedGames, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get completed games: %w", err)
	}

	var out []*models.GameSession
	for _, id := range ids {
		session, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

func (r *Redis) save(ctx context.Context, session *models.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, fmt.Sprintf(keySession, session.ID), data, ttlSession).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
