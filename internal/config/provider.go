package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"wager-engine-backend/internal/models"
)

// ErrConfigUnavailable fails a bet closed: the engine never falls back to
// defaults for a money-moving decision when the provider cannot answer.
var ErrConfigUnavailable = errors.New("game config unavailable")

// Provider supplies per-game-type bounds. Callers re-read on every bet; a
// config update is visible on the next wager, never mid-session.
type Provider interface {
	GetConfig(ctx context.Context, gameType models.GameType) (models.GameConfig, error)
}

// Defaults mirror the launch configuration: 1 cent to $100 stakes, 1% house
// edge across the board.
func Defaults() map[models.GameType]models.GameConfig {
	return map[models.GameType]models.GameConfig{
		models.GameTypeDice: {
			MinBet:        1,
			MaxBet:        10000,
			HouseEdge:     0.01,
			MaxMultiplier: 99.0,
		},
		models.GameTypeMines: {
			MinBet:           1,
			MaxBet:           10000,
			HouseEdge:        0.01,
			GridSize:         25,
			MaxMines:         24,
			MaxSessionAgeSec: 600,
		},
		models.GameTypeCrash: {
			MinBet:           1,
			MaxBet:           10000,
			HouseEdge:        0.01,
			MaxMultiplier:    1000.0,
			GrowthRate:       0.1,
			MaxSessionAgeSec: 600,
		},
	}
}

// Static serves a fixed config set. Used in tests and as the provider when
// no config backend is wired.
type Static struct {
	configs map[models.GameType]models.GameConfig
}

func NewStatic(configs map[models.GameType]models.GameConfig) *Static {
	return &Static{configs: configs}
}

func (s *Static) GetConfig(ctx context.Context, gameType models.GameType) (models.GameConfig, error) {
	cfg, ok := s.configs[gameType]
	if !ok {
		return models.GameConfig{}, fmt.Errorf("%w: no config for %s", ErrConfigUnavailable, gameType)
	}
	return cfg, nil
}

const keyGameConfig = "config:game:%s"

// RedisProvider reads game configs from Redis on every call, so an admin
// update lands on the very next bet.
type RedisProvider struct {
	client *redis.Client
}

func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

// Seed writes the default configs without overwriting ones already present.
func (p *RedisProvider) Seed(ctx context.Context) error {
	for gameType, cfg := range Defaults() {
		data, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal %s config: %w", gameType, err)
		}
		if err := p.client.SetNX(ctx, fmt.Sprintf(keyGameConfig, gameType), data, 0).Err(); err != nil {
			return fmt.Errorf("failed to seed %s config: %w", gameType, err)
		}
	}
	return nil
}

func (p *RedisProvider) GetConfig(ctx context.Context, gameType models.GameType) (models.GameConfig, error) {
	data, err := p.client.Get(ctx, fmt.Sprintf(keyGameConfig, gameType)).Result()
	if err != nil {
		return models.GameConfig{}, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	var cfg models.GameConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return models.GameConfig{}, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}
	return cfg, nil
}

// SetConfig overwrites one game's bounds.
func (p *RedisProvider) SetConfig(ctx context.Context, gameType models.GameType, cfg models.GameConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := p.client.Set(ctx, fmt.Sprintf(keyGameConfig, gameType), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set config: %w", err)
	}
	return nil
}
