package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo keeps the per-user conversation record in Redis.
type StateRepo struct {
	client RedisClient
	ttl    time.Duration
}

// NewStateRepo stores records for ttl; abandoned conversations expire.
func NewStateRepo(client RedisClient, ttl time.Duration) *StateRepo {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &StateRepo{client: client, ttl: ttl}
}

func stateKey(user model.UserID) string {
	return "conv_state:" + user.String()
}

func (s *StateRepo) Get(ctx context.Context, user model.UserID) (*model.Record, error) {
	data, err := s.client.Get(ctx, stateKey(user))
	if errors.Is(err, Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get state: %v", domain.ErrTransient, err)
	}

	var rec model.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		// Older bots stored the bare state name.
		raw := strings.Trim(strings.TrimSpace(data), `"`)
		return &model.Record{State: model.State(strings.ToLower(raw))}, nil
	}
	return &rec, nil
}

func (s *StateRepo) Set(ctx context.Context, user model.UserID, rec *model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, stateKey(user), data, s.ttl); err != nil {
		return fmt.Errorf("%w: set state: %v", domain.ErrTransient, err)
	}
	return nil
}

func (s *StateRepo) Clear(ctx context.Context, user model.UserID) error {
	return s.client.Del(ctx, stateKey(user))
}
