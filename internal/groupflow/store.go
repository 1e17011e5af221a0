package groupflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"travel-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrFlowNotFound = errors.New("no group flow for user")
	// ErrCorruptFlowState is returned when a stored value cannot be decoded.
	ErrCorruptFlowState = errors.New("stored group flow is unreadable")
)

// FlowStore holds one flow per user. Operations on a key are atomic; nothing
// spans keys.
type FlowStore interface {
	Get(ctx context.Context, userID string) (*models.GroupFlowState, error)
	Save(ctx context.Context, state *models.GroupFlowState) error
	Delete(ctx context.Context, userID string) error
}

const flowKeyPrefix = "travel:groupflow:"

func FlowKey(userID string) string {
	return flowKeyPrefix + userID
}

type RedisFlowStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisFlowStore(rdb redis.Cmdable, ttl time.Duration) *RedisFlowStore {
	return &RedisFlowStore{rdb: rdb, ttl: ttl}
}

func (s *RedisFlowStore) Get(ctx context.Context, userID string) (*models.GroupFlowState, error) {
	data, err := s.rdb.Get(ctx, FlowKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flow %s: %w", userID, err)
	}

	var st models.GroupFlowState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFlowState, err)
	}
	return &st, nil
}

func (s *RedisFlowStore) Save(ctx context.Context, state *models.GroupFlowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode flow %s: %w", state.UserID, err)
	}
	if err := s.rdb.Set(ctx, FlowKey(state.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save flow %s: %w", state.UserID, err)
	}
	return nil
}

func (s *RedisFlowStore) Delete(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, FlowKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete flow %s: %w", userID, err)
	}
	return nil
}

// MemoryFlowStore keeps JSON copies so callers never share state with the store.
type MemoryFlowStore struct {
	mu    sync.Mutex
	flows map[string][]byte
}

func NewMemoryFlowStore() *MemoryFlowStore {
	return &MemoryFlowStore{flows: make(map[string][]byte)}
}

func (s *MemoryFlowStore) Get(_ context.Context, userID string) (*models.GroupFlowState, error) {
	s.mu.Lock()
	data, ok := s.flows[userID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrFlowNotFound
	}
	var st models.GroupFlowState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFlowState, err)
	}
	return &st, nil
}

func (s *MemoryFlowStore) Save(_ context.Context, state *models.GroupFlowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.flows[state.UserID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryFlowStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.flows, userID)
	s.mu.Unlock()
	return nil
}
