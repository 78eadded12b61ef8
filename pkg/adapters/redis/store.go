package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "tendril:thread:"

// Store implements ports.ThreadStore using Redis.
// Each thread is a JSON value; a sorted set indexes subjects by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for threads.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for threads.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client returns the underlying Redis client, so lockers and sinks can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(subjectID string) string {
	return s.prefix + subjectID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the thread to Redis.
func (s *Store) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	data, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}

	pipe := s.client.Pipeline()

	pipe.Set(ctx, s.key(subjectID), data, s.ttl)

	// Score = Now + TTL. If TTL = 0, Score = +Inf (approx).
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: subjectID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the thread from Redis.
func (s *Store) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	val, err := s.client.Get(ctx, s.key(subjectID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var thread domain.Thread
	if err := json.Unmarshal(val, &thread); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread: %w", err)
	}
	return &thread, nil
}

// Delete removes the thread.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(subjectID))
	pipe.ZRem(ctx, s.indexKey(), subjectID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns subjects with a live thread, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired threads: %w", err)
	}

	subjects, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return subjects, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
