package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dor/internal/repository"
	"dor/pkg/platform/sentinel"
)

const (
	objectKeyPrefix = "dor:object:"
	sourceKeyPrefix = "dor:source:"
)

// RedisStore keeps each object under dor:object:<id> and claims source IDs
// under dor:source:<source id>. Saves run in a WATCH transaction over both
// keys.
type RedisStore struct {
	client  *redis.Client
	metrics *Metrics
}

type RedisOption func(*RedisStore)

func WithRedisMetrics(m *Metrics) RedisOption {
	return func(s *RedisStore) {
		s.metrics = m
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Find(ctx context.Context, id string) (repository.Object, error) {
	start := time.Now()
	data, err := s.client.Get(ctx, objectKeyPrefix+id).Bytes()
	s.metrics.ObserveOperation(backendRedis, "find", start)
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("object %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find object %s: %w: %w", id, sentinel.ErrUnavailable, err)
	}
	return repository.Decode(data)
}

func (s *RedisStore) Save(ctx context.Context, obj repository.Object) error {
	st, err := stage(obj)
	if err != nil {
		return err
	}
	key := objectKeyPrefix + st.id
	keys := []string{key}
	if st.sourceID != "" {
		keys = append(keys, sourceKeyPrefix+st.sourceID)
	}

	start := time.Now()
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, storedSource, err := storedState(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != st.prev {
			return revisionConflict(st.id, st.prev, stored)
		}
		if st.sourceID != "" {
			owner, err := tx.Get(ctx, sourceKeyPrefix+st.sourceID).Result()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			case owner != st.id:
				return &repository.DuplicateSourceIDError{SourceID: st.sourceID, ExistingID: owner}
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, st.data, 0)
			if st.sourceID != "" {
				p.Set(ctx, sourceKeyPrefix+st.sourceID, st.id, 0)
			}
			if storedSource != "" && storedSource != st.sourceID {
				p.Del(ctx, sourceKeyPrefix+storedSource)
			}
			return nil
		})
		return err
	}, keys...)
	s.metrics.ObserveOperation(backendRedis, "save", start)
	if err != nil {
		st.rollback()
		return redisSaveError(st.id, err)
	}
	return nil
}

// storedState returns the revision and source ID of the stored object, zero
// values when there is none.
func storedState(ctx context.Context, tx *redis.Tx, key string) (int64, string, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	current, err := repository.Decode(data)
	if err != nil {
		return 0, "", err
	}
	return current.Core().Revision, current.Core().SourceID, nil
}

func redisSaveError(id string, err error) error {
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("object %s changed during save: %w", id, sentinel.ErrConflict)
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrCorrupt):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("save object %s: %w: %w", id, sentinel.ErrUnavailable, err)
	}
}
