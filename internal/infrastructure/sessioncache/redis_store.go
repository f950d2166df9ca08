// Package sessioncache keeps saved queue parameters in Redis.
package sessioncache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ReviewQueue/internal/ports"
)

// DefaultPrefix namespaces saved request keys.
const DefaultPrefix = "reviewqueue:request:"

const (
	fieldKind   = "kind"
	fieldParams = "params"
)

var errRequestExists = errors.New("saved request exists")

// RedisStore implements ports.ParameterStore with one hash per saved request.
// Keys carry no expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	newID  func() string
}

var _ ports.ParameterStore = (*RedisStore)(nil)

// NewRedisStore wires a client; an empty prefix falls back to DefaultPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix, newID: uuid.NewString}
}

// Dial creates a client for addr and checks it responds.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// SaveParameters stores the parameters under a new random id. Both fields are
// written in one MULTI block, guarded by WATCH on the key.
func (s *RedisStore) SaveParameters(ctx context.Context, kind string, params []byte) (string, error) {
	id := s.newID()
	key := s.key(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errRequestExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldKind, kind, fieldParams, params)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, errRequestExists) {
		return "", fmt.Errorf("saved request %s already exists", id)
	}
	if err != nil {
		return "", fmt.Errorf("save request: %w", err)
	}
	return id, nil
}

// LoadParameters returns the kind and parameters stored under id.
func (s *RedisStore) LoadParameters(ctx context.Context, id string) (string, []byte, error) {
	values, err := s.client.HMGet(ctx, s.key(id), fieldKind, fieldParams).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, fmt.Errorf("saved request %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("load saved request: %w", err)
	}

	kind, kindOK := values[0].(string)
	params, paramsOK := values[1].(string)
	if !kindOK || !paramsOK {
		return "", nil, fmt.Errorf("saved request %s: %w", id, ports.ErrNotFound)
	}
	return kind, []byte(params), nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
