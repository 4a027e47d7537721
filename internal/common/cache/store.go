// Package cache is the workspace-scoped Redis cache shared by the workers.
// Key names match the ones the dashboard kept in browser storage.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	KeyCompetitors     = "discovered_competitors"
	KeyAnalysis        = "marketing_analysis_results"
	KeyBusinessSummary = "business_summary"
	KeyBrandIdentity   = "brand_identity_data"
	KeyViability       = "viability_output"
	KeyPosts           = "social_posts"
)

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

// NewStore builds a store over an existing client. ttl 0 keeps entries until overwritten.
func NewStore(client *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *Store {
	if prefix == "" {
		prefix = "mktops:"
	}
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

func (s *Store) key(workspaceID, name string) string {
	if workspaceID == "" {
		workspaceID = "default"
	}
	return fmt.Sprintf("%s%s:%s", s.prefix, workspaceID, name)
}

// GetJSON loads key into dst. found is false on a miss.
func (s *Store) GetJSON(ctx context.Context, workspaceID, key string, dst interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.key(workspaceID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperations.WithLabelValues("get", key, "miss").Inc()
			return false, nil
		}
		metrics.CacheOperations.WithLabelValues("get", key, "error").Inc()
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CacheOperations.WithLabelValues("get", key, "corrupt").Inc()
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	metrics.CacheOperations.WithLabelValues("get", key, "hit").Inc()
	return true, nil
}

// SetJSON stores v under key with the store ttl.
func (s *Store) SetJSON(ctx context.Context, workspaceID, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(workspaceID, key), data, s.ttl).Err(); err != nil {
		metrics.CacheOperations.WithLabelValues("set", key, "error").Inc()
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	metrics.CacheOperations.WithLabelValues("set", key, "ok").Inc()
	return nil
}

// ErrUpdateConflict is returned when an update keeps losing to concurrent writers.
var ErrUpdateConflict = errors.New("cache update conflict")

const maxUpdateAttempts = 50

// update reads key, hands the raw value to fn and writes fn's result in a
// WATCH/MULTI transaction. A concurrent write to key reruns fn on the fresh
// value. A read error or an fn error leaves the key untouched.
func (s *Store) update(ctx context.Context, workspaceID, key string, fn func(data []byte, found bool) (interface{}, error)) error {
	k := s.key(workspaceID, key)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		found := err == nil
		if err != nil && !errors.Is(err, redis.Nil) {
			metrics.CacheOperations.WithLabelValues("update", key, "error").Inc()
			return fmt.Errorf("cache get %s: %w", key, err)
		}

		v, err := fn(data, found)
		if err != nil {
			return err
		}
		enc, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("cache encode %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, enc, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			metrics.CacheOperations.WithLabelValues("update", key, "ok").Inc()
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		metrics.CacheOperations.WithLabelValues("update", key, "conflict").Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: %s", ErrUpdateConflict, key)
}

func (s *Store) Delete(ctx context.Context, workspaceID, key string) error {
	if err := s.client.Del(ctx, s.key(workspaceID, key)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// load is GetJSON with errors logged and reported as a miss.
func (s *Store) load(ctx context.Context, workspaceID, key string, dst interface{}) bool {
	found, err := s.GetJSON(ctx, workspaceID, key, dst)
	if err != nil {
		s.logger.Warn("cache read failed, treating as miss", map[string]interface{}{
			"workspaceId": workspaceID,
			"key":         key,
			"error":       err.Error(),
		})
		return false
	}
	return found
}
