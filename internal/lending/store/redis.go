// internal/lending/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lending-workers/internal/models"
)

const (
	defaultKeyPrefix  = "lending"
	maxUpdateAttempts = 10
	updateBackoff     = 5 * time.Millisecond
)

var ErrUpdateConflict = errors.New("STORE_UPDATE_CONFLICT")

// RedisStore keeps each submission and each lender record as its own JSON
// string. A per-application set lists the lender ids with records and a
// global set tracks known application ids.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore builds a store. ttl of zero keeps keys forever.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) submissionKey(applicationID string) string {
	return s.prefix + ":submission:" + applicationID
}

func (s *RedisStore) recordKey(applicationID, lenderID string) string {
	return s.prefix + ":record:" + applicationID + ":" + lenderID
}

func (s *RedisStore) lendersKey(applicationID string) string {
	return s.prefix + ":lenders:" + applicationID
}

func (s *RedisStore) applicationsKey() string {
	return s.prefix + ":applications"
}

func (s *RedisStore) SaveSubmission(ctx context.Context, sub *models.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	lenders, err := s.client.SMembers(ctx, s.lendersKey(sub.ApplicationID)).Result()
	if err != nil {
		return fmt.Errorf("list lenders of %s: %w", sub.ApplicationID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.submissionKey(sub.ApplicationID), data, s.ttl)
		for _, lenderID := range lenders {
			pipe.Del(ctx, s.recordKey(sub.ApplicationID, lenderID))
		}
		pipe.Del(ctx, s.lendersKey(sub.ApplicationID))
		pipe.SAdd(ctx, s.applicationsKey(), sub.ApplicationID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save submission %s: %w", sub.ApplicationID, err)
	}
	return nil
}

func (s *RedisStore) GetSubmission(ctx context.Context, applicationID string) (*models.Submission, error) {
	data, err := s.client.Get(ctx, s.submissionKey(applicationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: submission %s", ErrNotFound, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", applicationID, err)
	}

	var sub models.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("decode submission %s: %w", applicationID, err)
	}
	return &sub, nil
}

func (s *RedisStore) PutRecord(ctx context.Context, rec *models.LenderApplication) error {
	stored := rec.Clone()
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	lendersKey := s.lendersKey(rec.ApplicationID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(rec.ApplicationID, rec.LenderID), data, s.ttl)
		pipe.SAdd(ctx, lendersKey, rec.LenderID)
		if s.ttl > 0 {
			pipe.Expire(ctx, lendersKey, s.ttl)
		}
		pipe.SAdd(ctx, s.applicationsKey(), rec.ApplicationID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put record %s: %w", stored.ID, err)
	}
	return nil
}

// UpdateRecord runs fn inside a WATCH/MULTI transaction on the single record
// key, so only writers of the same (application, lender) pair conflict. It
// retries with a short backoff when another writer got there first.
func (s *RedisStore) UpdateRecord(ctx context.Context, applicationID, lenderID string, fn UpdateFunc) (*models.LenderApplication, error) {
	key := s.recordKey(applicationID, lenderID)
	var result *models.LenderApplication

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: record %s", ErrNotFound, models.LenderApplicationID(applicationID, lenderID))
		}
		if err != nil {
			return err
		}

		var rec models.LenderApplication
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if err := fn(&rec); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			result = &rec
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("update record %s: %w", models.LenderApplicationID(applicationID, lenderID), ctx.Err())
		case <-time.After(time.Duration(attempt+1) * updateBackoff):
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrUpdateConflict, models.LenderApplicationID(applicationID, lenderID), maxUpdateAttempts)
}

func (s *RedisStore) GetRecord(ctx context.Context, applicationID, lenderID string) (*models.LenderApplication, error) {
	data, err := s.client.Get(ctx, s.recordKey(applicationID, lenderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, models.LenderApplicationID(applicationID, lenderID))
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	var rec models.LenderApplication
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) ListRecords(ctx context.Context, applicationID string) ([]models.LenderApplication, error) {
	lenders, err := s.client.SMembers(ctx, s.lendersKey(applicationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", applicationID, err)
	}
	out := make([]models.LenderApplication, 0, len(lenders))
	if len(lenders) == 0 {
		return out, nil
	}

	keys := make([]string, len(lenders))
	for i, lenderID := range lenders {
		keys[i] = s.recordKey(applicationID, lenderID)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", applicationID, err)
	}

	for i, v := range values {
		data, ok := v.(string)
		if !ok {
			// expired between SMEMBERS and MGET
			continue
		}
		var rec models.LenderApplication
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", lenders[i], err)
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (s *RedisStore) ListAllRecords(ctx context.Context) ([]models.LenderApplication, error) {
	ids, err := s.client.SMembers(ctx, s.applicationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	var out []models.LenderApplication
	for _, id := range ids {
		recs, err := s.ListRecords(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	sortRecords(out)
	return out, nil
}
