package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/amorempixels/amor_server/internal/wizard"
)

const (
	draftKeyPrefix  = "draft:"
	submitKeyPrefix = "submit:"

	maxUpdateRetries = 10
)

var (
	ErrDraftConflict = errors.New("draft changed concurrently")
	ErrDraftLocked   = errors.New("draft is locked")
)

// releaseLock deletes the lock only while it still holds the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DraftRepository keeps wizard drafts in Redis as JSON with a sliding TTL.
type DraftRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftRepository(rdb *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{rdb: rdb, ttl: ttl}
}

func draftKey(id string) string {
	return draftKeyPrefix + id
}

func (r *DraftRepository) TTL() time.Duration {
	return r.ttl
}

// Get returns wizard.ErrDraftNotFound once the draft has expired or never existed.
func (r *DraftRepository) Get(ctx context.Context, id string) (*wizard.Draft, error) {
	data, err := r.rdb.Get(ctx, draftKey(id)).Bytes()
	if err == redis.Nil {
		return nil, wizard.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	return decodeDraft(data)
}

func decodeDraft(data []byte) (*wizard.Draft, error) {
	var d wizard.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

// Update loads the draft, applies fn and writes it back in one optimistic
// transaction. fn runs again on a fresh copy whenever another writer got in
// between, so it must only touch the draft it is given.
func (r *DraftRepository) Update(ctx context.Context, id string, fn func(*wizard.Draft) error) (*wizard.Draft, error) {
	key := draftKey(id)
	var out *wizard.Draft

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return wizard.ErrDraftNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load draft: %w", err)
		}
		d, err := decodeDraft(data)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		updated, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode draft: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, r.ttl)
			return nil
		})
		if err == nil {
			out = d
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrDraftConflict
}

// Save writes the draft and restarts its TTL.
func (r *DraftRepository) Save(ctx context.Context, d *wizard.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := r.rdb.Set(ctx, draftKey(d.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) Touch(ctx context.Context, id string) error {
	ok, err := r.rdb.Expire(ctx, draftKey(id), r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh draft: %w", err)
	}
	if !ok {
		return wizard.ErrDraftNotFound
	}
	return nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, draftKey(id)).Err()
}

// LockSubmit takes the per-draft submit lock for at most ttl. The returned
// func releases it and is a no-op once the lock expired or was taken over.
func (r *DraftRepository) LockSubmit(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	key := submitKeyPrefix + id
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lock draft: %w", err)
	}
	if !ok {
		return nil, ErrDraftLocked
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseLock.Run(ctx, r.rdb, []string{key}, token)
	}, nil
}
