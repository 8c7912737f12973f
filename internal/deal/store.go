package deal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates no deal is stored for the session.
var ErrNotFound = errors.New("deal: not found")

// ErrVersionConflict indicates the stored deal changed since it was read.
var ErrVersionConflict = errors.New("deal: version conflict")

// saveScript writes the deal only when the stored version still matches the
// version the caller read, so two concurrent updates can never interleave
// mid-recomputation. Returns the new version, or -1 on mismatch.
const saveScript = `local ver = redis.call("GET", KEYS[2])
if not ver then ver = "0" end
if ver ~= ARGV[2] then
  return -1
end
redis.call("SET", KEYS[1], ARGV[1])
local next = redis.call("INCR", KEYS[2])
if tonumber(ARGV[3]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
  redis.call("PEXPIRE", KEYS[2], ARGV[3])
end
return next`

// Store persists deals in Redis keyed by session ID, with an adjacent
// version counter used for compare-and-swap saves.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func dealKey(id string) string    { return "deal:" + id }
func versionKey(id string) string { return "deal:" + id + ":ver" }

// Get loads the deal and its version for a session.
func (s *Store) Get(ctx context.Context, id string) (Deal, int64, error) {
	if s.R == nil {
		return Deal{}, 0, errors.New("deal: redis client not configured")
	}
	pipe := s.R.Pipeline()
	dataCmd := pipe.Get(ctx, dealKey(id))
	verCmd := pipe.Get(ctx, versionKey(id))
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return Deal{}, 0, fmt.Errorf("deal: load %s: %w", id, err)
	}
	raw, err := dataCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return Deal{}, 0, ErrNotFound
	}
	if err != nil {
		return Deal{}, 0, fmt.Errorf("deal: load %s: %w", id, err)
	}
	var d Deal
	if err := json.Unmarshal(raw, &d); err != nil {
		return Deal{}, 0, fmt.Errorf("deal: decode %s: %w", id, err)
	}
	version, err := verCmd.Int64()
	if errors.Is(err, redis.Nil) {
		version = 0
	} else if err != nil {
		return Deal{}, 0, fmt.Errorf("deal: load version %s: %w", id, err)
	}
	return d, version, nil
}

// Save persists the deal if the stored version still equals expected and
// returns the new version. A fresh session saves with expected 0.
func (s *Store) Save(ctx context.Context, id string, d Deal, expected int64) (int64, error) {
	if s.R == nil {
		return 0, errors.New("deal: redis client not configured")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("deal: encode %s: %w", id, err)
	}
	ttlMillis := s.TTL.Milliseconds()
	result, err := s.R.Eval(ctx, saveScript,
		[]string{dealKey(id), versionKey(id)},
		raw, expected, ttlMillis,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("deal: save %s: %w", id, err)
	}
	if result < 0 {
		return 0, ErrVersionConflict
	}
	return result, nil
}

// Delete removes the deal and its version counter.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.R == nil {
		return errors.New("deal: redis client not configured")
	}
	if err := s.R.Del(ctx, dealKey(id), versionKey(id)).Err(); err != nil {
		return fmt.Errorf("deal: delete %s: %w", id, err)
	}
	return nil
}
