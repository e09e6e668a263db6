package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"bitwise74/phone-verify/internal/model"

	"github.com/redis/go-redis/v9"
)

// insertScript writes a record and indexes its version only if the highest
// indexed version equals the expected one (0 for a phone without history).
//
// KEYS[1] record key, KEYS[2] version index
// ARGV[1] encoded record, ARGV[2] new version, ARGV[3] expected current version
var insertScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
local top = redis.call("ZREVRANGE", KEYS[2], 0, 0)
local current = 0
if #top > 0 then
	current = tonumber(top[1])
end
if current ~= tonumber(ARGV[3]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[2])
return 1
`)

// Redis stores each version as a JSON string and keeps a sorted set of
// versions per phone. Both are written by one Lua script so the check and
// the insert are atomic.
type Redis struct {
	rdb    *redis.Client
	prefix string
	clock  Clock
}

func NewRedis(rdb *redis.Client, clock Clock) *Redis {
	return &Redis{rdb: rdb, prefix: "verification:", clock: clock}
}

func (r *Redis) recordKey(phone string, version int64) string {
	return r.prefix + phone + ":" + strconv.FormatInt(version, 10)
}

func (r *Redis) indexKey(phone string) string {
	return r.prefix + phone + ":versions"
}

func (r *Redis) GetLatestVersion(ctx context.Context, phone string) (int64, bool, error) {
	top, err := r.rdb.ZRevRange(ctx, r.indexKey(phone), 0, 0).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read version index, %w", err)
	}

	if len(top) == 0 {
		return 0, false, nil
	}

	version, err := strconv.ParseInt(top[0], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt version index entry %q, %w", top[0], err)
	}

	return version, true, nil
}

func (r *Redis) InsertInitialVersion(ctx context.Context, phone string) (*model.Verification, error) {
	return r.insert(ctx, phone, 0)
}

func (r *Redis) InsertNextVersion(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error) {
	return r.insert(ctx, phone, expectedCurrent)
}

func (r *Redis) insert(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error) {
	v, err := model.NewVerification(phone, expectedCurrent+1, r.clock.now())
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification, %w", err)
	}

	applied, err := insertScript.Run(ctx, r.rdb,
		[]string{r.recordKey(phone, v.Version), r.indexKey(phone)},
		string(b), v.Version, expectedCurrent,
	).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to insert version %d, %w", v.Version, err)
	}

	if applied == 0 {
		return nil, ErrConditionFailed
	}

	return v, nil
}

func (r *Redis) GetVerification(ctx context.Context, phone string, version int64) (*model.Verification, error) {
	b, err := r.rdb.Get(ctx, r.recordKey(phone, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read verification, %w", err)
	}

	var v model.Verification
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to decode verification, %w", err)
	}

	return &v, nil
}

func (r *Redis) GetRecentVerifications(ctx context.Context, phone string, limit int) ([]model.Verification, error) {
	if limit <= 0 {
		return nil, nil
	}

	versions, err := r.rdb.ZRevRange(ctx, r.indexKey(phone), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read version index, %w", err)
	}

	if len(versions) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(versions))
	for _, v := range versions {
		keys = append(keys, r.prefix+phone+":"+v)
	}

	raw, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read verifications, %w", err)
	}

	out := make([]model.Verification, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			// Indexed but missing record, skip it
			continue
		}

		var v model.Verification
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("failed to decode verification, %w", err)
		}

		out = append(out, v)
	}

	return out, nil
}
