package otp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "otp:"

// verifyScript checks and consumes an entry in one server-side step. Only
// code digests reach Redis, so the string comparison in Lua leaks nothing
// about the code itself.
// Result codes: 0 ok, 1 not found, 2 expired, 3 mismatch, 4 consumed, 5 attempts exceeded.
var verifyScript = redis.NewScript(`
local e = redis.call('HMGET', KEYS[1], 'code_digest', 'expires_at', 'consumed', 'attempts')
if not e[1] then
	return 1
end
if tonumber(ARGV[2]) > tonumber(e[2]) then
	redis.call('DEL', KEYS[1])
	return 2
end
if e[3] == '1' then
	return 4
end
local max = tonumber(ARGV[3])
if max > 0 and tonumber(e[4] or '0') >= max then
	return 5
end
if e[1] ~= ARGV[1] then
	redis.call('HINCRBY', KEYS[1], 'attempts', 1)
	return 3
end
redis.call('HSET', KEYS[1], 'consumed', '1')
return 0
`)

// RedisStore keeps entries in Redis so several service instances share
// one passcode registry. Keys outlive their expiry by one TTL so late
// replays still report ErrExpired or ErrAlreadyConsumed.
type RedisStore struct {
	client redis.UniversalClient
	opts   Options
	prefix string
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, opts Options) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults(), prefix: defaultKeyPrefix}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// codeDigest binds a code to its key so equal codes under different keys
// store different digests.
func codeDigest(key, code string) string {
	sum := sha256.Sum256([]byte(key + "\x00" + code))
	return hex.EncodeToString(sum[:])
}

// Issue generates a fresh code for key, replacing any previous entry.
func (s *RedisStore) Issue(ctx context.Context, key string) (Entry, error) {
	code, err := s.opts.Generate(s.opts.Length)
	if err != nil {
		return Entry{}, err
	}
	now := s.opts.Now()
	entry := Entry{
		Key:       key,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.TTL),
	}

	rk := s.redisKey(key)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rk)
		pipe.HSet(ctx, rk,
			"code_digest", codeDigest(key, entry.Code),
			"created_at", entry.CreatedAt.UnixMilli(),
			"expires_at", entry.ExpiresAt.UnixMilli(),
			"consumed", "0",
			"attempts", 0,
		)
		pipe.PExpireAt(ctx, rk, entry.ExpiresAt.Add(s.opts.TTL))
		return nil
	})
	if err != nil {
		return Entry{}, fmt.Errorf("otp: store code: %w", err)
	}
	return entry, nil
}

// Verify checks code against the entry for key and consumes it on a match.
func (s *RedisStore) Verify(ctx context.Context, key, code string) error {
	res, err := verifyScript.Run(ctx, s.client,
		[]string{s.redisKey(key)},
		codeDigest(key, code),
		s.opts.Now().UnixMilli(),
		s.opts.MaxAttempts,
	).Int()
	if err != nil {
		return fmt.Errorf("otp: verify code: %w", err)
	}
	switch res {
	case 0:
		return nil
	case 1:
		return ErrNotFound
	case 2:
		return ErrExpired
	case 3:
		return ErrMismatch
	case 4:
		return ErrAlreadyConsumed
	case 5:
		return ErrAttemptsExceeded
	default:
		return fmt.Errorf("otp: unexpected verify result %d", res)
	}
}

// Lookup returns the stored entry for key, mainly for diagnostics. Only a
// digest of the code is stored, so the returned Code is always empty.
func (s *RedisStore) Lookup(ctx context.Context, key string) (Entry, error) {
	vals, err := s.client.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("otp: lookup: %w", err)
	}
	if len(vals) == 0 {
		return Entry{}, ErrNotFound
	}
	created, _ := strconv.ParseInt(vals["created_at"], 10, 64)
	expires, _ := strconv.ParseInt(vals["expires_at"], 10, 64)
	attempts, _ := strconv.Atoi(vals["attempts"])
	return Entry{
		Key:       key,
		CreatedAt: time.UnixMilli(created),
		ExpiresAt: time.UnixMilli(expires),
		Consumed:  vals["consumed"] == "1",
		Attempts:  attempts,
	}, nil
}
