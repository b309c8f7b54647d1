package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 10 * time.Minute
	EmailResendInterval = time.Minute
	EmailCodePrefix     = "email:code:verify"
	EmailThrottlePrefix = "email:code:throttle"
)

// consumeScript deletes the code only when it matches, so a code is usable once.
var consumeScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return -1
end
if val ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
return 1
`)

type CodeStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCodeStore(rdb *redis.Client) *CodeStore {
	return &CodeStore{rdb: rdb, ttl: DefaultEmailCodeTTL}
}

func (s *CodeStore) TTL() time.Duration { return s.ttl }

// Reserve reports false when a code was sent to email less than a minute ago.
func (s *CodeStore) Reserve(ctx context.Context, email string) (bool, error) {
	key := fmt.Sprintf("%s:%s", EmailThrottlePrefix, email)
	return s.rdb.SetNX(ctx, key, 1, EmailResendInterval).Result()
}

func (s *CodeStore) Save(ctx context.Context, email, code string) error {
	key := fmt.Sprintf("%s:%s", EmailCodePrefix, email)
	return s.rdb.Set(ctx, key, code, s.ttl).Err()
}

// Consume returns found=false when no code is pending, ok=false on mismatch.
func (s *CodeStore) Consume(ctx context.Context, email, code string) (found, ok bool, err error) {
	key := fmt.Sprintf("%s:%s", EmailCodePrefix, email)
	res, err := consumeScript.Run(ctx, s.rdb, []string{key}, code).Int()
	if err != nil {
		return false, false, err
	}
	switch res {
	case -1:
		return false, false, nil
	case 0:
		return true, false, nil
	default:
		return true, true, nil
	}
}
