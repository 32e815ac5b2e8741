package counter

import (
	"time"

	"github.com/gomodule/redigo/redis"

	predis "github.com/ayoomidimeji/lariyu/platform/redis"
)

type redisService struct {
	pool   *redis.Pool
	prefix string
}

// RedisService returns a Redis backed Service implementation. State is
// shared across process instances and survives restarts, the window TTL is
// enforced by Redis itself.
func RedisService(pool *redis.Pool, prefix string) Service {
	return &redisService{
		pool:   pool,
		prefix: prefix,
	}
}

func (s *redisService) Incr(key string, window time.Duration) (int, time.Time, error) {
	var (
		con = s.pool.Get()
		now = time.Now()
	)
	defer con.Close()

	count, err := redis.Int(con.Do(predis.CommandIncr, s.prefix+key))
	if err != nil {
		return 0, now, wrapError(ErrStoreUnavailable, "incr failed: %s", err)
	}

	ttl, err := redis.Int64(con.Do(predis.CommandPTTL, s.prefix+key))
	if err != nil {
		return 0, now, wrapError(ErrStoreUnavailable, "ttl failed: %s", err)
	}

	// PTTL reports -2 for a missing key and -1 for a key without expiry.
	// The latter covers both the freshly created window and the stuck key
	// a faulty store can leave behind, either way a new window starts now.
	if ttl < 0 {
		_, err := con.Do(predis.CommandPExpire, s.prefix+key, int64(window/time.Millisecond))
		if err != nil {
			return 0, now, wrapError(ErrStoreUnavailable, "expire failed: %s", err)
		}

		return count, now.Add(window), nil
	}

	return count, now.Add(time.Duration(ttl) * time.Millisecond), nil
}

func (s *redisService) Peek(key string) (int, time.Time, error) {
	var (
		con = s.pool.Get()
		now = time.Now()
	)
	defer con.Close()

	res, err := con.Do(predis.CommandGet, s.prefix+key)
	if err != nil {
		return 0, now, wrapError(ErrStoreUnavailable, "get failed: %s", err)
	}

	if res == nil {
		return 0, time.Time{}, nil
	}

	count, err := redis.Int(res, nil)
	if err != nil {
		return 0, now, wrapError(ErrStoreUnavailable, "scan failed: %s", err)
	}

	ttl, err := redis.Int64(con.Do(predis.CommandPTTL, s.prefix+key))
	if err != nil {
		return 0, now, wrapError(ErrStoreUnavailable, "ttl failed: %s", err)
	}

	if ttl < 0 {
		return count, time.Time{}, nil
	}

	return count, now.Add(time.Duration(ttl) * time.Millisecond), nil
}
