package lockout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login:fail:"

// reserveLua takes one attempt for KEYS[1]. A locked identity is refused
// without touching the counter. Otherwise the counter is incremented; the
// window starts at the first attempt and restarts in full when the threshold
// is reached, so a locked identity stays locked for the whole lockout time.
// Returns {allowed, count, pttl}.
const reserveLua = `
local key = KEYS[1]
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local count = tonumber(redis.call("GET", key) or "0")
if count >= max then
  return {0, count, redis.call("PTTL", key)}
end

count = redis.call("INCR", key)
if count == 1 or count >= max then
  redis.call("PEXPIRE", key, window)
end
return {1, count, redis.call("PTTL", key)}
`

// Status describes one reservation. Locked means the attempt was refused and
// must not reach password verification.
type Status struct {
	Attempts   int
	Locked     bool
	RetryAfter time.Duration
}

// Guard tracks failed logins per identity in Redis.
type Guard struct {
	rdb         *redis.Client
	prefix      string
	maxAttempts int
	window      time.Duration
	script      *redis.Script
}

func NewGuard(rdb *redis.Client, prefix string, maxAttempts int, window time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Guard{
		rdb:         rdb,
		prefix:      prefix,
		maxAttempts: maxAttempts,
		window:      window,
		script:      redis.NewScript(reserveLua),
	}
}

// Reserve counts an attempt for identity before its credentials are checked.
// Concurrent callers are serialized by Redis, so at most maxAttempts attempts
// per window are ever let through. A successful login should call Reset.
func (g *Guard) Reserve(ctx context.Context, identity string) (Status, error) {
	res, err := g.script.Run(ctx, g.rdb, []string{g.key(identity)}, g.maxAttempts, g.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Status{}, fmt.Errorf("lockout reserve attempt: %w", err)
	}
	if len(res) != 3 {
		return Status{}, fmt.Errorf("lockout reserve attempt: unexpected reply %v", res)
	}

	st := Status{Attempts: int(res[1])}
	if res[0] == 0 {
		st.Locked = true
		st.RetryAfter = time.Duration(res[2]) * time.Millisecond
		if st.RetryAfter <= 0 {
			st.RetryAfter = g.window
		}
	}
	return st, nil
}

// Reset clears the counter, typically after a successful login.
func (g *Guard) Reset(ctx context.Context, identity string) error {
	if err := g.rdb.Del(ctx, g.key(identity)).Err(); err != nil {
		return fmt.Errorf("lockout reset: %w", err)
	}
	return nil
}

func (g *Guard) MaxAttempts() int {
	return g.maxAttempts
}

func (g *Guard) key(identity string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(identity))))
	return g.prefix + keyPrefix + hex.EncodeToString(sum[:])
}
