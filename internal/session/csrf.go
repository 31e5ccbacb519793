package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Token purposes used by the HTTP layer.
const (
	PurposeGeneral  = "general"
	PurposeLogin    = "login"
	PurposeRegister = "register"
	PurposeLogout   = "logout"
	PurposeCart     = "cart"
)

const csrfTokenBytes = 32

var ErrInvalidPurpose = errors.New("invalid csrf purpose")

// consumeLua finds an unused, unexpired entry of one purpose whose hash matches
// and marks it used in the same step. Entries are "hash|createdMs|expiresMs|used".
const consumeLua = `
local key = KEYS[1]
local prefix = ARGV[1]
local submitted = ARGV[2]
local now = tonumber(ARGV[3])

local fields = redis.call("HGETALL", key)
for i = 1, #fields, 2 do
  local field = fields[i]
  if string.sub(field, 1, string.len(prefix)) == prefix then
    local hash, created, expires, used = string.match(fields[i + 1], "^([^|]+)|(%d+)|(%d+)|(%d)$")
    if hash == submitted and used == "0" and now <= tonumber(expires) then
      redis.call("HSET", key, field, hash .. "|" .. created .. "|" .. expires .. "|1")
      return 1
    end
  end
end
return 0
`

// Token is a freshly issued CSRF token. Value is only ever handed to the client;
// the registry keeps its SHA-256.
type Token struct {
	ID        string    `json:"-"`
	Purpose   string    `json:"purpose"`
	Value     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenEntry struct {
	hash      string
	createdAt time.Time
	expiresAt time.Time
	used      bool
}

// TokenManager issues and consumes single-use, purpose-scoped CSRF tokens kept in
// the session's registry.
type TokenManager struct {
	store    *Store
	lifetime time.Duration
	consume  *redis.Script
	now      func() time.Time
}

func NewTokenManager(store *Store, lifetime time.Duration) *TokenManager {
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &TokenManager{
		store:    store,
		lifetime: lifetime,
		consume:  redis.NewScript(consumeLua),
		now:      time.Now,
	}
}

func (m *TokenManager) Lifetime() time.Duration { return m.lifetime }

// Generate issues a new token for purpose. Earlier tokens of the same purpose stay valid.
func (m *TokenManager) Generate(ctx context.Context, s *Session, purpose string) (*Token, error) {
	purpose, err := normalizePurpose(purpose)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	now := m.now()
	tok := &Token{
		ID:        uuid.NewString(),
		Purpose:   purpose,
		Value:     base64.RawURLEncoding.EncodeToString(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(m.lifetime),
	}
	entry := tokenEntry{hash: hashToken(tok.Value), createdAt: tok.CreatedAt, expiresAt: tok.ExpiresAt}

	key := m.store.csrfKey(s.id)
	pipe := m.store.rdb.TxPipeline()
	pipe.HSet(ctx, key, purpose+":"+tok.ID, entry.encode())
	pipe.Expire(ctx, key, m.store.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store csrf token: %w", err)
	}
	return tok, nil
}

// Validate consumes a token. It returns true at most once per issued token, and
// never for an expired one.
func (m *TokenManager) Validate(ctx context.Context, s *Session, purpose, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	purpose, err := normalizePurpose(purpose)
	if err != nil {
		return false, err
	}

	ok, err := m.consume.Run(ctx, m.store.rdb,
		[]string{m.store.csrfKey(s.id)},
		purpose+":", hashToken(value), m.now().UnixMilli(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("consume csrf token: %w", err)
	}
	return ok == 1, nil
}

// Purge drops expired entries and returns how many were removed.
func (m *TokenManager) Purge(ctx context.Context, s *Session) (int, error) {
	key := m.store.csrfKey(s.id)
	raw, err := m.store.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("load csrf registry: %w", err)
	}

	now := m.now()
	var expired []string
	for field, value := range raw {
		entry, err := decodeEntry(value)
		if err != nil || entry.expiresAt.Before(now) {
			expired = append(expired, field)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := m.store.rdb.HDel(ctx, key, expired...).Err(); err != nil {
		return 0, fmt.Errorf("purge csrf registry: %w", err)
	}
	return len(expired), nil
}

// Outstanding returns the number of stored entries for purpose, used or not.
func (m *TokenManager) Outstanding(ctx context.Context, s *Session, purpose string) (int, error) {
	raw, err := m.store.rdb.HKeys(ctx, m.store.csrfKey(s.id)).Result()
	if err != nil {
		return 0, fmt.Errorf("load csrf registry: %w", err)
	}
	n := 0
	for _, field := range raw {
		if strings.HasPrefix(field, purpose+":") {
			n++
		}
	}
	return n, nil
}

func normalizePurpose(purpose string) (string, error) {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return PurposeGeneral, nil
	}
	if strings.ContainsAny(purpose, ":|") || len(purpose) > 64 {
		return "", ErrInvalidPurpose
	}
	return purpose, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (e tokenEntry) encode() string {
	used := "0"
	if e.used {
		used = "1"
	}
	return e.hash + "|" +
		strconv.FormatInt(e.createdAt.UnixMilli(), 10) + "|" +
		strconv.FormatInt(e.expiresAt.UnixMilli(), 10) + "|" + used
}

func decodeEntry(raw string) (tokenEntry, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 4 {
		return tokenEntry{}, errors.New("malformed csrf entry")
	}
	created, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return tokenEntry{}, fmt.Errorf("malformed csrf entry: %w", err)
	}
	expires, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return tokenEntry{}, fmt.Errorf("malformed csrf entry: %w", err)
	}
	return tokenEntry{
		hash:      parts[0],
		createdAt: time.UnixMilli(created),
		expiresAt: time.UnixMilli(expires),
		used:      parts[3] == "1",
	}, nil
}
