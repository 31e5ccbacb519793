package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

// ErrInvalidated is returned by Save when the session id was destroyed or
// rotated by another request after this one loaded it.
var ErrInvalidated = errors.New("session invalidated")

// renameLua moves each existing key in KEYS[i] to KEYS[i+1].
const renameLua = `
for i = 1, #KEYS, 2 do
  if redis.call("EXISTS", KEYS[i]) == 1 then
    redis.call("RENAME", KEYS[i], KEYS[i + 1])
  end
end
return 1
`

// Store persists sessions in Redis. Every session owns three keys: its data, its
// guest cart hash and its CSRF registry hash.
type Store struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	rename *redis.Script
	now    func() time.Time
}

func NewStore(rdb *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		rename: redis.NewScript(renameLua),
		now:    time.Now,
	}
}

// New starts a session that is not persisted until Save.
func (st *Store) New() (*Session, error) {
	s, err := newSession(st.now())
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	return s, nil
}

func (st *Store) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := st.rdb.Get(ctx, st.dataKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	s := &Session{id: id}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Save writes the session data and refreshes the expiry of all its keys. A
// session that already existed is only overwritten while its key still exists,
// so a stale copy cannot bring back a destroyed or rotated id.
func (st *Store) Save(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	pipe := st.rdb.TxPipeline()
	var written *redis.BoolCmd
	if s.isNew {
		pipe.Set(ctx, st.dataKey(s.id), raw, st.ttl)
	} else {
		written = pipe.SetXX(ctx, st.dataKey(s.id), raw, st.ttl)
	}
	pipe.Expire(ctx, st.cartKey(s.id), st.ttl)
	pipe.Expire(ctx, st.csrfKey(s.id), st.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if written != nil && !written.Val() {
		return ErrInvalidated
	}
	s.isNew = false
	return nil
}

// Regenerate gives the session a fresh identifier and carries its cart and
// tokens over. The old identifier stops resolving immediately.
func (st *Store) Regenerate(ctx context.Context, s *Session) error {
	id, err := newID()
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}

	keys := []string{
		st.dataKey(s.id), st.dataKey(id),
		st.cartKey(s.id), st.cartKey(id),
		st.csrfKey(s.id), st.csrfKey(id),
	}
	if err := st.rename.Run(ctx, st.rdb, keys).Err(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	s.rotate(id, st.now())
	return nil
}

// Reset wipes all state of the session and continues it under a new identifier.
func (st *Store) Reset(ctx context.Context, s *Session) error {
	if err := st.Destroy(ctx, s); err != nil {
		return err
	}
	id, err := newID()
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	s.reset(id, st.now())
	return nil
}

// Destroy deletes every key belonging to the session.
func (st *Store) Destroy(ctx context.Context, s *Session) error {
	if err := st.rdb.Del(ctx, st.dataKey(s.id), st.cartKey(s.id), st.csrfKey(s.id)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (st *Store) dataKey(id string) string { return st.prefix + "sess:" + id }

func (st *Store) cartKey(id string) string { return st.prefix + "sess:" + id + ":cart" }

func (st *Store) csrfKey(id string) string { return st.prefix + "sess:" + id + ":csrf" }
