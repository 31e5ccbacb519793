package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"marketplace/internal/pkg/metrics"
)

const expiredFlash = "Your session has expired. Please log in again."

// Options configures cookie handling and session lifetimes.
type Options struct {
	CookieName    string
	Lifetime      time.Duration
	IdleTimeout   time.Duration
	RegenInterval time.Duration
	Secure        bool
}

// Manager runs the per-request session lifecycle on top of Store.
type Manager struct {
	store *Store
	codec *Codec
	csrf  *TokenManager
	opts  Options
}

func NewManager(store *Store, codec *Codec, csrf *TokenManager, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "mkt_session"
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 24 * time.Hour
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Hour
	}
	if opts.RegenInterval <= 0 {
		opts.RegenInterval = 5 * time.Minute
	}
	return &Manager{store: store, codec: codec, csrf: csrf, opts: opts}
}

func (m *Manager) Store() *Store { return m.store }

func (m *Manager) CSRF() *TokenManager { return m.csrf }

func (m *Manager) CookieName() string { return m.opts.CookieName }

// Start resolves the session for a request from its cookie value. Unknown,
// forged or idle sessions are replaced by a fresh one. Expired CSRF tokens are
// purged and authenticated sessions past the regeneration interval get a new id.
func (m *Manager) Start(ctx context.Context, cookieValue string) (*Session, error) {
	s, err := m.load(ctx, cookieValue)
	if err != nil {
		return nil, err
	}

	now := m.store.now()
	if !s.isNew && now.Sub(s.LastActivity()) > m.opts.IdleTimeout {
		wasAuthenticated := s.IsAuthenticated()
		if err := m.store.Reset(ctx, s); err != nil {
			return nil, err
		}
		if wasAuthenticated {
			s.AddFlash(expiredFlash)
		}
	}

	if !s.isNew {
		if _, err := m.csrf.Purge(ctx, s); err != nil {
			return nil, err
		}
	}

	if s.IsAuthenticated() && now.Sub(s.LastRegenerated()) >= m.opts.RegenInterval {
		if err := m.Regenerate(ctx, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (m *Manager) load(ctx context.Context, cookieValue string) (*Session, error) {
	id, err := m.codec.Decode(cookieValue)
	if err == nil {
		s, err := m.store.Load(ctx, id)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return m.store.New()
}

// Regenerate rotates the session id, keeping its state.
func (m *Manager) Regenerate(ctx context.Context, s *Session) error {
	if err := m.store.Regenerate(ctx, s); err != nil {
		return err
	}
	metrics.SessionsRegenerated.Inc()
	return nil
}

// Reset discards all session state and continues under a new id.
func (m *Manager) Reset(ctx context.Context, s *Session) error {
	return m.store.Reset(ctx, s)
}

// Commit records activity and persists the session at the end of a request.
func (m *Manager) Commit(ctx context.Context, s *Session) error {
	s.touch(m.store.now())
	return m.store.Save(ctx, s)
}

// Cookie builds the signed, HTTP-only session cookie for s.
func (m *Manager) Cookie(s *Session) (*http.Cookie, error) {
	value, err := m.codec.Encode(s.ID(), m.opts.Lifetime)
	if err != nil {
		return nil, fmt.Errorf("session cookie: %w", err)
	}
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.opts.Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}
