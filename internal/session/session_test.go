package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	srv     *miniredis.Miniredis
	rdb     *redis.Client
	clock   *fakeClock
	store   *Store
	csrf    *TokenManager
	codec   *Codec
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(rdb, "test:", 24*time.Hour)
	store.now = clock.Now
	csrf := NewTokenManager(store, 30*time.Minute)
	csrf.now = clock.Now
	codec := NewCodec("test-secret-0123456789")
	codec.now = clock.Now
	manager := NewManager(store, codec, csrf, Options{
		CookieName:    "sid",
		Lifetime:      24 * time.Hour,
		IdleTimeout:   time.Hour,
		RegenInterval: 5 * time.Minute,
	})
	return &fixture{srv: s, rdb: rdb, clock: clock, store: store, csrf: csrf, codec: codec, manager: manager}
}

func (f *fixture) savedSession(t *testing.T) *Session {
	t.Helper()
	s, err := f.store.New()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := f.store.Save(context.Background(), s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return s
}

func TestStore_SaveAndLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	s.SetIdentity(Identity{UserID: 7, UserType: "buyer", Name: "Ana"}, f.clock.Now())
	s.AddFlash("Welcome back")
	if err := f.store.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := f.store.Load(ctx, s.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.UserID() != 7 || loaded.UserType() != "buyer" || loaded.Name() != "Ana" {
		t.Fatalf("unexpected identity: %+v", loaded.Snapshot())
	}
	if msgs := loaded.Flashes(); len(msgs) != 1 || msgs[0] != "Welcome back" {
		t.Fatalf("unexpected flashes: %v", msgs)
	}
	if loaded.IsNew() {
		t.Fatal("loaded session must not be new")
	}
}

func TestStore_LoadMissing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.Load(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RegenerateKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	oldID := s.ID()
	if err := f.store.SetCartItem(ctx, s, 42, 2); err != nil {
		t.Fatalf("set cart item: %v", err)
	}
	tok, err := f.csrf.Generate(ctx, s, PurposeCart)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := f.store.Regenerate(ctx, s); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if s.ID() == oldID || !s.IDChanged() {
		t.Fatal("expected a new session id")
	}
	if _, err := f.store.Load(ctx, oldID); err != ErrNotFound {
		t.Fatalf("old id must stop resolving, got %v", err)
	}
	if _, err := f.store.Load(ctx, s.ID()); err != nil {
		t.Fatalf("load new id: %v", err)
	}

	qty, ok, err := f.store.CartItem(ctx, s, 42)
	if err != nil || !ok || qty != 2 {
		t.Fatalf("cart not carried over: qty=%d ok=%v err=%v", qty, ok, err)
	}
	valid, err := f.csrf.Validate(ctx, s, PurposeCart, tok.Value)
	if err != nil || !valid {
		t.Fatalf("csrf token not carried over: valid=%v err=%v", valid, err)
	}
}

func TestStore_ResetClearsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	s.SetIdentity(Identity{UserID: 3, UserType: "seller", Name: "Bo"}, f.clock.Now())
	if err := f.store.SetCartItem(ctx, s, 1, 1); err != nil {
		t.Fatalf("set cart item: %v", err)
	}
	oldID := s.ID()

	if err := f.store.Reset(ctx, s); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.IsAuthenticated() || s.ID() == oldID {
		t.Fatalf("expected anonymous session with new id, got %+v", s.Snapshot())
	}
	items, err := f.store.CartItems(ctx, s)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty cart, got %v (err=%v)", items, err)
	}
	if n := f.srv.Exists("test:sess:" + oldID + ":cart"); n {
		t.Fatal("old cart key must be deleted")
	}
}

func TestStore_StaleCopyCannotRestoreSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	s.SetIdentity(Identity{UserID: 7, UserType: "buyer", Name: "Ana"}, f.clock.Now())
	if err := f.store.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	oldID := s.ID()

	tests := []struct {
		name  string
		apply func(*Session) error
	}{
		{"reset", func(live *Session) error { return f.store.Reset(ctx, live) }},
		{"regenerate", func(live *Session) error { return f.store.Regenerate(ctx, live) }},
		{"destroy", func(live *Session) error { return f.store.Destroy(ctx, live) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := f.savedSession(t)
			seed.SetIdentity(Identity{UserID: 7}, f.clock.Now())
			if err := f.store.Save(ctx, seed); err != nil {
				t.Fatalf("save: %v", err)
			}
			live, err := f.store.Load(ctx, seed.ID())
			if err != nil {
				t.Fatalf("load live: %v", err)
			}
			stale, err := f.store.Load(ctx, seed.ID())
			if err != nil {
				t.Fatalf("load stale: %v", err)
			}

			if err := tt.apply(live); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if err := f.store.Save(ctx, stale); !errors.Is(err, ErrInvalidated) {
				t.Fatalf("expected ErrInvalidated, got %v", err)
			}
			if _, err := f.store.Load(ctx, seed.ID()); err != ErrNotFound {
				t.Fatalf("old id must stay gone, got %v", err)
			}
		})
	}

	// the session that was reset saves normally under its new id
	if err := f.store.Reset(ctx, s); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !s.IsNew() {
		t.Fatal("reset session must count as new")
	}
	if err := f.store.Save(ctx, s); err != nil {
		t.Fatalf("save after reset: %v", err)
	}
	if _, err := f.store.Load(ctx, s.ID()); err != nil {
		t.Fatalf("load after reset: %v", err)
	}
	if _, err := f.store.Load(ctx, oldID); err != ErrNotFound {
		t.Fatalf("old id must stay gone, got %v", err)
	}
}

func TestGuestCart_Operations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.savedSession(t)

	if err := f.store.SetCartItem(ctx, s, 5, 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.store.SetCartItem(ctx, s, 6, 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	items, err := f.store.CartItems(ctx, s)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 || items[5] != 3 || items[6] != 1 {
		t.Fatalf("unexpected items: %v", items)
	}

	removed, err := f.store.RemoveCartItem(ctx, s, 5)
	if err != nil || !removed {
		t.Fatalf("remove existing: removed=%v err=%v", removed, err)
	}
	removed, err = f.store.RemoveCartItem(ctx, s, 5)
	if err != nil || removed {
		t.Fatalf("remove missing: removed=%v err=%v", removed, err)
	}

	if err := f.store.ClearCart(ctx, s); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := f.store.CartItem(ctx, s, 6); ok {
		t.Fatal("expected cart to be empty after clear")
	}
}

func TestManager_StartNewAndResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.manager.Start(ctx, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsNew() {
		t.Fatal("expected a new session without cookie")
	}
	if err := f.manager.Commit(ctx, s); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie, err := f.manager.Cookie(s)
	if err != nil {
		t.Fatalf("cookie: %v", err)
	}
	if !cookie.HttpOnly || cookie.Name != "sid" {
		t.Fatalf("unexpected cookie: %+v", cookie)
	}

	resumed, err := f.manager.Start(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.ID() != s.ID() || resumed.IsNew() {
		t.Fatalf("expected to resume %s, got %s", s.ID(), resumed.ID())
	}
}

func TestManager_RejectsForgedCookie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	forged, err := NewCodec("another-secret-0123456789").Encode(s.ID(), time.Hour)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := f.manager.Start(ctx, forged)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.ID() == s.ID() {
		t.Fatal("forged cookie must not resume the session")
	}
}

func TestManager_IdleTimeoutResetsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	s.SetIdentity(Identity{UserID: 9, UserType: "buyer", Name: "Cy"}, f.clock.Now())
	if err := f.manager.Commit(ctx, s); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie, _ := f.manager.Cookie(s)

	f.clock.Advance(61 * time.Minute)
	got, err := f.manager.Start(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.IsAuthenticated() {
		t.Fatal("idle session must be treated as unauthenticated")
	}
	if got.ID() == s.ID() {
		t.Fatal("idle session must get a new id")
	}
	if msgs := got.Flashes(); len(msgs) != 1 {
		t.Fatalf("expected expiry flash, got %v", msgs)
	}
}

func TestManager_PeriodicRegeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	s.SetIdentity(Identity{UserID: 1, UserType: "both", Name: "Di"}, f.clock.Now())
	if err := f.manager.Commit(ctx, s); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie, _ := f.manager.Cookie(s)

	f.clock.Advance(2 * time.Minute)
	same, err := f.manager.Start(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if same.IDChanged() {
		t.Fatal("id must not rotate before the interval")
	}
	if err := f.manager.Commit(ctx, same); err != nil {
		t.Fatalf("commit: %v", err)
	}

	f.clock.Advance(4 * time.Minute)
	rotated, err := f.manager.Start(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !rotated.IDChanged() || rotated.ID() == s.ID() {
		t.Fatal("expected id rotation after the interval")
	}
	if rotated.UserID() != 1 {
		t.Fatal("rotation must keep the identity")
	}
}

func TestManager_GuestSessionIsNotRegenerated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.savedSession(t)
	cookie, _ := f.manager.Cookie(s)
	f.clock.Advance(10 * time.Minute)

	got, err := f.manager.Start(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.IDChanged() {
		t.Fatal("guest sessions keep their id")
	}
}

func TestGuestCart_IgnoresNonPositiveQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.savedSession(t)

	if err := f.store.SetCartItem(ctx, s, 5, 0); err == nil {
		t.Fatal("expected zero quantity to be rejected")
	}

	f.srv.HSet(f.store.cartKey(s.ID()), "5", "-3")
	if _, ok, err := f.store.CartItem(ctx, s, 5); err != nil || ok {
		t.Fatalf("negative line must not be found: ok=%v err=%v", ok, err)
	}
	items, err := f.store.CartItems(ctx, s)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected no lines, got %v (err=%v)", items, err)
	}
}

func TestSession_GuestChannelSurvivesRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.savedSession(t)

	ch := s.Channel()
	if !strings.HasPrefix(ch, "guest:") {
		t.Fatalf("unexpected guest channel %q", ch)
	}
	if strings.Contains(ch, s.ID()) {
		t.Fatal("guest channel must not be derived from the session id")
	}

	if err := f.store.Regenerate(ctx, s); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if err := f.store.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := f.store.Load(ctx, s.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Channel() != ch {
		t.Fatalf("channel changed on regeneration: %q -> %q", ch, loaded.Channel())
	}

	s.SetIdentity(Identity{UserID: 7, UserType: "buyer", Name: "Ada"}, f.clock.Now())
	if got := s.Channel(); got != "user:7" {
		t.Fatalf("authenticated channel = %q", got)
	}

	if err := f.store.Reset(ctx, s); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := s.Channel(); got == ch || !strings.HasPrefix(got, "guest:") {
		t.Fatalf("reset must start a fresh guest channel, got %q", got)
	}
}
