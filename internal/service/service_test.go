package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/model"
	"marketplace/internal/pkg/lockout"
	"marketplace/internal/repository"
	"marketplace/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type publishedEvent struct {
	channel string
	event   string
	data    any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(channel, event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel: channel, event: event, data: data})
}

func (p *recordingPublisher) last() (publishedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return publishedEvent{}, false
	}
	return p.events[len(p.events)-1], true
}

// countingHasher stands in for bcrypt and counts verifications.
type countingHasher struct {
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *countingHasher) Compare(hash, password string) bool {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return hash == "hashed:"+password
}

func (h *countingHasher) Compares() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compares
}

type testEnv struct {
	db        *gorm.DB
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	store     *session.Store
	manager   *session.Manager
	repos     *repository.CartRepositories
	users     repository.UserRepository
	listings  repository.ListingRepository
	audit     repository.AuditRepository
	remember  repository.RememberTokenRepository
	txManager repository.TransactionManager
	publisher *recordingPublisher
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := session.NewStore(rdb, "test:", 24*time.Hour)
	tokens := session.NewTokenManager(store, time.Hour)
	manager := session.NewManager(store, session.NewCodec("service-test-secret-123"), tokens, session.Options{})

	return &testEnv{
		db:        db,
		mr:        mr,
		rdb:       rdb,
		store:     store,
		manager:   manager,
		repos:     repository.NewCartRepositories(db, store),
		users:     repository.NewUserRepository(db),
		listings:  repository.NewListingRepository(db),
		audit:     repository.NewAuditRepository(db),
		remember:  repository.NewRememberTokenRepository(db),
		txManager: repository.NewTransactionManager(db),
		publisher: &recordingPublisher{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (e *testEnv) cartService(policy string) CartService {
	if policy == "" {
		policy = config.ZeroStockUnlimited
	}
	return NewCartService(e.repos, e.listings, e.audit, e.txManager, e.publisher, e.logger, CartOptions{ZeroStockPolicy: policy})
}

func (e *testEnv) authService(t *testing.T, hasher PasswordHasher, merger CartMerger) AuthService {
	t.Helper()
	guard := lockout.NewGuard(e.rdb, "test:", 5, 15*time.Minute)
	svc, err := NewAuthService(e.users, e.remember, e.audit, guard, e.manager, hasher, merger, e.logger, AuthOptions{})
	require.NoError(t, err)
	return svc
}

func (e *testEnv) guestSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := e.store.New()
	require.NoError(t, err)
	require.NoError(t, e.store.Save(t.Context(), s))
	return s
}

func (e *testEnv) userSession(t *testing.T, user *model.User) *session.Session {
	t.Helper()
	s := e.guestSession(t)
	s.SetIdentity(session.Identity{UserID: user.ID, UserType: user.UserType, Name: user.DisplayName()}, time.Now())
	return s
}

func (e *testEnv) createUser(t *testing.T, email, status string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "Test",
		Surname:      "User",
		Email:        email,
		PasswordHash: "hashed:secret-password",
		UserType:     model.UserTypeBoth,
		ReferralCode: "ref-" + email,
		Status:       status,
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) createListing(t *testing.T, id, sellerID uint, price string, qty int) *model.Listing {
	t.Helper()
	l := &model.Listing{
		ID:       id,
		SellerID: sellerID,
		Title:    "Listing",
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		City:     "Roma",
		Province: "RM",
		Status:   model.ListingStatusActive,
		IsActive: true,
	}
	require.NoError(t, e.db.Create(l).Error)
	return l
}
