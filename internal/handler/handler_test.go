package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/database"
	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/pkg/lockout"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testPassword = "secret-password"

// plainHasher keeps handler tests fast; bcrypt is covered by the service tests.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) bool { return hash == "hashed:"+password }

type testServer struct {
	srv *httptest.Server
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(rdb, "test:", 24*time.Hour)
	tokens := session.NewTokenManager(store, time.Hour)
	sessions := session.NewManager(store, session.NewCodec("handler-test-secret-1"), tokens, session.Options{})
	remember := middleware.RememberCookie{Name: "remember", Lifetime: 24 * time.Hour}

	listingRepo := repository.NewListingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cartService := service.NewCartService(repository.NewCartRepositories(db, store), listingRepo, auditRepo,
		repository.NewTransactionManager(db), nil, logger, service.CartOptions{})
	authService, err := service.NewAuthService(repository.NewUserRepository(db), repository.NewRememberTokenRepository(db),
		auditRepo, lockout.NewGuard(rdb, "test:", 5, 15*time.Minute), sessions, plainHasher{}, cartService, logger,
		service.AuthOptions{})
	require.NoError(t, err)
	listingService := service.NewListingService(listingRepo, repository.NewCatalogRepository(db))

	router := gin.New()
	app := router.Group("")
	app.Use(middleware.Sessions(sessions, logger), middleware.RememberMe(authService, remember, logger))
	NewAuthHandler(authService, tokens, remember, logger).RegisterRoutes(app)
	NewCartHandler(cartService, tokens, logger).RegisterRoutes(app)
	NewListingHandler(listingService, logger).RegisterRoutes(app)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, db: db}
}

// client is one browser: it keeps its own cookies.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (s *testServer) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: s.srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path, csrf string, body any) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrf != "" {
		req.Header.Set(middleware.CSRFHeader, csrf)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (c *client) token(purpose string) string {
	c.t.Helper()
	status, body := c.do(http.MethodGet, "/csrf-token?purpose="+purpose, "", nil)
	require.Equal(c.t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	return data["token"].(string)
}

func (s *testServer) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "Test",
		Surname:      "User",
		Email:        email,
		PasswordHash: "hashed:" + testPassword,
		UserType:     model.UserTypeBoth,
		ReferralCode: "ref-" + email,
		Status:       model.UserStatusActive,
	}
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func (s *testServer) createListing(t *testing.T, sellerID uint, price string, qty int) *model.Listing {
	t.Helper()
	l := &model.Listing{
		SellerID: sellerID,
		Title:    "Vintage lamp",
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
		City:     "Roma",
		Province: "RM",
		Status:   model.ListingStatusActive,
		IsActive: true,
	}
	require.NoError(t, s.db.Create(l).Error)
	return l
}
