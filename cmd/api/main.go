package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "marketplace/api/swagger" // swagger docs
	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/handler"
	"marketplace/internal/middleware"
	"marketplace/internal/pkg/lockout"
	"marketplace/internal/pkg/logger"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const rememberCleanupInterval = time.Hour

// @title           Marketplace API
// @version         1.0
// @description     Sessions, authentication, carts and listings for a peer-to-peer marketplace.
// @host            localhost:8080
// @BasePath        /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, config.DefaultEnvFile)
	if err != nil {
		logger.NewDefault("info").Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewDefault(cfg.App.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database.URL(), log)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")
	if cfg.App.SeedDemo {
		if err := database.SeedDemoData(ctx, db, log); err != nil {
			log.Warn("seed demo data", "error", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}

	metrics.InitMetrics()

	// Sessions and request security
	store := session.NewStore(rdb, cfg.Redis.Prefix, cfg.Session.Lifetime)
	tokens := session.NewTokenManager(store, cfg.Security.CSRFLifetime)
	sessions := session.NewManager(store, session.NewCodec(cfg.Session.Secret), tokens, session.Options{
		CookieName:    cfg.Session.CookieName,
		Lifetime:      cfg.Session.Lifetime,
		IdleTimeout:   cfg.Session.IdleTimeout,
		RegenInterval: cfg.Session.RegenInterval,
		Secure:        cfg.Session.Secure,
	})
	guard := lockout.NewGuard(rdb, cfg.Redis.Prefix, cfg.Security.MaxLoginAttempts, cfg.Security.LockoutTime)
	remember := middleware.RememberCookie{
		Name:     cfg.Session.RememberCookie,
		Lifetime: cfg.Session.RememberLifetime,
		Secure:   cfg.Session.Secure,
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log, cfg.App.AllowedOrigins)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	rememberRepo := repository.NewRememberTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	listingRepo := repository.NewListingRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	cartRepos := repository.NewCartRepositories(db, store)

	cartService := service.NewCartService(cartRepos, listingRepo, auditRepo, txManager, wsHub, log,
		service.CartOptions{ZeroStockPolicy: cfg.Cart.ZeroStockPolicy})
	authService, err := service.NewAuthService(userRepo, rememberRepo, auditRepo, guard, sessions,
		service.NewBcryptHasher(cfg.Security.BcryptCost), cartService, log,
		service.AuthOptions{RememberLifetime: cfg.Session.RememberLifetime})
	if err != nil {
		log.Error("init auth service", "error", err)
		os.Exit(1)
	}
	listingService := service.NewListingService(listingRepo, catalogRepo)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService, tokens, remember, log)
	cartHandler := handler.NewCartHandler(cartService, tokens, log)
	listingHandler := handler.NewListingHandler(listingService, log)
	wsHandler := handler.NewWebsocketHandler(wsHub)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.App.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", middleware.CSRFHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// Everything below runs with a session
	app := router.Group("")
	app.Use(middleware.Sessions(sessions, log), middleware.RememberMe(authService, remember, log))
	authHandler.RegisterRoutes(app)
	cartHandler.RegisterRoutes(app)
	listingHandler.RegisterRoutes(app)
	wsHandler.RegisterRoutes(app)

	go cleanupRememberTokens(ctx, rememberRepo, log)

	srv := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", "addr", cfg.App.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// cleanupRememberTokens deletes expired remember-me tokens until ctx ends.
func cleanupRememberTokens(ctx context.Context, repo repository.RememberTokenRepository, log *slog.Logger) {
	ticker := time.NewTicker(rememberCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.DeleteExpired(ctx, now)
			if err != nil {
				log.Warn("cleanup remember tokens", "error", err)
				continue
			}
			if n > 0 {
				log.Info("removed expired remember tokens", "count", n)
			}
		}
	}
}
