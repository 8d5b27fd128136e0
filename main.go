package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkpost/auth"
	"inkpost/cache"
	"inkpost/config"
	"inkpost/database"
	"inkpost/database/memstore"
	"inkpost/handlers"
	"inkpost/logging"
	"inkpost/mailer"
	"inkpost/media"
	"inkpost/push"
	"inkpost/routes"
	"inkpost/services"

	"github.com/gin-gonic/gin"
)

// stores groups the repositories behind either backend.
type stores struct {
	users         services.UserStore
	posts         services.PostStore
	notifications services.NotificationStore
	subscriptions services.SubscriptionStore
	close         func(context.Context) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run wires the application and serves until SIGINT or SIGTERM. Returning
// instead of exiting lets the deferred cleanup run on every failure.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(os.Stdout, cfg.Release())
	slog.Info("starting inkpost backend", "mode", cfg.GinMode)

	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	host, err := media.FromConfig(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("configure media host: %w", err)
	}
	if _, ok := host.(media.Unconfigured); ok {
		slog.Warn("CLOUDINARY_URL not set, image uploads will fail")
	}

	var mail services.Mailer = mailer.Log{}
	if cfg.SMTP.Enabled() {
		mail = mailer.NewSMTP(cfg.SMTP)
	} else {
		slog.Warn("SMTP_HOST not set, OTP codes are logged instead of emailed")
	}

	postDeps := services.PostDeps{
		Posts:         st.posts,
		Users:         st.users,
		Notifications: st.notifications,
		Media:         host,
	}
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		postDeps.Cache = cache.NewPosts(rdb, cfg.Redis.TTL)
		slog.Info("post listing cache enabled", "ttl", cfg.Redis.TTL)
	}
	if cfg.Push.Enabled() {
		postDeps.Notifier = push.NewNotifier(st.subscriptions, cfg.Push)
	}

	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)

	authSvc := services.NewAuthService(services.AuthDeps{
		Users:         st.users,
		Mailer:        mail,
		Hasher:        hasher,
		Tokens:        tokens,
		OTPTTL:        cfg.OTPTTL,
		DefaultAvatar: cfg.DefaultAvatar,
	})
	userSvc := services.NewUserService(st.users, st.posts, host, hasher, cfg.DefaultAvatar)
	postSvc := services.NewPostService(postDeps)

	h := handlers.New(authSvc, userSvc, postSvc, st.subscriptions, handlers.Options{
		TokenTTL:       cfg.TokenTTL,
		CookieSecure:   cfg.CookieSecure,
		VAPIDPublicKey: cfg.Push.VAPIDPublicKey,
	})
	router := routes.SetupRouter(h, tokens, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.MongoURI == config.MemoryURI {
		slog.Warn("using in-memory store, data is lost on restart")
		mem := memstore.New()
		return &stores{
			users:         mem.Users(),
			posts:         mem.Posts(),
			notifications: mem.Notifications(),
			subscriptions: mem.Subscriptions(),
			close:         func(context.Context) error { return nil },
		}, nil
	}

	db, err := database.ConnectWithRetry(ctx, cfg.MongoURI, cfg.MongoDB, 3, 2*time.Second)
	if err != nil {
		return nil, err
	}
	slog.Info("MongoDB connected", "database", cfg.MongoDB)

	idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(idxCtx); err != nil {
		_ = db.Disconnect(ctx)
		return nil, err
	}

	return &stores{
		users:         database.NewUserRepository(db.Users),
		posts:         database.NewPostRepository(db.Posts),
		notifications: database.NewNotificationRepository(db.Notifications),
		subscriptions: database.NewSubscriptionRepository(db.Subscriptions),
		close:         db.Disconnect,
	}, nil
}
