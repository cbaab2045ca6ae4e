package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"minimarket/internal/apiclient"
	"minimarket/internal/config"
	"minimarket/internal/logger"
	"minimarket/internal/notify"
	"minimarket/internal/poller"
	"minimarket/internal/selectors"
	"minimarket/internal/server"
	"minimarket/internal/service"
	"minimarket/internal/store"
	"minimarket/internal/tokenstore"
	"minimarket/internal/transport"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type app struct {
	server   *server.Server
	poller   *poller.Poller
	featured *service.FeaturedService
	logger   *zap.Logger
}

func gracefulShutdown(a *app, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	a.logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server forced to shutdown", zap.Error(err))
	}

	a.poller.Stop()

	// pending featured toggles are saved before exit
	if err := a.featured.Close(ctx); err != nil {
		a.logger.Error("Failed to save pending featured products", zap.Error(err))
	}

	if err := a.server.Close(); err != nil {
		a.logger.Error("Error closing server resources", zap.Error(err))
	}

	a.logger.Info("Server exiting")
	done <- true
}

func newRedis(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis not reachable yet", zap.String("addr", cfg.Addr()), zap.Error(err))
	} else {
		log.Info("Redis connected", zap.String("addr", cfg.Addr()))
	}
	return client
}

// bootstrap runs the initial loads a freshly opened storefront needs. Each
// one logs its own failure; the poller keeps the catalog converging.
func bootstrap(ctx context.Context, auth *service.AuthService, cfg *service.AppConfigService, categories *service.CategoryService, featured *service.FeaturedService) {
	loads := []func(context.Context) error{
		auth.CheckSession,
		cfg.LoadPublic,
		categories.GetCategories,
		featured.LoadPublic,
	}

	var wg sync.WaitGroup
	for _, load := range loads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = load(ctx)
		}()
	}
	wg.Wait()
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting minimarket storefront",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("api", cfg.API.BaseURL),
	)

	redisClient := newRedis(cfg.Redis, log)

	tokens, err := tokenstore.New(cfg.TokenStore, redisClient)
	if err != nil {
		log.Fatal("Failed to create token store", zap.Error(err))
	}

	api := apiclient.New(apiclient.Options{
		BaseURL:       cfg.API.BaseURL,
		TokenHeader:   cfg.API.TokenHeader,
		Timeout:       cfg.API.Timeout,
		UploadTimeout: cfg.API.UploadTimeout,
	}, tokens, log.Named("api"))

	st := store.New()
	st.Subscribe(store.LogChanges(log.Named("store")))
	feed := notify.NewFeed(100)
	notifier := notify.Multi(notify.NewLogNotifier(log), feed)

	services := transport.AdminServices{
		Auth:       service.NewAuthService(api, st, tokens, notifier, log, cfg.Auth.MaxLoginAttempts, cfg.Auth.LockoutDuration),
		Products:   service.NewProductService(api, st, notifier, log, cfg.Sync.ProductsFreshness),
		Categories: service.NewCategoryService(api, st, notifier, log),
		Featured:   service.NewFeaturedService(api, st, notifier, log, cfg.Sync.FeaturedSaveWindow),
		Users:      service.NewAdminUserService(api, st, notifier, log),
		AppConfig:  service.NewAppConfigService(api, st, notifier, log),
	}

	catalogSync := poller.New(func(ctx context.Context) error {
		return services.Products.GetProducts(ctx, true)
	}, cfg.Sync.PollInterval, cfg.Sync.PollIdleAfter, log)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), cfg.API.Timeout+5*time.Second)
	bootstrap(bootCtx, services.Auth, services.AppConfig, services.Categories, services.Featured)
	cancelBoot()

	catalogSync.Start(context.Background())

	srv := server.NewServer(cfg, log, server.Deps{
		Store:     st,
		Selectors: selectors.New(),
		Feed:      feed,
		Services:  services,
		Poller:    catalogSync,
		Redis:     redisClient,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(&app{server: srv, poller: catalogSync, featured: services.Featured, logger: log}, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
