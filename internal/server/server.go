package server

import (
	"fmt"
	"net/http"
	"time"

	"minimarket/internal/config"
	custommiddleware "minimarket/internal/middleware"
	"minimarket/internal/notify"
	"minimarket/internal/poller"
	"minimarket/internal/selectors"
	"minimarket/internal/store"
	"minimarket/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps is everything the view API needs from the running client
type Deps struct {
	Store     *store.Store
	Selectors *selectors.Selectors
	Feed      *notify.Feed
	Services  transport.AdminServices
	Poller    *poller.Poller
	Redis     *redis.Client // nil disables login rate limiting
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger.Named("http")))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		products := deps.Store.State().Products
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"catalog_size":    len(products.Items),
			"catalog_updated": products.LastUpdate,
			"polling_idle":    deps.Poller.Idle(),
			"busy":            deps.Feed.Blocking(),
		})
	})

	storefront := transport.NewStorefrontHandler(deps.Store, deps.Selectors, deps.Services.Products, logger.Named("storefront"))
	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.ActivityMiddleware(deps.Poller))
		storefront.RegisterRoutes(r)
	})

	loginLimiter := custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.Auth.LoginRateLimit,
		Window:            cfg.Auth.LoginRateWindow,
		KeyPrefix:         cfg.TokenStore.Prefix + ":login-rate",
	}, logger)
	requireSession := custommiddleware.RequireSession(deps.Store, logger)

	admin := transport.NewAdminHandler(deps.Services, deps.Store, deps.Feed, logger.Named("admin"))
	admin.RegisterRoutes(router, loginLimiter, requireSession)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		redis:  deps.Redis,
	}
}

// Close releases what the server holds once it has shut down
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
