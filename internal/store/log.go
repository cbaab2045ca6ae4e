package store

import (
	"sync"

	"go.uber.org/zap"
)

// LogChanges returns a listener that logs catalog reloads, cart changes and
// session transitions
func LogChanges(logger *zap.Logger) Listener {
	var (
		mu   sync.Mutex
		last = InitialState()
	)
	return func(s State) {
		mu.Lock()
		prev := last
		last = s
		mu.Unlock()

		if !s.Products.LastUpdate.Equal(prev.Products.LastUpdate) {
			logger.Debug("Catalog reloaded", zap.Int("products", len(s.Products.Items)))
		}
		if s.Cart.ItemsCount != prev.Cart.ItemsCount {
			logger.Debug("Cart changed",
				zap.Int("items", s.Cart.ItemsCount),
				zap.Float64("total", s.Cart.Total),
			)
		}
		if s.Auth.IsLoggedIn != prev.Auth.IsLoggedIn {
			logger.Info("Session changed", zap.Bool("logged_in", s.Auth.IsLoggedIn), zap.String("uid", s.Auth.UID))
		}
	}
}
