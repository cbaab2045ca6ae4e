package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"minimarket/internal/apiclient"
	"minimarket/internal/domain"
	"minimarket/internal/notify"
	"minimarket/internal/store"

	"go.uber.org/zap"
)

// DefaultSaveWindow is how long toggles are collected before a save
const DefaultSaveWindow = 800 * time.Millisecond

// FeaturedService manages the popular and on-sale selections. Toggles
// apply locally at once; saving is coalesced by an autosaver.
type FeaturedService struct {
	base
	saver *autosaver
}

// NewFeaturedService creates a new FeaturedService
func NewFeaturedService(api Backend, st *store.Store, notifier notify.Notifier, logger *zap.Logger, window time.Duration) *FeaturedService {
	s := &FeaturedService{base: newBase(api, st, notifier, logger, "featured")}
	s.saver = newAutosaver(window, s.save, s.logger)
	return s
}

// LoadPublic loads the selection shown to shoppers
func (s *FeaturedService) LoadPublic(ctx context.Context) error {
	return s.loadFrom(ctx, "featured-products/public", false)
}

// LoadAdmin loads the selection through the authenticated endpoint
func (s *FeaturedService) LoadAdmin(ctx context.Context) error {
	return s.loadFrom(ctx, "featured-products", true)
}

// loadFrom saves pending toggles before fetching. A toggle made while the
// fetch is in flight wins over the fetched copy.
func (s *FeaturedService) loadFrom(ctx context.Context, endpoint string, authed bool) error {
	if err := s.saver.flush(ctx); err != nil {
		return err
	}
	gen := s.saver.generation()

	return s.load(ctx, "featured products",
		func(ctx context.Context) (*apiclient.Response, error) {
			if authed {
				return s.api.Authed(ctx, http.MethodGet, endpoint, nil)
			}
			return s.api.Public(ctx, http.MethodGet, endpoint, nil)
		},
		func(resp *apiclient.Response) error {
			selection, err := decodeSelection(resp)
			if err != nil {
				return err
			}
			if s.saver.generation() != gen {
				s.logger.Debug("Discarding featured load superseded by a local toggle")
				return nil
			}
			s.store.Dispatch(store.FeaturedLoaded{Selection: selection})
			return nil
		},
	)
}

// TogglePopular flips id in the popular set and schedules a save
func (s *FeaturedService) TogglePopular(id int64) {
	s.store.Dispatch(store.PopularToggled{ID: id})
	s.saver.schedule()
}

// ToggleOnSale flips id in the on-sale set and schedules a save
func (s *FeaturedService) ToggleOnSale(id int64) {
	s.store.Dispatch(store.OnSaleToggled{ID: id})
	s.saver.schedule()
}

// Flush saves any pending toggles immediately
func (s *FeaturedService) Flush(ctx context.Context) error {
	return s.saver.flush(ctx)
}

// Close saves pending toggles and stops the autosaver
func (s *FeaturedService) Close(ctx context.Context) error {
	return s.saver.close(ctx)
}

// save always sends the latest full selection, read when the write starts
func (s *FeaturedService) save(ctx context.Context) error {
	selection := s.store.State().Products.Featured
	body := domain.FeaturedSelection{
		Popular: nonNil(selection.Popular),
		OnSale:  nonNil(selection.OnSale),
	}

	resp, err := s.api.Authed(ctx, http.MethodPost, "featured-products", body)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		s.fail("Could not save featured products", err)
		return err
	}
	s.logger.Debug("Featured products saved",
		zap.Int("popular", len(body.Popular)),
		zap.Int("on_sale", len(body.OnSale)),
	)
	return nil
}

func decodeSelection(resp *apiclient.Response) (domain.FeaturedSelection, error) {
	var selection domain.FeaturedSelection
	if resp.Has("featured") {
		err := resp.Decode("featured", &selection)
		return selection, err
	}
	if resp.Has("popular") {
		if err := resp.Decode("popular", &selection.Popular); err != nil {
			return selection, err
		}
	}
	if resp.Has("onSale") {
		if err := resp.Decode("onSale", &selection.OnSale); err != nil {
			return selection, err
		}
	}
	return selection, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

// autosaver coalesces save requests. A new request within the window
// supersedes the pending one; writes run one at a time and each reads the
// newest state, so an older selection never lands after a newer one.
type autosaver struct {
	window time.Duration
	save   func(ctx context.Context) error
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool
	gen     uint64 // bumped by every schedule
	wg      sync.WaitGroup

	writeMu sync.Mutex
}

func newAutosaver(window time.Duration, save func(ctx context.Context) error, logger *zap.Logger) *autosaver {
	if window <= 0 {
		window = DefaultSaveWindow
	}
	return &autosaver{window: window, save: save, logger: logger}
}

func (a *autosaver) schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.gen++
	if a.closed {
		a.logger.Warn("Save requested after shutdown, ignoring")
		return
	}
	a.pending = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.window, a.fire)
}

func (a *autosaver) fire() {
	if !a.take() {
		return
	}
	defer a.wg.Done()

	a.write(context.Background())
}

// take claims the pending save. A timer that fired after being superseded
// finds nothing pending, or saves state that already includes the newer toggle.
func (a *autosaver) take() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.pending {
		return false
	}
	a.pending = false
	a.timer = nil
	a.wg.Add(1)
	return true
}

func (a *autosaver) generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

func (a *autosaver) write(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.save(ctx)
}

func (a *autosaver) flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	if !a.take() {
		// wait out a write the timer already started
		a.writeMu.Lock()
		a.writeMu.Unlock()
		return nil
	}
	defer a.wg.Done()
	return a.write(ctx)
}

func (a *autosaver) close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	err := a.flush(ctx)
	a.wg.Wait()
	return err
}
