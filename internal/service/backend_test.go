package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"minimarket/internal/apiclient"
	"minimarket/internal/notify"
	"minimarket/internal/store"
	"minimarket/internal/tokenstore"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// fakeBackend serves the backend API from a chi router and counts calls
// per "METHOD path".
type fakeBackend struct {
	router chi.Router
	server *httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{router: chi.NewRouter(), calls: map[string]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		f.router.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBackend) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func okJSON(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// harness bundles what every coordinator needs
type harness struct {
	backend *fakeBackend
	client  *apiclient.Client
	store   *store.Store
	tokens  tokenstore.Store
	feed    *notify.Feed
	logger  *zap.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := newFakeBackend(t)
	tokens := tokenstore.NewMemory()
	logger := zap.NewNop()
	return &harness{
		backend: backend,
		client:  apiclient.New(apiclient.Options{BaseURL: backend.server.URL}, tokens, logger),
		store:   store.New(),
		tokens:  tokens,
		feed:    notify.NewFeed(100),
		logger:  logger,
	}
}

// lastNotice returns the newest notification of kind, if any
func (h *harness) lastNotice(kind notify.Kind) (notify.Notification, bool) {
	items := h.feed.Recent()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Kind == kind {
			return items[i], true
		}
	}
	return notify.Notification{}, false
}
