package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"minimarket/internal/apiclient"
	"minimarket/internal/domain"
	"minimarket/internal/middleware"
	"minimarket/internal/notify"
	"minimarket/internal/service"
	"minimarket/internal/store"
	"minimarket/internal/tokenstore"
	"minimarket/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adminFixture struct {
	backend chi.Router
	calls   atomic.Int32
	store   *store.Store
	router  http.Handler
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{backend: chi.NewRouter(), store: store.New()}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.backend.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	tokens := tokenstore.NewMemory()
	client := apiclient.New(apiclient.Options{BaseURL: server.URL}, tokens, logger)
	feed := notify.NewFeed(50)
	services := AdminServices{
		Auth:       service.NewAuthService(client, f.store, tokens, feed, logger, 3, time.Minute),
		Products:   service.NewProductService(client, f.store, feed, logger, time.Minute),
		Categories: service.NewCategoryService(client, f.store, feed, logger),
		Featured:   service.NewFeaturedService(client, f.store, feed, logger, time.Hour),
		Users:      service.NewAdminUserService(client, f.store, feed, logger),
		AppConfig:  service.NewAppConfigService(client, f.store, feed, logger),
	}
	t.Cleanup(func() { _ = services.Featured.Close(context.Background()) })

	f.backend.Post("/auth", func(w http.ResponseWriter, r *http.Request) {
		var in service.LoginInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret123" {
			backendJSON(w, map[string]any{"ok": false, "msg": "Invalid credentials"})
			return
		}
		backendJSON(w, map[string]any{"ok": true, "token": "tok", "uid": 7, "name": "Ana"})
	})

	router := chi.NewRouter()
	passThrough := func(next http.Handler) http.Handler { return next }
	NewAdminHandler(services, f.store, feed, logger).
		RegisterRoutes(router, passThrough, middleware.RequireSession(f.store, logger))
	f.router = router
	return f
}

func backendJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (f *adminFixture) login(t *testing.T) {
	t.Helper()
	w := do(t, f.router, http.MethodPost, "/api/admin/login", service.LoginInput{Email: "ana@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	f := newAdminFixture(t)
	f.store.Dispatch(store.AuthLoggedOut{})

	for _, target := range []string{"/api/admin/users", "/api/admin/products", "/api/admin/notifications"} {
		w := do(t, f.router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
	assert.Zero(t, f.calls.Load())
}

func TestLoginFlow(t *testing.T) {
	f := newAdminFixture(t)
	f.store.Dispatch(store.AuthLoggedOut{})
	f.backend.Get("/auth/getUsers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("x-token"))
		backendJSON(w, map[string]any{"ok": true, "users": []domain.AdminUser{
			{ID: 7, Username: "ana", IsActive: true},
			{ID: 8, Username: "leo", IsActive: false},
		}})
	})

	w := do(t, f.router, http.MethodPost, "/api/admin/login", service.LoginInput{Email: "ana@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	session := decodeBody[SessionResponse](t, w)
	assert.True(t, session.IsLoggedIn)
	assert.Equal(t, "Ana", session.Name)
	assert.Equal(t, "7", session.UID)

	w = do(t, f.router, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[map[string][]domain.AdminUser](t, w)["users"], 2)

	w = do(t, f.router, http.MethodPost, "/api/admin/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, decodeBody[SessionResponse](t, do(t, f.router, http.MethodGet, "/api/admin/session", nil)).IsLoggedIn)
	assert.Equal(t, http.StatusUnauthorized, do(t, f.router, http.MethodGet, "/api/admin/users", nil).Code)
}

func TestLoginRejected(t *testing.T) {
	f := newAdminFixture(t)
	f.store.Dispatch(store.AuthLoggedOut{})

	w := do(t, f.router, http.MethodPost, "/api/admin/login", service.LoginInput{Email: "ana@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "The email or password is incorrect.")

	w = do(t, f.router, http.MethodPost, "/api/admin/login", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_errors")
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestToggleLastActiveUserIsRefused(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	f.store.Dispatch(store.AdminUsersLoaded{Users: []domain.AdminUser{{ID: 7, IsActive: true}, {ID: 8}}})
	before := f.calls.Load()

	w := do(t, f.router, http.MethodPut, "/api/admin/users/7/toggle-status", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, f.router, http.MethodDelete, "/api/admin/users/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, before, f.calls.Load())
}

func TestCreateProductMultipart(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	var gotImage string
	f.backend.Post("/products/new", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		file, _, err := r.FormFile("image")
		if err == nil {
			content, _ := io.ReadAll(file)
			gotImage = string(content)
		}
		backendJSON(w, map[string]any{"ok": true, "product": domain.Product{
			ID:       11,
			Name:     r.FormValue("name"),
			Category: r.FormValue("category"),
			Status:   domain.ProductStatus(r.FormValue("status")),
		}})
	})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range map[string]string{
		"name": "Cheese", "category": "Dairy", "status": "available", "price": "4.5", "stock_quantity": "3",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", "cheese.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Cheese", decodeBody[domain.Product](t, w).Name)
	assert.Equal(t, "png-bytes", gotImage)
	assert.Len(t, f.store.State().Products.Items, 1)
}

func TestCreateProductValidation(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	before := f.calls.Load()

	w := do(t, f.router, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Cheese", "category": "Dairy", "status": "discontinued",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_errors")

	w = do(t, f.router, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Cheese", "category": "Dairy", "status": "available", "stock_quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, f.calls.Load())
}

func TestFeaturedToggleAndFlush(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	var saved atomic.Int32
	f.backend.Post("/featured-products", func(w http.ResponseWriter, r *http.Request) {
		saved.Add(1)
		backendJSON(w, map[string]any{"ok": true})
	})

	w := do(t, f.router, http.MethodPost, "/api/admin/featured/popular/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{5}, decodeBody[FeaturedResponse](t, w).Popular)
	assert.Zero(t, saved.Load())

	w = do(t, f.router, http.MethodPost, "/api/admin/featured/flush", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), saved.Load())
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "stock mismatch", err: validation.ErrStockStatusMismatch, want: http.StatusBadRequest},
		{name: "last admin", err: fmt.Errorf("delete: %w", validation.ErrLastAdmin), want: http.StatusConflict},
		{name: "admin not found", err: validation.ErrAdminNotFound, want: http.StatusNotFound},
		{name: "locked", err: service.ErrLoginLocked, want: http.StatusTooManyRequests},
		{name: "timeout", err: apiclient.ErrTimeout, want: http.StatusGatewayTimeout},
		{name: "network", err: apiclient.ErrNetwork, want: http.StatusBadGateway},
		{name: "application", err: &apiclient.ApplicationError{Message: "nope"}, want: http.StatusUnprocessableEntity},
		{name: "backend unauthorized", err: &apiclient.HTTPError{Status: http.StatusUnauthorized}, want: http.StatusUnauthorized},
		{name: "backend failure", err: &apiclient.HTTPError{Status: http.StatusServiceUnavailable}, want: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestCreateProductDerivesMissingStatus(t *testing.T) {
	f := newAdminFixture(t)
	f.login(t)
	var gotStatus string
	f.backend.Post("/products/new", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		gotStatus = r.FormValue("status")
		backendJSON(w, map[string]any{"ok": true, "product": domain.Product{ID: 12, Name: r.FormValue("name")}})
	})

	w := do(t, f.router, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Honey", "category": "Pantry", "price": 6.5, "stock_quantity": 0,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, string(domain.StatusOutOfStock), gotStatus)
}

func TestActorComesFromAdmittedSession(t *testing.T) {
	st := store.New()
	st.Dispatch(store.AuthLoggedIn{UID: "7", Name: "Ana"})

	var field zap.Field
	handler := middleware.RequireSession(st, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		field = actor(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/admin/users/8", nil))

	assert.Equal(t, zap.String("actor_uid", "7"), field)
	assert.Equal(t, zap.Skip(), actor(httptest.NewRequest(http.MethodGet, "/", nil)))
}
