package transport

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"minimarket/internal/domain"
	"minimarket/internal/middleware"
	"minimarket/internal/notify"
	"minimarket/internal/service"
	"minimarket/internal/store"
	"minimarket/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadBytes = 8 << 20

// AdminServices groups the coordinators behind the admin console
type AdminServices struct {
	Auth       *service.AuthService
	Products   *service.ProductService
	Categories *service.CategoryService
	Featured   *service.FeaturedService
	Users      *service.AdminUserService
	AppConfig  *service.AppConfigService
}

type SessionResponse struct {
	Checking   bool   `json:"checking"`
	IsLoggedIn bool   `json:"is_logged_in"`
	UID        string `json:"uid,omitempty"`
	Name       string `json:"name,omitempty"`
}

type NotificationsResponse struct {
	Blocking      bool                  `json:"blocking"`
	Notifications []notify.Notification `json:"notifications"`
}

type FeaturedResponse struct {
	Popular []int64 `json:"popular"`
	OnSale  []int64 `json:"onSale"`
}

// AdminHandler serves the admin console: session handling and management
// of products, categories, featured lists, admin users and settings
type AdminHandler struct {
	services AdminServices
	store    *store.Store
	feed     *notify.Feed
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(services AdminServices, st *store.Store, feed *notify.Feed, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		services: services,
		store:    st,
		feed:     feed,
		logger:   logger,
	}
}

// RegisterRoutes registers the admin routes. loginLimiter wraps only the
// login route; requireSession guards everything past the session routes.
func (h *AdminHandler) RegisterRoutes(r chi.Router, loginLimiter, requireSession func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.GetSession)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/notifications", h.GetNotifications)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Post("/", h.CreateProduct)
				r.Post("/refresh", h.RefreshProducts)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeleteProduct)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Post("/", h.CreateCategory)
				r.Put("/", h.RenameCategory)
				r.Delete("/{name}", h.DeleteCategory)
			})

			r.Route("/featured", func(r chi.Router) {
				r.Get("/", h.GetFeatured)
				r.Post("/popular/{id}", h.TogglePopular)
				r.Post("/on-sale/{id}", h.ToggleOnSale)
				r.Post("/flush", h.FlushFeatured)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Put("/{id}", h.UpdateUser)
				r.Put("/{id}/toggle-status", h.ToggleUserStatus)
				r.Delete("/{id}", h.DeleteUser)
			})

			r.Put("/config", h.UpdateConfig)
		})
	})
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	if err := h.services.Auth.Login(r.Context(), req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, sessionResponse(h.store.State().Auth))
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// pending featured toggles are saved while the token is still valid
	if err := h.services.Featured.Flush(r.Context()); err != nil {
		h.logger.Warn("Featured toggles not saved before logout", zap.Error(err))
	}
	h.services.Auth.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, sessionResponse(h.store.State().Auth))
}

func (h *AdminHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, NotificationsResponse{
		Blocking:      h.feed.Blocking(),
		Notifications: h.feed.Recent(),
	})
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Products.GetProducts(r.Context(), false); err != nil {
		h.logger.Debug("Listing last loaded products", zap.Error(err))
	}
	middleware.RespondWithJSON(w, http.StatusOK, ProductsResponse{Products: nonNilProducts(h.store.State().Products.Items)})
}

func (h *AdminHandler) RefreshProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Products.GetProducts(r.Context(), true); err != nil {
		respondWithServiceError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ProductsResponse{Products: nonNilProducts(h.store.State().Products.Items)})
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, image, err := decodeProduct(r)
	if err != nil {
		h.logger.Debug("Product form rejected", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product form")
		return
	}

	product, err := h.services.Products.CreateProduct(r.Context(), in, image)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	in, image, err := decodeProduct(r)
	if err != nil {
		h.logger.Debug("Product form rejected", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product form")
		return
	}

	product, err := h.services.Products.UpdateProduct(r.Context(), id, in, image)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.services.Products.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Categories.GetCategories(r.Context()); err != nil {
		h.logger.Debug("Listing last loaded categories", zap.Error(err))
	}
	categories := h.store.State().Categories.Items
	if categories == nil {
		categories = []domain.Category{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string][]domain.Category{"categories": categories})
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	category, err := h.services.Categories.CreateCategory(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *AdminHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryRenameInput
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	if err := h.services.Categories.RenameCategory(r.Context(), req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "category name required")
		return
	}
	if err := h.services.Categories.DeleteCategory(r.Context(), name); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Featured.LoadAdmin(r.Context()); err != nil {
		h.logger.Debug("Serving last loaded featured lists", zap.Error(err))
	}
	h.respondWithFeatured(w)
}

// TogglePopular applies at once; the save happens in the background
func (h *AdminHandler) TogglePopular(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	h.services.Featured.TogglePopular(id)
	h.respondWithFeatured(w)
}

func (h *AdminHandler) ToggleOnSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	h.services.Featured.ToggleOnSale(id)
	h.respondWithFeatured(w)
}

func (h *AdminHandler) FlushFeatured(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Featured.Flush(r.Context()); err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.respondWithFeatured(w)
}

func (h *AdminHandler) respondWithFeatured(w http.ResponseWriter) {
	featured := h.store.State().Products.Featured
	middleware.RespondWithJSON(w, http.StatusOK, FeaturedResponse{
		Popular: nonNilIDs(featured.Popular),
		OnSale:  nonNilIDs(featured.OnSale),
	})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Users.GetUsers(r.Context()); err != nil {
		respondWithServiceError(w, err)
		return
	}
	users := h.store.State().AdminUsers.Items
	if users == nil {
		users = []domain.AdminUser{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string][]domain.AdminUser{"users": users})
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req service.AdminUserInput
	req.ID = id
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}
	req.ID = id

	user, err := h.services.Users.UpdateUser(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.logger.Info("Admin user updated", zap.Int64("user_id", id), actor(r))
	middleware.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.services.Users.ToggleStatus(r.Context(), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.logger.Info("Admin user status changed", zap.Int64("user_id", id), actor(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.services.Users.DeleteUser(r.Context(), id); err != nil {
		respondWithServiceError(w, err)
		return
	}
	h.logger.Info("Admin user deleted", zap.Int64("user_id", id), actor(r))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req service.AppConfigInput
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	cfg, err := h.services.AppConfig.Update(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, cfg)
}

// decodeProduct accepts either a multipart form, optionally carrying an
// "image" file, or a JSON body. A missing status follows the stock; field
// validation is left to the coordinator.
func decodeProduct(r *http.Request) (service.ProductInput, *service.Image, error) {
	in, image, err := readProduct(r)
	if err == nil && in.Status == "" {
		in.Status = validation.StatusForStock(in.StockQuantity)
	}
	return in, image, err
}

func readProduct(r *http.Request) (service.ProductInput, *service.Image, error) {
	var in service.ProductInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		err := middleware.DecodeAndValidate(r, &in)
		if _, isField := fieldErrorsOnly(err); isField {
			err = nil
		}
		return in, nil, err
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return in, nil, err
	}

	var err error
	in.Name = r.FormValue("name")
	in.Description = r.FormValue("description")
	in.Category = r.FormValue("category")
	in.Status = domain.ProductStatus(r.FormValue("status"))
	in.ImageURL = r.FormValue("image_url")
	if in.Price, err = strconv.ParseFloat(r.FormValue("price"), 64); err != nil {
		return in, nil, err
	}
	if in.StockQuantity, err = strconv.Atoi(r.FormValue("stock_quantity")); err != nil {
		return in, nil, err
	}

	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, err
	}
	defer file.Close()

	// file is closed on return, so the upload is buffered
	content, err := io.ReadAll(file)
	if err != nil {
		return in, nil, err
	}
	return in, &service.Image{Filename: header.Filename, Content: bytes.NewReader(content)}, nil
}

func fieldErrorsOnly(err error) ([]middleware.ValidationError, bool) {
	if err == nil {
		return nil, false
	}
	fieldErrs := middleware.FormatValidationErrors(err)
	return fieldErrs, len(fieldErrs) > 0
}

// actor names the admin behind a request admitted by RequireSession
func actor(r *http.Request) zap.Field {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		return zap.Skip()
	}
	return zap.String("actor_uid", session.UID)
}

func sessionResponse(auth store.AuthState) SessionResponse {
	return SessionResponse{
		Checking:   auth.Checking,
		IsLoggedIn: auth.IsLoggedIn,
		UID:        auth.UID,
		Name:       auth.Name,
	}
}

func nonNilProducts(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
