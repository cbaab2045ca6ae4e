package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"minimarket/internal/deeplink"
	"minimarket/internal/domain"
	"minimarket/internal/middleware"
	"minimarket/internal/selectors"
	"minimarket/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogLoader refreshes the catalog, honoring its freshness window unless forced
type CatalogLoader interface {
	GetProducts(ctx context.Context, force bool) error
}

type CatalogResponse struct {
	Products   []domain.Product `json:"products"`
	Categories []string         `json:"categories"`
	Loading    bool             `json:"loading"`
	LastUpdate *time.Time       `json:"last_update,omitempty"`
}

type ProductsResponse struct {
	Products []domain.Product `json:"products"`
}

type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	Total      float64           `json:"total"`
	ItemsCount int               `json:"items_count"`
}

type LinkResponse struct {
	URL string `json:"url"`
}

// maxCartQuantity caps the units of one product in the cart
const maxCartQuantity = 99

type AddToCartRequest struct {
	ProductID int64 `json:"id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

// UpdateCartRequest sets an item's quantity; an explicit 0 removes it
type UpdateCartRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}

// StorefrontHandler serves the anonymous shopper views: catalog browsing,
// featured lists, the cart and contact links
type StorefrontHandler struct {
	store     *store.Store
	selectors *selectors.Selectors
	catalog   CatalogLoader
	logger    *zap.Logger
}

// NewStorefrontHandler creates a new StorefrontHandler
func NewStorefrontHandler(st *store.Store, sel *selectors.Selectors, catalog CatalogLoader, logger *zap.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		store:     st,
		selectors: sel,
		catalog:   catalog,
		logger:    logger,
	}
}

func (h *StorefrontHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GetConfig)

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/", h.GetCatalog)
		r.Get("/popular", h.GetPopular)
		r.Get("/on-sale", h.GetOnSale)
		r.Get("/categories", h.GetCategories)
		r.Get("/products/{id}/inquiry", h.GetInquiryLink)
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Get("/checkout", h.GetCheckoutLink)
		r.Post("/items", h.AddToCart)
		r.Put("/items/{id}", h.UpdateCartItem)
		r.Post("/items/{id}/decrement", h.DecrementCartItem)
		r.Delete("/items/{id}", h.RemoveCartItem)
	})
}

// GetCatalog returns the filtered catalog. A stale catalog is refreshed
// first; when that fails the last loaded copy is served.
func (h *StorefrontHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.GetProducts(r.Context(), false); err != nil {
		h.logger.Debug("Serving last loaded catalog", zap.Error(err))
	}

	state := h.store.State()
	resp := CatalogResponse{
		Products:   h.selectors.FilterProducts(state, r.URL.Query().Get("category"), r.URL.Query().Get("q")),
		Categories: h.selectors.CategoryOptions(state),
		Loading:    state.Products.Loading,
	}
	if !state.Products.LastUpdate.IsZero() {
		last := state.Products.LastUpdate
		resp.LastUpdate = &last
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *StorefrontHandler) GetPopular(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, ProductsResponse{Products: h.selectors.PopularProducts(h.store.State())})
}

func (h *StorefrontHandler) GetOnSale(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, ProductsResponse{Products: h.selectors.OnSaleProducts(h.store.State())})
}

func (h *StorefrontHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, map[string][]string{
		"categories": h.selectors.CategoryOptions(h.store.State()),
	})
}

func (h *StorefrontHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.store.State().AppConfig.Config)
}

// GetInquiryLink returns the messaging link asking about one product
func (h *StorefrontHandler) GetInquiryLink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	state := h.store.State()
	product, found := findProduct(state.Products.Items, id)
	if !found {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	link, err := deeplink.ProductInquiry(state.AppConfig.Config.WhatsappNumber, product)
	if err != nil {
		h.respondWithLinkError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, LinkResponse{URL: link})
}

func (h *StorefrontHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(h.store.State().Cart))
}

// AddToCart snapshots a catalog product into the cart
func (h *StorefrontHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))
		respondWithDecodeError(w, err)
		return
	}

	product, found := findProduct(h.store.State().Products.Items, req.ProductID)
	if !found {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}
	if product.Status == domain.StatusOutOfStock {
		middleware.RespondWithError(w, http.StatusConflict, "product is out of stock")
		return
	}

	quantity := max(req.Quantity, 1)
	inCart := cartQuantity(h.store.State().Cart.Items, product.ID)
	if inCart >= maxCartQuantity {
		middleware.RespondWithError(w, http.StatusConflict, "quantity limit reached")
		return
	}
	quantity = min(quantity, maxCartQuantity-inCart)

	state := h.store.Dispatch(store.CartItemAdded{Product: product, Quantity: quantity})
	h.logger.Debug("Cart item added", zap.Int64("product_id", product.ID), zap.Int("items", state.Cart.ItemsCount))
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(state.Cart))
}

// UpdateCartItem sets an item's quantity; zero removes it
func (h *StorefrontHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartItemID(w, r)
	if !ok {
		return
	}

	var req UpdateCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	state := h.store.Dispatch(store.CartQuantityUpdated{ProductID: id, Quantity: *req.Quantity})
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(state.Cart))
}

func (h *StorefrontHandler) DecrementCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartItemID(w, r)
	if !ok {
		return
	}
	state := h.store.Dispatch(store.CartItemDecremented{ProductID: id})
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(state.Cart))
}

func (h *StorefrontHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.cartItemID(w, r)
	if !ok {
		return
	}
	state := h.store.Dispatch(store.CartItemRemoved{ProductID: id})
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(state.Cart))
}

func (h *StorefrontHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	state := h.store.Dispatch(store.CartCleared{})
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(state.Cart))
}

// GetCheckoutLink returns the messaging link carrying the whole cart as an order
func (h *StorefrontHandler) GetCheckoutLink(w http.ResponseWriter, r *http.Request) {
	state := h.store.State()
	link, err := deeplink.CartCheckout(state.AppConfig.Config.WhatsappNumber, state.Cart.Items, h.selectors.CartTotal(state))
	if err != nil {
		h.respondWithLinkError(w, err)
		return
	}

	h.logger.Info("Checkout link created",
		zap.Int("items", state.Cart.ItemsCount),
		zap.Float64("total", state.Cart.Total),
	)
	middleware.RespondWithJSON(w, http.StatusOK, LinkResponse{URL: link})
}

// cartItemID reads the id and checks the item is in the cart
func (h *StorefrontHandler) cartItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	for _, item := range h.store.State().Cart.Items {
		if item.ProductID == id {
			return id, true
		}
	}
	middleware.RespondWithError(w, http.StatusNotFound, "item not in cart")
	return 0, false
}

func (h *StorefrontHandler) respondWithLinkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, deeplink.ErrEmptyCart):
		middleware.RespondWithError(w, http.StatusConflict, "the cart is empty")
	case errors.Is(err, deeplink.ErrNoPhone):
		h.logger.Warn("Contact link requested without a configured number")
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "contact number not configured")
	default:
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build link")
	}
}

func cartResponse(cart store.CartState) CartResponse {
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartResponse{Items: items, Total: cart.Total, ItemsCount: cart.ItemsCount}
}

func cartQuantity(items []domain.CartItem, productID int64) int {
	for _, item := range items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

func findProduct(products []domain.Product, id int64) (domain.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}
