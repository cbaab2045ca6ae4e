package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"minimarket/internal/apiclient"
	"minimarket/internal/domain"
	"minimarket/internal/notify"
	"minimarket/internal/store"
	"minimarket/internal/validation"

	"go.uber.org/zap"
)

// DefaultFreshness is how long a successful catalog load is considered current
const DefaultFreshness = 10 * time.Second

// ProductInput is the admin edit form for a product
type ProductInput struct {
	Name          string               `json:"name" validate:"required,max=120"`
	Description   string               `json:"description" validate:"max=2000"`
	Price         float64              `json:"price" validate:"gte=0"`
	Category      string               `json:"category" validate:"required"`
	Status        domain.ProductStatus `json:"status" validate:"required,product_status"`
	StockQuantity int                  `json:"stock_quantity" validate:"gte=0"`
	ImageURL      string               `json:"image_url" validate:"omitempty,url"`
}

// Image is an optional picture uploaded with a product
type Image struct {
	Filename string
	Content  io.Reader
}

// ProductService coordinates catalog loads and product mutations.
//
// Every load takes a sequence number and every mutation advances it; a
// load whose number is no longer the latest is discarded, so a slow poll
// can never overwrite a product that was just saved.
type ProductService struct {
	base
	freshness time.Duration
	now       func() time.Time

	gate     sync.Mutex
	inflight int
	seq      atomic.Uint64
}

// NewProductService creates a new ProductService
func NewProductService(api Backend, st *store.Store, notifier notify.Notifier, logger *zap.Logger, freshness time.Duration) *ProductService {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &ProductService{
		base:      newBase(api, st, notifier, logger, "products"),
		freshness: freshness,
		now:       time.Now,
	}
}

// GetProducts reloads the catalog. Without force the call is skipped when
// the last load is younger than the freshness window or a load is running.
func (s *ProductService) GetProducts(ctx context.Context, force bool) error {
	s.gate.Lock()
	state := s.store.State().Products
	if !force {
		if s.inflight > 0 {
			s.gate.Unlock()
			return nil
		}
		if !state.LastUpdate.IsZero() && s.now().Sub(state.LastUpdate) < s.freshness {
			s.gate.Unlock()
			s.logger.Debug("Catalog is fresh, skipping load", zap.Time("last_update", state.LastUpdate))
			return nil
		}
	}
	s.inflight++
	seq := s.seq.Add(1)
	s.gate.Unlock()

	s.store.Dispatch(store.ProductsLoading{Loading: true})

	var products []domain.Product
	err := s.load(ctx, "products",
		func(ctx context.Context) (*apiclient.Response, error) {
			return s.api.Public(ctx, http.MethodGet, "products/getProducts", nil)
		},
		func(resp *apiclient.Response) error {
			return resp.Decode("products", &products)
		},
	)

	s.gate.Lock()
	s.inflight--
	idle := s.inflight == 0
	stale := seq != s.seq.Load()
	s.gate.Unlock()

	if err != nil || stale {
		if stale {
			s.logger.Debug("Discarding superseded catalog load", zap.Uint64("seq", seq))
		}
		if idle {
			s.store.Dispatch(store.ProductsLoading{Loading: false})
		}
		return err
	}

	s.store.Dispatch(store.ProductsLoaded{Products: products, At: s.now()})
	s.logger.Debug("Catalog loaded", zap.Int("count", len(products)), zap.Uint64("seq", seq))
	return nil
}

// fence invalidates every load started before now
func (s *ProductService) fence() {
	s.seq.Add(1)
}

// CreateProduct validates in and inserts it through the backend
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput, image *Image) (domain.Product, error) {
	if err := checkProduct(in); err != nil {
		return domain.Product{}, s.reject("Could not create product", err)
	}

	var created domain.Product
	err := s.mutate("Creating product", "Product created", "Could not create product",
		func() (*apiclient.Response, error) {
			return s.api.Form(ctx, http.MethodPost, "products/new", productForm(in, image))
		},
		func(resp *apiclient.Response) error {
			p, err := productFromResponse(resp, in, 0)
			if err != nil {
				return err
			}
			created = p
			s.fence()
			s.store.Dispatch(store.ProductAdded{Product: p})
			return nil
		},
	)
	if err != nil {
		return domain.Product{}, err
	}
	return created, nil
}

// UpdateProduct replaces product id and then forces a catalog refresh so
// the view converges on the backend copy
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, in ProductInput, image *Image) (domain.Product, error) {
	if err := checkProduct(in); err != nil {
		return domain.Product{}, s.reject("Could not update product", err)
	}

	var updated domain.Product
	err := s.mutate("Updating product", "Product updated", "Could not update product",
		func() (*apiclient.Response, error) {
			return s.api.Form(ctx, http.MethodPut, idPath("products/update", id), productForm(in, image))
		},
		func(resp *apiclient.Response) error {
			p, err := productFromResponse(resp, in, id)
			if err != nil {
				return err
			}
			updated = p
			s.fence()
			s.store.Dispatch(store.ProductUpdated{Product: p})
			return nil
		},
	)
	if err != nil {
		return domain.Product{}, err
	}

	// refresh failures are already logged; the local update stands
	_ = s.GetProducts(ctx, true)
	return updated, nil
}

// DeleteProduct removes product id
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	return s.mutate("Deleting product", "Product deleted", "Could not delete product",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodDelete, idPath("products/delete", id), nil)
		},
		func(*apiclient.Response) error {
			s.fence()
			s.store.Dispatch(store.ProductDeleted{ID: id})
			return nil
		},
	)
}

func checkProduct(in ProductInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	return validation.CheckStockStatus(in.Status, in.StockQuantity)
}

func productForm(in ProductInput, image *Image) *apiclient.Form {
	form := &apiclient.Form{Fields: map[string]string{
		"name":           in.Name,
		"description":    in.Description,
		"price":          strconv.FormatFloat(in.Price, 'f', 2, 64),
		"category":       in.Category,
		"status":         string(in.Status),
		"stock_quantity": strconv.Itoa(in.StockQuantity),
	}}
	if image != nil && image.Content != nil {
		form.Files = []apiclient.FormFile{{Field: "image", Filename: image.Filename, Content: image.Content}}
	} else if in.ImageURL != "" {
		form.Fields["image_url"] = in.ImageURL
	}
	return form
}

// productFromResponse prefers the backend copy and falls back to the input
func productFromResponse(resp *apiclient.Response, in ProductInput, id int64) (domain.Product, error) {
	if resp.Has("product") {
		var p domain.Product
		if err := resp.Decode("product", &p); err != nil {
			return domain.Product{}, err
		}
		return p, nil
	}
	if id == 0 {
		return domain.Product{}, fmt.Errorf("%w: created product missing from response", apiclient.ErrMalformedResponse)
	}
	return domain.Product{
		ID:            id,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Category:      in.Category,
		Status:        in.Status,
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
	}, nil
}
