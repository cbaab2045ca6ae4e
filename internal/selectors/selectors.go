// Package selectors derives read-only views from store snapshots. Each
// selector recomputes only when its input slices change identity, so
// calling it repeatedly with the same snapshot is cheap and returns the
// same result.
package selectors

import (
	"slices"
	"strings"
	"sync"

	"minimarket/internal/domain"
	"minimarket/internal/store"
)

// AllCategories is the option that disables category filtering
const AllCategories = "Todos"

// Selectors holds the memoized selectors for one store
type Selectors struct {
	popular   memo[featuredKey, []domain.Product]
	onSale    memo[featuredKey, []domain.Product]
	options   memo[[]domain.Category, []string]
	cartTotal memo[[]domain.CartItem, float64]
	filtered  memo[filterKey, []domain.Product]
}

type featuredKey struct {
	products []domain.Product
	ids      []int64
}

type filterKey struct {
	products []domain.Product
	category string
	query    string
}

// New creates an empty selector cache
func New() *Selectors {
	return &Selectors{
		popular:   memo[featuredKey, []domain.Product]{equal: sameFeatured},
		onSale:    memo[featuredKey, []domain.Product]{equal: sameFeatured},
		options:   memo[[]domain.Category, []string]{equal: sameSlice[domain.Category]},
		cartTotal: memo[[]domain.CartItem, float64]{equal: sameSlice[domain.CartItem]},
		filtered: memo[filterKey, []domain.Product]{equal: func(a, b filterKey) bool {
			return sameSlice(a.products, b.products) && a.category == b.category && a.query == b.query
		}},
	}
}

// PopularProducts returns loaded products whose id is in the popular set
func (s *Selectors) PopularProducts(state store.State) []domain.Product {
	key := featuredKey{products: state.Products.Items, ids: state.Products.Featured.Popular}
	return s.popular.get(key, pickFeatured)
}

// OnSaleProducts returns loaded products whose id is in the on-sale set
func (s *Selectors) OnSaleProducts(state store.State) []domain.Product {
	key := featuredKey{products: state.Products.Items, ids: state.Products.Featured.OnSale}
	return s.onSale.get(key, pickFeatured)
}

// CategoryOptions returns "Todos" followed by the category names in
// first-seen order without duplicates
func (s *Selectors) CategoryOptions(state store.State) []string {
	return s.options.get(state.Categories.Items, func(categories []domain.Category) []string {
		out := []string{AllCategories}
		seen := map[string]bool{}
		for _, c := range categories {
			if c.Name == "" || seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			out = append(out, c.Name)
		}
		return out
	})
}

// CartTotal returns the sum of price times quantity rounded to cents
func (s *Selectors) CartTotal(state store.State) float64 {
	return s.cartTotal.get(state.Cart.Items, func(items []domain.CartItem) float64 {
		total, _ := domain.CartTotals(items)
		return total
	})
}

// FilterProducts narrows the catalog to a category (empty or "Todos" for
// all) and a case-insensitive query over name and description
func (s *Selectors) FilterProducts(state store.State, category, query string) []domain.Product {
	key := filterKey{
		products: state.Products.Items,
		category: strings.TrimSpace(category),
		query:    strings.ToLower(strings.TrimSpace(query)),
	}
	return s.filtered.get(key, func(k filterKey) []domain.Product {
		out := []domain.Product{}
		for _, p := range k.products {
			if k.category != "" && k.category != AllCategories && p.Category != k.category {
				continue
			}
			if k.query != "" &&
				!strings.Contains(strings.ToLower(p.Name), k.query) &&
				!strings.Contains(strings.ToLower(p.Description), k.query) {
				continue
			}
			out = append(out, p)
		}
		return out
	})
}

// stale ids are skipped; order follows the catalog
func pickFeatured(k featuredKey) []domain.Product {
	out := []domain.Product{}
	for _, p := range k.products {
		if slices.Contains(k.ids, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

type memo[K any, R any] struct {
	mu    sync.Mutex
	ok    bool
	key   K
	value R
	equal func(a, b K) bool
}

func (m *memo[K, R]) get(key K, compute func(K) R) R {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ok && m.equal(m.key, key) {
		return m.value
	}
	m.key = key
	m.value = compute(key)
	m.ok = true
	return m.value
}

func sameFeatured(a, b featuredKey) bool {
	return sameSlice(a.products, b.products) && sameSlice(a.ids, b.ids)
}

// sameSlice compares slice identity, not contents
func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) || cap(a) != cap(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}
