package selectors

import (
	"testing"
	"time"

	"minimarket/internal/domain"
	"minimarket/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() *store.Store {
	s := store.New()
	s.Dispatch(store.ProductsLoaded{At: time.Now(), Products: []domain.Product{
		{ID: 1, Name: "Whole Milk", Description: "1L carton", Price: 1.25, Category: "Dairy"},
		{ID: 2, Name: "Sourdough", Description: "Fresh bread", Price: 3.4, Category: "Bakery"},
		{ID: 3, Name: "Yogurt", Description: "Greek style, made with milk", Price: 0.8, Category: "Dairy"},
	}})
	s.Dispatch(store.CategoriesLoaded{Categories: []domain.Category{
		{ID: 1, Name: "Dairy"}, {ID: 2, Name: "Bakery"}, {ID: 3, Name: "Dairy"},
	}})
	s.Dispatch(store.FeaturedLoaded{Selection: domain.FeaturedSelection{
		Popular: []int64{3, 1, 42},
		OnSale:  []int64{2},
	}})
	return s
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestFeaturedSelectorsSkipStaleIDs(t *testing.T) {
	sel := New()
	state := seededStore().State()

	assert.Equal(t, []int64{1, 3}, ids(sel.PopularProducts(state)))
	assert.Equal(t, []int64{2}, ids(sel.OnSaleProducts(state)))
}

func TestSelectorsAreMemoized(t *testing.T) {
	sel := New()
	s := seededStore()
	state := s.State()

	first := sel.PopularProducts(state)
	second := sel.PopularProducts(state)
	require.NotEmpty(t, first)
	assert.Same(t, &first[0], &second[0])

	// a cart change leaves the product inputs untouched
	s.Dispatch(store.CartItemAdded{Product: state.Products.Items[0]})
	third := sel.PopularProducts(s.State())
	assert.Same(t, &first[0], &third[0])

	// toggling changes the popular set identity and forces recomputation
	s.Dispatch(store.PopularToggled{ID: 2})
	fourth := sel.PopularProducts(s.State())
	assert.Equal(t, []int64{1, 2, 3}, ids(fourth))
}

func TestCategoryOptions(t *testing.T) {
	sel := New()
	state := seededStore().State()

	assert.Equal(t, []string{"Todos", "Dairy", "Bakery"}, sel.CategoryOptions(state))
	assert.Equal(t, []string{"Todos"}, sel.CategoryOptions(store.New().State()))
}

func TestCartTotal(t *testing.T) {
	sel := New()
	s := seededStore()
	products := s.State().Products.Items

	s.Dispatch(store.CartItemAdded{Product: products[0], Quantity: 3})
	s.Dispatch(store.CartItemAdded{Product: products[2], Quantity: 1})

	assert.Equal(t, 4.55, sel.CartTotal(s.State()))
	assert.Equal(t, 0.0, sel.CartTotal(store.New().State()))
}

func TestFilterProducts(t *testing.T) {
	sel := New()
	state := seededStore().State()

	assert.Len(t, sel.FilterProducts(state, "", ""), 3)
	assert.Len(t, sel.FilterProducts(state, AllCategories, ""), 3)
	assert.Equal(t, []int64{1, 3}, ids(sel.FilterProducts(state, "Dairy", "")))
	assert.Equal(t, []int64{1, 3}, ids(sel.FilterProducts(state, "Todos", "MILK")))
	assert.Equal(t, []int64{2}, ids(sel.FilterProducts(state, "", "bread")))
	assert.Empty(t, sel.FilterProducts(state, "Bakery", "milk"))
}
