package store

import (
	"slices"

	"minimarket/internal/domain"
)

// CartState is the shopping cart. Total and ItemsCount are derived from
// Items after every change and cannot be set directly.
type CartState struct {
	Items      []domain.CartItem
	Total      float64
	ItemsCount int
}

// CartItemAdded adds Quantity units of Product, merging with an existing
// entry. A non-positive Quantity counts as one unit.
type CartItemAdded struct {
	Product  domain.Product
	Quantity int
}

type CartItemDecremented struct{ ProductID int64 }

type CartItemRemoved struct{ ProductID int64 }

// CartQuantityUpdated sets the quantity of an item; zero or less removes it
type CartQuantityUpdated struct {
	ProductID int64
	Quantity  int
}

type CartCleared struct{}

func (CartItemAdded) ActionType() string { return "cart/itemAdded" }
func (CartItemDecremented) ActionType() string { return "cart/itemDecremented" }
func (CartItemRemoved) ActionType() string { return "cart/itemRemoved" }
func (CartQuantityUpdated) ActionType() string { return "cart/quantityUpdated" }
func (CartCleared) ActionType() string { return "cart/cleared" }

func reduceCart(s CartState, action Action) CartState {
	switch a := action.(type) {
	case CartItemAdded:
		qty := max(a.Quantity, 1)
		items := slices.Clone(s.Items)
		if idx := cartIndex(items, a.Product.ID); idx >= 0 {
			items[idx].Quantity += qty
		} else {
			items = append(items, domain.NewCartItem(a.Product, qty))
		}
		return withTotals(items)
	case CartItemDecremented:
		idx := cartIndex(s.Items, a.ProductID)
		if idx < 0 {
			return s
		}
		return withTotals(setQuantity(s.Items, idx, s.Items[idx].Quantity-1))
	case CartItemRemoved:
		idx := cartIndex(s.Items, a.ProductID)
		if idx < 0 {
			return s
		}
		return withTotals(setQuantity(s.Items, idx, 0))
	case CartQuantityUpdated:
		idx := cartIndex(s.Items, a.ProductID)
		if idx < 0 {
			return s
		}
		return withTotals(setQuantity(s.Items, idx, a.Quantity))
	case CartCleared:
		return withTotals([]domain.CartItem{})
	}
	return s
}

func cartIndex(items []domain.CartItem, productID int64) int {
	return slices.IndexFunc(items, func(c domain.CartItem) bool { return c.ProductID == productID })
}

// setQuantity returns a copy of items with items[idx] set to qty, dropping
// the entry when qty falls to zero or below
func setQuantity(items []domain.CartItem, idx, qty int) []domain.CartItem {
	out := slices.Clone(items)
	if qty <= 0 {
		return slices.Delete(out, idx, idx+1)
	}
	out[idx].Quantity = qty
	return out
}

func withTotals(items []domain.CartItem) CartState {
	total, count := domain.CartTotals(items)
	return CartState{Items: items, Total: total, ItemsCount: count}
}
