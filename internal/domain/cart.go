package domain

import "math"

// CartItem is a snapshot of a product taken when it was added to the cart
type CartItem struct {
	ProductID int64   `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
	Quantity  int     `json:"quantity"`
}

// NewCartItem snapshots p with the given quantity
func NewCartItem(p Product, quantity int) CartItem {
	return CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  quantity,
	}
}

// Subtotal returns price times quantity
func (c CartItem) Subtotal() float64 {
	return c.Price * float64(c.Quantity)
}

// RoundPrice rounds v to two decimals
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// CartTotals returns the rounded sum of subtotals and the number of units
func CartTotals(items []CartItem) (total float64, count int) {
	for _, item := range items {
		total += item.Subtotal()
		count += item.Quantity
	}
	return RoundPrice(total), count
}
