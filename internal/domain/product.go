package domain

// ProductStatus is the availability flag shown on the storefront
type ProductStatus string

const (
	StatusAvailable  ProductStatus = "available"
	StatusOutOfStock ProductStatus = "outOfStock"
)

// Product represents a product in the catalog
type Product struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Price         float64       `json:"price"`
	Category      string        `json:"category"`
	Status        ProductStatus `json:"status"`
	StockQuantity int           `json:"stock_quantity"`
	ImageURL      string        `json:"image_url"`
}

// Category represents a product category. The name is its identity on the
// storefront; ID is the backend key.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FeaturedSelection holds the product ids highlighted on the storefront.
// Ids of deleted products may linger until the next save.
type FeaturedSelection struct {
	Popular []int64 `json:"popular"`
	OnSale  []int64 `json:"onSale"`
}
