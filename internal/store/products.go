package store

import (
	"slices"
	"time"

	"minimarket/internal/domain"
)

// ProductsState is the catalog slice. Featured holds the popular and
// on-sale selections, which may reference products no longer loaded.
type ProductsState struct {
	Items      []domain.Product
	Featured   domain.FeaturedSelection
	Loading    bool
	LastUpdate time.Time
}

type ProductsLoading struct{ Loading bool }

type ProductsLoaded struct {
	Products []domain.Product
	At       time.Time
}

type ProductAdded struct{ Product domain.Product }

type ProductUpdated struct{ Product domain.Product }

type ProductDeleted struct{ ID int64 }

type FeaturedLoaded struct{ Selection domain.FeaturedSelection }

type PopularToggled struct{ ID int64 }

type OnSaleToggled struct{ ID int64 }

func (ProductsLoading) ActionType() string { return "products/loading" }
func (ProductsLoaded) ActionType() string { return "products/loaded" }
func (ProductAdded) ActionType() string { return "products/added" }
func (ProductUpdated) ActionType() string { return "products/updated" }
func (ProductDeleted) ActionType() string { return "products/deleted" }
func (FeaturedLoaded) ActionType() string { return "products/featuredLoaded" }
func (PopularToggled) ActionType() string { return "products/popularToggled" }
func (OnSaleToggled) ActionType() string { return "products/onSaleToggled" }

func reduceProducts(s ProductsState, action Action) ProductsState {
	switch a := action.(type) {
	case ProductsLoading:
		s.Loading = a.Loading
	case ProductsLoaded:
		s.Items = slices.Clone(a.Products)
		if s.Items == nil {
			s.Items = []domain.Product{}
		}
		s.Loading = false
		s.LastUpdate = a.At
	case ProductAdded:
		s.Items = append(slices.Clone(s.Items), a.Product)
	case ProductUpdated:
		idx := slices.IndexFunc(s.Items, func(p domain.Product) bool { return p.ID == a.Product.ID })
		if idx < 0 {
			return s
		}
		items := slices.Clone(s.Items)
		items[idx] = a.Product
		s.Items = items
	case ProductDeleted:
		if !slices.ContainsFunc(s.Items, func(p domain.Product) bool { return p.ID == a.ID }) {
			return s
		}
		s.Items = slices.DeleteFunc(slices.Clone(s.Items), func(p domain.Product) bool { return p.ID == a.ID })
	case FeaturedLoaded:
		s.Featured = domain.FeaturedSelection{
			Popular: cloneIDs(a.Selection.Popular),
			OnSale:  cloneIDs(a.Selection.OnSale),
		}
	case PopularToggled:
		s.Featured.Popular = toggleID(s.Featured.Popular, a.ID)
	case OnSaleToggled:
		s.Featured.OnSale = toggleID(s.Featured.OnSale, a.ID)
	}
	return s
}

// toggleID returns a copy of ids with id removed if present, appended otherwise
func toggleID(ids []int64, id int64) []int64 {
	if slices.Contains(ids, id) {
		return slices.DeleteFunc(slices.Clone(ids), func(v int64) bool { return v == id })
	}
	return append(cloneIDs(ids), id)
}

func cloneIDs(ids []int64) []int64 {
	out := make([]int64, len(ids), len(ids)+1)
	copy(out, ids)
	return out
}
