package store

import (
	"slices"

	"minimarket/internal/domain"
)

type CategoriesState struct {
	Items []domain.Category
}

type CategoriesLoaded struct{ Categories []domain.Category }

type CategoryAdded struct{ Category domain.Category }

// CategoryRenamed renames by matching the old name. Products carrying the
// old name keep it until the catalog is reloaded.
type CategoryRenamed struct {
	OldName string
	NewName string
}

type CategoryDeleted struct{ Name string }

func (CategoriesLoaded) ActionType() string { return "categories/loaded" }
func (CategoryAdded) ActionType() string { return "categories/added" }
func (CategoryRenamed) ActionType() string { return "categories/renamed" }
func (CategoryDeleted) ActionType() string { return "categories/deleted" }

func reduceCategories(s CategoriesState, action Action) CategoriesState {
	switch a := action.(type) {
	case CategoriesLoaded:
		s.Items = slices.Clone(a.Categories)
		if s.Items == nil {
			s.Items = []domain.Category{}
		}
	case CategoryAdded:
		s.Items = append(slices.Clone(s.Items), a.Category)
	case CategoryRenamed:
		if !slices.ContainsFunc(s.Items, func(c domain.Category) bool { return c.Name == a.OldName }) {
			return s
		}
		items := slices.Clone(s.Items)
		for i := range items {
			if items[i].Name == a.OldName {
				items[i].Name = a.NewName
			}
		}
		s.Items = items
	case CategoryDeleted:
		if !slices.ContainsFunc(s.Items, func(c domain.Category) bool { return c.Name == a.Name }) {
			return s
		}
		s.Items = slices.DeleteFunc(slices.Clone(s.Items), func(c domain.Category) bool { return c.Name == a.Name })
	}
	return s
}
