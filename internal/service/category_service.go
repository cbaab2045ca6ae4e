package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"minimarket/internal/apiclient"
	"minimarket/internal/domain"
	"minimarket/internal/notify"
	"minimarket/internal/store"
	"minimarket/internal/validation"

	"go.uber.org/zap"
)

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=60"`
}

type CategoryRenameInput struct {
	OldName string `json:"oldName" validate:"required"`
	NewName string `json:"newName" validate:"required,max=60,nefield=OldName"`
}

type CategoryService struct {
	base
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(api Backend, st *store.Store, notifier notify.Notifier, logger *zap.Logger) *CategoryService {
	return &CategoryService{base: newBase(api, st, notifier, logger, "categories")}
}

// GetCategories replaces the category list with the backend copy
func (s *CategoryService) GetCategories(ctx context.Context) error {
	return s.load(ctx, "categories",
		func(ctx context.Context) (*apiclient.Response, error) {
			return s.api.Public(ctx, http.MethodGet, "categories/getCategories", nil)
		},
		func(resp *apiclient.Response) error {
			var categories []domain.Category
			if err := resp.Decode("categories", &categories); err != nil {
				return err
			}
			s.store.Dispatch(store.CategoriesLoaded{Categories: categories})
			return nil
		},
	)
}

func (s *CategoryService) CreateCategory(ctx context.Context, in CategoryInput) (domain.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return domain.Category{}, s.reject("Could not create category", err)
	}

	var created domain.Category
	err := s.mutate("Creating category", "Category created", "Could not create category",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodPost, "categories/new", in)
		},
		func(resp *apiclient.Response) error {
			created = domain.Category{Name: in.Name}
			if resp.Has("category") {
				if err := resp.Decode("category", &created); err != nil {
					return err
				}
			}
			s.store.Dispatch(store.CategoryAdded{Category: created})
			return nil
		},
	)
	return created, err
}

// RenameCategory renames by matching the old name. Products are not
// rewritten locally; they pick up the new name on the next catalog load.
func (s *CategoryService) RenameCategory(ctx context.Context, in CategoryRenameInput) error {
	in.OldName = strings.TrimSpace(in.OldName)
	in.NewName = strings.TrimSpace(in.NewName)
	if err := validation.Struct(in); err != nil {
		return s.reject("Could not rename category", err)
	}

	return s.mutate("Renaming category", "Category renamed", "Could not rename category",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodPut, "categories/update", in)
		},
		func(*apiclient.Response) error {
			s.store.Dispatch(store.CategoryRenamed{OldName: in.OldName, NewName: in.NewName})
			return nil
		},
	)
}

func (s *CategoryService) DeleteCategory(ctx context.Context, name string) error {
	return s.mutate("Deleting category", "Category deleted", "Could not delete category",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodDelete, "categories/delete/"+url.PathEscape(name), nil)
		},
		func(*apiclient.Response) error {
			s.store.Dispatch(store.CategoryDeleted{Name: name})
			return nil
		},
	)
}
