// Package validation holds the invariant checks applied before a mutation
// is sent to the backend. They are plain functions so coordinators, view
// handlers and tests all share the same rules.
package validation

import (
	"errors"
	"fmt"

	"minimarket/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	ErrStockStatusMismatch = errors.New("status must be outOfStock exactly when stock is zero")
	ErrNegativeStock       = errors.New("stock quantity cannot be negative")
	ErrLastActiveAdmin     = errors.New("at least one admin user must remain active")
	ErrLastAdmin           = errors.New("the last admin user cannot be deleted")
	ErrAdminNotFound       = errors.New("admin user not found")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("theme", func(fl validator.FieldLevel) bool {
		return domain.Theme(fl.Field().String()).Valid()
	})
	v.RegisterValidation("product_status", func(fl validator.FieldLevel) bool {
		switch domain.ProductStatus(fl.Field().String()) {
		case domain.StatusAvailable, domain.StatusOutOfStock:
			return true
		}
		return false
	})
	return v
}

// Struct validates v against its `validate` tags
func Struct(v any) error {
	return validate.Struct(v)
}

// FieldErrors returns the validator field errors carried by err, if any
func FieldErrors(err error) (validator.ValidationErrors, bool) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs, true
	}
	return nil, false
}

// CheckStockStatus enforces status == outOfStock <=> stock == 0
func CheckStockStatus(status domain.ProductStatus, stock int) error {
	if stock < 0 {
		return ErrNegativeStock
	}
	if (status == domain.StatusOutOfStock) != (stock == 0) {
		return fmt.Errorf("%w (status %s, stock %d)", ErrStockStatusMismatch, status, stock)
	}
	return nil
}

// StatusForStock is the status an edit form should select for stock
func StatusForStock(stock int) domain.ProductStatus {
	if stock <= 0 {
		return domain.StatusOutOfStock
	}
	return domain.StatusAvailable
}

// CanDeactivate rejects deactivating the only active admin. Reactivating,
// or toggling a user missing from users, is left to the backend.
func CanDeactivate(users []domain.AdminUser, id int64) error {
	target, ok := findAdmin(users, id)
	if !ok {
		return nil
	}
	if target.IsActive && countActive(users) <= 1 {
		return ErrLastActiveAdmin
	}
	return nil
}

// CanDelete rejects deleting the last admin, or the last active one
func CanDelete(users []domain.AdminUser, id int64) error {
	target, ok := findAdmin(users, id)
	if !ok {
		return ErrAdminNotFound
	}
	if len(users) <= 1 {
		return ErrLastAdmin
	}
	if target.IsActive && countActive(users) <= 1 {
		return ErrLastActiveAdmin
	}
	return nil
}

func findAdmin(users []domain.AdminUser, id int64) (domain.AdminUser, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.AdminUser{}, false
}

func countActive(users []domain.AdminUser) int {
	n := 0
	for _, u := range users {
		if u.IsActive {
			n++
		}
	}
	return n
}
