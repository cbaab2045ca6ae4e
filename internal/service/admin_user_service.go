package service

import (
	"context"
	"net/http"

	"minimarket/internal/apiclient"
	"minimarket/internal/domain"
	"minimarket/internal/notify"
	"minimarket/internal/store"
	"minimarket/internal/validation"

	"go.uber.org/zap"
)

// AdminUserInput is the admin account edit form. An empty password keeps
// the current one.
type AdminUserInput struct {
	ID       int64  `json:"id" validate:"required,gt=0"`
	Username string `json:"username" validate:"required,min=3,max=40"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=120"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// AdminUserService manages admin accounts. The last-admin rules are
// checked against local state before any request; the backend enforces
// them again since local state can be stale.
type AdminUserService struct {
	base
}

// NewAdminUserService creates a new AdminUserService
func NewAdminUserService(api Backend, st *store.Store, notifier notify.Notifier, logger *zap.Logger) *AdminUserService {
	return &AdminUserService{base: newBase(api, st, notifier, logger, "admin_users")}
}

func (s *AdminUserService) GetUsers(ctx context.Context) error {
	return s.load(ctx, "admin users",
		func(ctx context.Context) (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodGet, "auth/getUsers", nil)
		},
		func(resp *apiclient.Response) error {
			var users []domain.AdminUser
			if err := resp.Decode("users", &users); err != nil {
				return err
			}
			s.store.Dispatch(store.AdminUsersLoaded{Users: users})
			return nil
		},
	)
}

func (s *AdminUserService) UpdateUser(ctx context.Context, in AdminUserInput) (domain.AdminUser, error) {
	if err := validation.Struct(in); err != nil {
		return domain.AdminUser{}, s.reject("Could not update user", err)
	}

	var updated domain.AdminUser
	err := s.mutate("Updating user", "User updated", "Could not update user",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodPut, "auth/update", in)
		},
		func(resp *apiclient.Response) error {
			if resp.Has("user") {
				if err := resp.Decode("user", &updated); err != nil {
					return err
				}
			} else {
				updated = s.merged(in)
			}
			s.store.Dispatch(store.AdminUserUpdated{User: updated})
			return nil
		},
	)
	return updated, err
}

// ToggleStatus flips is_active for id, refusing to deactivate the only
// active user
func (s *AdminUserService) ToggleStatus(ctx context.Context, id int64) error {
	if err := validation.CanDeactivate(s.store.State().AdminUsers.Items, id); err != nil {
		return s.reject("Could not change user status", err)
	}

	return s.mutate("Changing user status", "User status changed", "Could not change user status",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodPut, idPath("auth/toggle-status", id), nil)
		},
		func(*apiclient.Response) error {
			s.store.Dispatch(store.AdminUserStatusToggled{ID: id})
			return nil
		},
	)
}

// DeleteUser removes id, refusing to delete the last user or the last active one
func (s *AdminUserService) DeleteUser(ctx context.Context, id int64) error {
	if err := validation.CanDelete(s.store.State().AdminUsers.Items, id); err != nil {
		return s.reject("Could not delete user", err)
	}

	return s.mutate("Deleting user", "User deleted", "Could not delete user",
		func() (*apiclient.Response, error) {
			return s.api.Authed(ctx, http.MethodDelete, idPath("auth/delete", id), nil)
		},
		func(*apiclient.Response) error {
			s.store.Dispatch(store.AdminUserDeleted{ID: id})
			return nil
		},
	)
}

func (s *AdminUserService) merged(in AdminUserInput) domain.AdminUser {
	user := domain.AdminUser{ID: in.ID, IsActive: true}
	for _, u := range s.store.State().AdminUsers.Items {
		if u.ID == in.ID {
			user = u
			break
		}
	}
	user.Username = in.Username
	user.Email = in.Email
	user.FullName = in.FullName
	return user
}
