package store

import (
	"slices"

	"minimarket/internal/domain"
)

type AdminUsersState struct {
	Items []domain.AdminUser
}

type AdminUsersLoaded struct{ Users []domain.AdminUser }

type AdminUserUpdated struct{ User domain.AdminUser }

type AdminUserStatusToggled struct{ ID int64 }

type AdminUserDeleted struct{ ID int64 }

func (AdminUsersLoaded) ActionType() string { return "adminUsers/loaded" }
func (AdminUserUpdated) ActionType() string { return "adminUsers/updated" }
func (AdminUserStatusToggled) ActionType() string { return "adminUsers/statusToggled" }
func (AdminUserDeleted) ActionType() string { return "adminUsers/deleted" }

func reduceAdminUsers(s AdminUsersState, action Action) AdminUsersState {
	switch a := action.(type) {
	case AdminUsersLoaded:
		s.Items = slices.Clone(a.Users)
		if s.Items == nil {
			s.Items = []domain.AdminUser{}
		}
	case AdminUserUpdated:
		idx := adminIndex(s.Items, a.User.ID)
		if idx < 0 {
			return s
		}
		items := slices.Clone(s.Items)
		items[idx] = a.User
		s.Items = items
	case AdminUserStatusToggled:
		idx := adminIndex(s.Items, a.ID)
		if idx < 0 {
			return s
		}
		items := slices.Clone(s.Items)
		items[idx].IsActive = !items[idx].IsActive
		s.Items = items
	case AdminUserDeleted:
		idx := adminIndex(s.Items, a.ID)
		if idx < 0 {
			return s
		}
		s.Items = slices.Delete(slices.Clone(s.Items), idx, idx+1)
	}
	return s
}

func adminIndex(users []domain.AdminUser, id int64) int {
	return slices.IndexFunc(users, func(u domain.AdminUser) bool { return u.ID == id })
}
