package domain

import "time"

// AdminUser is an account allowed into the admin console
type AdminUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the persisted client credential. It never enters the store.
type Session struct {
	Token    string    `json:"token" yaml:"token"`
	IssuedAt time.Time `json:"token_init_date" yaml:"token_init_date"`
}

// Empty reports whether no token is held
func (s Session) Empty() bool {
	return s.Token == ""
}
