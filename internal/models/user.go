package models

import "time"

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account that owns subscriptions.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	SyncType  string    `json:"sync_type"` // "None", "nextcloud", ...
	SyncURL   string    `json:"sync_url,omitempty"`
	SyncToken string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may act on behalf of other users.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
