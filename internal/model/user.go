package model

import "time"

// User is the authenticated actor resolved by the auth middleware. The rest
// of the platform owns registration and credentials; this service only needs
// identity and role.
type User struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"displayName"`
	Role        UserRole  `db:"role" json:"role"`
	TokenHash   string    `db:"token_hash" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
