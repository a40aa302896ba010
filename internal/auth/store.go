package auth

import "context"

// UserStore persists users. Find and FindByEmail return an apperr NotFound
// error when no row matches; Create assigns ID and reports a duplicate email
// as Conflict.
type UserStore interface {
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
}
