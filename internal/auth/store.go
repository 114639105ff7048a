package auth

import "context"

// UserStore describes the persistence operations required by the auth
// subsystem. Implementations must enforce email uniqueness atomically at
// creation so concurrent registrations with the same email cannot both
// succeed.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
