package users

import "context"

type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Delete removes a user; the schema cascades to their messages and
	// sessions. Exposed for the external administrative surface.
	Delete(ctx context.Context, id int64) error
}
