// Package sessions persists the tokens issued on login so the external
// administrative surface can inspect and revoke them.
package sessions

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	DeleteByUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}
