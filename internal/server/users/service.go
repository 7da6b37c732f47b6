package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cipherchat/internal/common"
	"cipherchat/internal/server/auth"
	"cipherchat/internal/server/sessions"
)

// Service implements the account side of the login flow: credential
// verification and session-token issuance. A failed login never reveals
// whether the username or the password was wrong.
type Service struct {
	repo          Repository
	sessionRepo   sessions.Repository
	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewService(repo Repository, sessionRepo sessions.Repository, jwtSecret string, tokenValidity time.Duration) *Service {
	return &Service{
		repo:          repo,
		sessionRepo:   sessionRepo,
		jwtSecret:     []byte(jwtSecret),
		tokenValidity: tokenValidity,
	}
}

// Authenticate verifies username/password against the stored bcrypt hash.
// On success it issues a signed session token, records it, and returns the
// user. Unknown user and wrong password both come back as
// common.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Burn a comparison anyway so missing users cost the same
			// as wrong passwords.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, "", common.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", common.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	if err := s.sessionRepo.Create(ctx, user.ID, token, time.Now().Add(s.tokenValidity)); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	return user, token, nil
}

// Register creates a user with a bcrypt-hashed password. Used by the
// out-of-band provisioning tool, never by the chat core.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Delete removes a user; messages and sessions follow via the schema's
// cascade. Admin path only.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	return s.repo.Delete(ctx, userID)
}

// dummyHash is a valid bcrypt hash of an unguessable random string, used to
// equalize timing when the username does not exist.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
