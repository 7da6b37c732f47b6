package users

import "time"

// User is the persisted account record. Accounts are created out-of-band
// (cmd/userctl); the chat core only ever reads them during login.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
