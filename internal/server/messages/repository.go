package messages

import (
	"context"
	"time"
)

// Filter narrows a history query. Nil fields are not applied;
// Limit <= 0 means no limit.
type Filter struct {
	SenderID *int64
	From     *time.Time
	To       *time.Time
	Limit    int
}

type Repository interface {
	// Create appends one message and fills in its generated fields.
	Create(ctx context.Context, m *Message) (*Message, error)

	// List returns messages matching the filter, oldest first.
	List(ctx context.Context, f Filter) ([]*Message, error)

	// Delete and DeleteBySender support the external administrative
	// surface; the chat core never removes messages.
	Delete(ctx context.Context, id int64) error
	DeleteBySender(ctx context.Context, senderID int64) (int64, error)
}
