package messages

import (
	"context"
	"fmt"
	"time"
)

// Service is the persistence adapter used by the frame handler. Writes are
// append-only and carry no internal retry: a storage failure propagates to
// the caller, which notifies the originating client instead of aborting the
// connection.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SaveText stores one text message. The body must already be ciphertext;
// only ciphertext crosses the persistence boundary.
func (s *Service) SaveText(ctx context.Context, senderID int64, ciphertext string) (*Message, error) {
	m := &Message{
		SenderID: senderID,
		Type:     TypeText,
		Content:  &ciphertext,
	}
	if _, err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("store text message: %w", err)
	}
	return m, nil
}

// SaveAttachment stores the row for a file or image message. The blob itself
// lives in the blob store; the row references it by name.
func (s *Service) SaveAttachment(ctx context.Context, senderID int64, kind Type, fileName string) (*Message, error) {
	if kind != TypeFile && kind != TypeImage {
		return nil, fmt.Errorf("attachment kind %q is not file or image", kind)
	}

	m := &Message{
		SenderID: senderID,
		Type:     kind,
		FileName: &fileName,
	}
	if _, err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("store %s message: %w", kind, err)
	}
	return m, nil
}

// BySender returns a sender's messages, oldest first.
func (s *Service) BySender(ctx context.Context, senderID int64, limit int) ([]*Message, error) {
	return s.repo.List(ctx, Filter{SenderID: &senderID, Limit: limit})
}

// Between returns all messages created in [from, to), oldest first.
func (s *Service) Between(ctx context.Context, from, to time.Time) ([]*Message, error) {
	return s.repo.List(ctx, Filter{From: &from, To: &to})
}

// Delete removes a single message. Admin path only.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// DeleteBySender removes all messages of one sender. Admin path only.
func (s *Service) DeleteBySender(ctx context.Context, senderID int64) (int64, error) {
	return s.repo.DeleteBySender(ctx, senderID)
}
