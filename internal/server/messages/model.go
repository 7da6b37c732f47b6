package messages

import "time"

// Type discriminates the persisted message kinds.
type Type string

const (
	TypeText  Type = "text"
	TypeFile  Type = "file"
	TypeImage Type = "image"
)

// Message is the durable record of one chat message. The row shape
// (id, sender_id, message_type, content, file_name, created_at, updated_at)
// is a contract with the external administrative surface; changing field
// semantics requires a migration.
//
// Content holds ciphertext for text messages and is nil for file and image
// messages, which instead reference their blob by FileName. Plaintext never
// reaches this struct on the persistence path.
type Message struct {
	ID        int64
	SenderID  int64
	Type      Type
	Content   *string
	FileName  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
