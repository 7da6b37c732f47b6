package messages

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cipherchat/internal/common"
	"cipherchat/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, m *Message) (*Message, error) {
	query :=
		`INSERT INTO messages (sender_id, message_type, content, file_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.SenderID, string(m.Type), m.Content, m.FileName).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return m, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]*Message, error) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.SenderID != nil {
		conds = append(conds, "sender_id = "+arg(*f.SenderID))
	}
	if f.From != nil {
		conds = append(conds, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "created_at < "+arg(*f.To))
	}

	query := `SELECT id, sender_id, message_type, content, file_name, created_at, updated_at FROM messages`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []*Message
	for rows.Next() {
		m := &Message{}
		var msgType string
		var content, fileName sql.NullString

		if err := rows.Scan(&m.ID, &m.SenderID, &msgType, &content, &fileName, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}

		m.Type = Type(msgType)
		if content.Valid {
			m.Content = &content.String
		}
		if fileName.Valid {
			m.FileName = &fileName.String
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM messages WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteBySender(ctx context.Context, senderID int64) (int64, error) {
	query := `DELETE FROM messages WHERE sender_id = $1`

	res, err := r.db.ExecContext(ctx, query, senderID)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
