package message

import (
	"context"
	"database/sql"
	"time"
)

// SQLStore implements Store using a database/sql connection.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const messageColumns = `id, from_user, to_user, message, files, status, created_at, updated_at`

func (s *SQLStore) Create(ctx context.Context, m *Message) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	m.Status = StatusSent

	query := `
		INSERT INTO messages (from_user, to_user, message, files, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return s.db.QueryRowContext(ctx, query,
		m.FromID, m.ToID, m.Text, m.Files, m.Status, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
}

func (s *SQLStore) HistoryBetween(ctx context.Context, userID, friendID int) ([]Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (from_user = $1 AND to_user = $2)
			OR (from_user = $2 AND to_user = $1)
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, friendID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (s *SQLStore) MarkRead(ctx context.Context, fromID, toID int) (int, error) {
	query := `
		UPDATE messages
		SET status = $1, updated_at = $2
		WHERE from_user = $3 AND to_user = $4 AND status <> $1
	`

	res, err := s.db.ExecContext(ctx, query, StatusRead, time.Now(), fromID, toID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLStore) MarkDelivered(ctx context.Context, fromID, toID int) (int, error) {
	query := `
		UPDATE messages
		SET status = $1, updated_at = $2
		WHERE from_user = $3 AND to_user = $4 AND status = $5
	`

	res, err := s.db.ExecContext(ctx, query, StatusDelivered, time.Now(), fromID, toID, StatusSent)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLStore) Partners(ctx context.Context, userID int) ([]int, error) {
	// Two passes so the result keeps discovery order: users that messaged
	// this user first, then users this user messaged.
	fromQuery := `SELECT DISTINCT from_user FROM messages WHERE to_user = $1 ORDER BY from_user`
	toQuery := `SELECT DISTINCT to_user FROM messages WHERE from_user = $1 ORDER BY to_user`

	seen := make(map[int]bool)
	var partners []int

	for _, query := range []string{fromQuery, toQuery} {
		rows, err := s.db.QueryContext(ctx, query, userID)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[id] {
				seen[id] = true
				partners = append(partners, id)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	return partners, nil
}

func (s *SQLStore) LatestBetween(ctx context.Context, userID, partnerID int) (*Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (from_user = $1 AND to_user = $2)
			OR (from_user = $2 AND to_user = $1)
		ORDER BY updated_at DESC
		LIMIT 1
	`

	row := s.db.QueryRowContext(ctx, query, userID, partnerID)

	var m Message
	err := row.Scan(&m.ID, &m.FromID, &m.ToID, &m.Text, &m.Files, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *SQLStore) UnreadCount(ctx context.Context, userID, partnerID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE from_user = $1 AND to_user = $2 AND status <> $3
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, partnerID, userID, StatusRead).Scan(&count)
	return count, err
}

func collectMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.Text, &m.Files, &m.Status,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
