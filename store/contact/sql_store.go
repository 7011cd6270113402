package contact

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// SQLStore implements Store using a database/sql connection.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, ownerID, contactID int) (*Link, error) {
	query := `
		SELECT id, user_id, friend_id, display_name, status
		FROM friend_list
		WHERE user_id = $1 AND friend_id = $2
	`

	row := s.db.QueryRowContext(ctx, query, ownerID, contactID)

	var l Link
	if err := row.Scan(&l.ID, &l.OwnerID, &l.ContactID, &l.DisplayName, &l.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *SQLStore) Create(ctx context.Context, l *Link) error {
	if l.Status == "" {
		l.Status = StatusActive
	}

	query := `
		INSERT INTO friend_list (user_id, friend_id, display_name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query, l.OwnerID, l.ContactID, l.DisplayName, l.Status).Scan(&l.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return ErrLinkExists
		}
		return err
	}
	return nil
}

func (s *SQLStore) ListActiveByOwner(ctx context.Context, ownerID int) ([]Link, error) {
	query := `
		SELECT id, user_id, friend_id, display_name, status
		FROM friend_list
		WHERE user_id = $1 AND status = $2
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.ContactID, &l.DisplayName, &l.Status); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
