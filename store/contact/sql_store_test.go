package contact

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linkRows(links ...*Link) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "friend_id", "display_name", "status"})
	for _, l := range links {
		rows.AddRow(l.ID, l.OwnerID, l.ContactID, l.DisplayName, l.Status)
	}
	return rows
}

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	want := &Link{ID: 1, OwnerID: 3, ContactID: 4, DisplayName: "Sam", Status: StatusActive}

	mock.ExpectQuery(`SELECT (.+) FROM friend_list\s+WHERE user_id = \$1 AND friend_id = \$2`).
		WithArgs(3, 4).
		WillReturnRows(linkRows(want))

	got, err := NewSQLStore(db).Get(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM friend_list`).
		WithArgs(3, 9).
		WillReturnRows(linkRows())

	_, err = NewSQLStore(db).Get(context.Background(), 3, 9)
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefaultsToActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO friend_list`).
		WithArgs(3, 4, "Sam", StatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

	l := &Link{OwnerID: 3, ContactID: 4, DisplayName: "Sam"}
	require.NoError(t, NewSQLStore(db).Create(context.Background(), l))
	assert.Equal(t, 8, l.ID)
	assert.Equal(t, StatusActive, l.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO friend_list`).
		WillReturnError(&pq.Error{Code: "23505"})

	l := &Link{OwnerID: 3, ContactID: 4}
	err = NewSQLStore(db).Create(context.Background(), l)
	assert.ErrorIs(t, err, ErrLinkExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a := &Link{ID: 1, OwnerID: 3, ContactID: 4, Status: StatusActive}
	b := &Link{ID: 2, OwnerID: 3, ContactID: 5, Status: StatusActive}

	mock.ExpectQuery(`SELECT (.+) FROM friend_list\s+WHERE user_id = \$1 AND status = \$2`).
		WithArgs(3, StatusActive).
		WillReturnRows(linkRows(a, b))

	links, err := NewSQLStore(db).ListActiveByOwner(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, 4, links[0].ContactID)
	assert.Equal(t, 5, links[1].ContactID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
