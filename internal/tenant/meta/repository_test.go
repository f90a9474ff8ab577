package meta

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var siteCols = []string{"id", "slug", "host", "title", "locale",
	"suspended_at", "deleted_at", "created_at", "updated_at"}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

func TestAllActive(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM   site")).
		WillReturnRows(sqlmock.NewRows(siteCols).
			AddRow(1, "acme", "acme.shop.test", "Acme", "en_US", nil, nil, now, now).
			AddRow(2, "globex", "globex.example.com", "Globex", "de_DE", nil, nil, now, now))

	recs, err := AllActive(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "acme", recs[0].Slug)
	assert.Equal(t, "globex.example.com", recs[1].Host)
	assert.Nil(t, recs[1].SuspendedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBySlug_NotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE  slug = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(siteCols))

	_, err := BySlug(context.Background(), db, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
