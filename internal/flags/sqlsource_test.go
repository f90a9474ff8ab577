package flags

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flagCols = []string{"name", "kind", "enabled", "percentage", "principals",
	"roles", "tenants", "environments", "rule", "variant"}

func newMockSource(t *testing.T) (*SQLSource, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewSQLSource(sqlx.NewDb(raw, "mysql"), nil), mock
}

func TestSQLSource_Load(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM   feature_flag")).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(flagCols).
			AddRow("betaCheckout", "targeted", false, 25.0, "u-1, u-2", "customer,admin", "", "", "", "").
			AddRow("broken", "lottery", false, 0.0, "", "", "", "", "", "").
			AddRow("newNav", "boolean", true, 0.0, "", "", "", "", "", "v2"))

	defs, err := src.Load(context.Background(), "ACME")
	require.NoError(t, err)
	require.Len(t, defs, 2, "invalid rows are skipped")

	tg, ok := defs[0].Gate.(TargetedGate)
	require.True(t, ok)
	assert.Equal(t, []string{"u-1", "u-2"}, tg.Principals)
	assert.Equal(t, []string{"customer", "admin"}, tg.Roles)
	assert.Nil(t, tg.Tenants)
	assert.Equal(t, "v2", defs[1].Variant)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_MissingTable(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM   feature_flag")).
		WithArgs("").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'control.feature_flag' doesn't exist"})

	defs, err := src.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestSQLSource_QueryError(t *testing.T) {
	src, mock := newMockSource(t)
	boom := errors.New("bad connection")

	mock.ExpectQuery(regexp.QuoteMeta("FROM   feature_flag")).
		WithArgs("").
		WillReturnError(boom)

	_, err := src.Load(context.Background(), "")
	assert.ErrorIs(t, err, boom)
}
