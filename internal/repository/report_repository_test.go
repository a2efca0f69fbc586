package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryFarmSummary(t *testing.T) {
	db, mock, cleanup := newReportMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	// Headline counters take in every farm, farmer and cow, inactive
	// rows included.
	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM farms\) AS farms.*` +
		`SELECT COUNT\(\*\) FROM users WHERE role = 'farmer'\) AS farmers.*` +
		`SELECT COUNT\(\*\) FROM cows\) AS cows`).
		WillReturnRows(sqlmock.NewRows([]string{"farms", "farmers", "cows", "total_milk_liters"}).
			AddRow(3, 7, 41, 812.5))

	summary, err := repo.FarmSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Farms)
	assert.Equal(t, 7, summary.Farmers)
	assert.Equal(t, 41, summary.Cows)
	assert.Equal(t, 812.5, summary.TotalMilkLiters)

	assert.NoError(t, mock.ExpectationsWereMet())
}
