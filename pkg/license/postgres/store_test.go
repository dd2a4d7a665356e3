package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botwire/conversation-gateway/pkg/license"
)

const (
	testUser    = "user-1"
	testCompany = "co-1"
	testBot     = "bot-support"
	testLicense = "lic-1"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestStore_CompanyForUser(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT c.id, c.name").
		WithArgs(testUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(testCompany, "Acme"))

	c, err := store.CompanyForUser(context.Background(), testUser)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Acme", c.Name)
}

func TestStore_CompanyForUserAbsent(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT c.id, c.name").
		WithArgs(testUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	c, err := store.CompanyForUser(context.Background(), testUser)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStore_ActiveLicense(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT id, company_id, bot_id, monthly_max, active").
		WithArgs(testCompany, testBot).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "bot_id", "monthly_max", "active"}).
			AddRow(testLicense, testCompany, testBot, 500, true))

	l, err := store.ActiveLicense(context.Background(), testCompany, testBot)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, 500, l.MonthlyMax)
}

func TestStore_GrantFor(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT user_id, license_id, active").
		WithArgs(testUser, testLicense).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "license_id", "active"}).
			AddRow(testUser, testLicense, true))

	g, err := store.GrantFor(context.Background(), testUser, testLicense)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.True(t, g.Active)
}

func TestStore_MonthlyUsageNoRow(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT used FROM license_usage").
		WithArgs(testLicense, license.Month(time.Now())).
		WillReturnRows(sqlmock.NewRows([]string{"used"}))

	used, err := store.MonthlyUsage(context.Background(), testLicense, time.Now())
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestStore_MonthlyUsage(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT used FROM license_usage").
		WithArgs(testLicense, license.Month(time.Now())).
		WillReturnRows(sqlmock.NewRows([]string{"used"}).AddRow(42))

	used, err := store.MonthlyUsage(context.Background(), testLicense, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 42, used)
}

func TestStore_IncrementUsage(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO license_usage").
		WithArgs(testLicense, license.Month(time.Now())).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.IncrementUsage(context.Background(), testLicense, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonth_Normalizes(t *testing.T) {
	at := time.Date(2025, 6, 17, 15, 4, 5, 0, time.FixedZone("X", 3600))
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), license.Month(at))
}
