package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botwire/conversation-gateway/pkg/session"
)

const (
	testUser   = "user-1"
	testBot    = "bot-support"
	testHandle = "thread-abc"
)

var sessionColumns = []string{"user_id", "bot_id", "handle", "created_at", "last_used_at"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestStore_GetFound(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT user_id, bot_id, handle").
		WithArgs(testUser, testBot).
		WillReturnRows(sqlmock.NewRows(sessionColumns).
			AddRow(testUser, testBot, testHandle, now.Add(-time.Minute), now))

	sess, err := store.Get(context.Background(), testUser, testBot)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, testHandle, sess.Handle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT user_id, bot_id, handle").
		WithArgs(testUser, testBot).
		WillReturnRows(sqlmock.NewRows(sessionColumns))

	sess, err := store.Get(context.Background(), testUser, testBot)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestStore_GetError(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT user_id, bot_id, handle").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), testUser, testBot)
	assert.Error(t, err)
}

func TestStore_PutUpsert(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(testUser, testBot, testHandle, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), &session.Session{
		UserID: testUser, BotID: testBot, Handle: testHandle,
		CreatedAt: now, LastUsedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Touch(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	mock.ExpectExec("UPDATE sessions SET last_used_at").
		WithArgs(testUser, testBot, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Touch(context.Background(), testUser, testBot, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Cleanup(t *testing.T) {
	store, mock := newMock(t)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.Cleanup(context.Background(), cutoff))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CloseWithoutCleanupRoutine(t *testing.T) {
	store, _ := newMock(t)
	assert.NoError(t, store.Close())
}
