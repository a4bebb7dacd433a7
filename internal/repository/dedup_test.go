package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"Mazraaty/internal/model"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return gdb, mock
}

func submittedNotification() *model.Notification {
	return &model.Notification{
		PublicID:    42,
		TenantID:    "t1",
		State:       model.NotificationStateReceived,
		SubmittedAt: time.Now(),
	}
}

func TestAdmitNotificationClaimAndInsertShareOneTransaction(t *testing.T) {
	gdb, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "dedup_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectCommit()

	var winnerID int64
	var won bool
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		winnerID, won, err = admitNotification(tx, submittedNotification(), "hash-1", time.Hour)
		return err
	})
	require.NoError(t, err)
	assert.True(t, won)
	assert.Equal(t, int64(42), winnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitNotificationRollsBackClaimWhenInsertFails(t *testing.T) {
	gdb, mock := mockDB(t)

	// the claim must not survive a failed insert: a committed dedup record
	// pointing at a notification that was never stored would answer every
	// resubmission with an id that reads back as not-found
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "dedup_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnError(fmt.Errorf("connection reset by peer"))
	mock.ExpectRollback()

	err := gdb.Transaction(func(tx *gorm.DB) error {
		_, _, err := admitNotification(tx, submittedNotification(), "hash-1", time.Hour)
		return err
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitNotificationDuplicateReturnsWinnerWithoutInsert(t *testing.T) {
	gdb, mock := mockDB(t)

	mock.ExpectBegin()
	// conflict on the unique index: no row comes back from the claim
	mock.ExpectQuery(`INSERT INTO "dedup_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM "dedup_records"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "dedup_key_hash", "notification_id", "expires_at",
		}).AddRow(int64(9), "t1", "hash-1", int64(77), time.Now().Add(time.Hour)))
	mock.ExpectCommit()

	var winnerID int64
	var won bool
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		winnerID, won, err = admitNotification(tx, submittedNotification(), "hash-1", time.Hour)
		return err
	})
	require.NoError(t, err)
	assert.False(t, won)
	assert.Equal(t, int64(77), winnerID)
	// ExpectationsWereMet doubles as the no-insert assertion: a second
	// INSERT would have failed the unmatched-expectation check
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitNotificationWithoutDedupKeySkipsClaim(t *testing.T) {
	gdb, mock := mockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "notifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectCommit()

	var won bool
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		_, won, err = admitNotification(tx, submittedNotification(), "", time.Hour)
		return err
	})
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}
