package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOpenAttemptsDropsPendingRows(t *testing.T) {
	gdb, mock := mockDB(t)

	mock.ExpectExec(`UPDATE "delivery_attempts" SET`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	dropped, err := cancelOpenAttempts(gdb, 42, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, int64(3), dropped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOpenAttemptsNothingPending(t *testing.T) {
	gdb, mock := mockDB(t)

	mock.ExpectExec(`UPDATE "delivery_attempts" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	dropped, err := cancelOpenAttempts(gdb, 42, "cancelled")
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.NoError(t, mock.ExpectationsWereMet())
}
