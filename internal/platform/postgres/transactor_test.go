package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_InTx(t *testing.T) {
	t.Parallel()

	state, err := domain.NewUserStreakState(uuid.New(), "UTC", fixedNow)
	require.NoError(t, err)

	t.Run("commits with bound stores", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO user_streak_state").
			WithArgs(anyArgs(19)...).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := NewTransactor(db, nil).InTx(context.Background(), func(ctx context.Context, s store.Stores) error {
			return s.Streaks.Create(ctx, state)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		sentinel := errors.New("stop")
		err := NewTransactor(db, nil).InTx(context.Background(), func(context.Context, store.Stores) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure at commit is a version conflict", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: serializationFailureCode})

		err := NewTransactor(db, nil).InTx(context.Background(), func(context.Context, store.Stores) error {
			return nil
		})
		assert.ErrorIs(t, err, store.ErrVersionConflict)
		assert.ErrorIs(t, err, store.ErrTransactionFailed)
		assert.True(t, store.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactor_StoresAreUnbound(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery("FROM stack WHERE id").WillReturnRows(sqlmock.NewRows(stackColumnNames))

	tx := NewTransactor(db, nil)
	assert.Same(t, db, tx.DB())
	_, err := tx.Stores().Stacks.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrStackNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
