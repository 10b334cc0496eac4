package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestWithTxCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = WithTx(context.Background(), sqlx.NewDb(db, "sqlmock"), func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE documents SET status = 'Approved'")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = WithTx(context.Background(), sqlx.NewDb(db, "sqlmock"), func(*sqlx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
