package base

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	ID   int64
	Name string
}

func scanPair(row pgx.Row, p *pair) error {
	return row.Scan(&p.ID, &p.Name)
}

var (
	insertPair = Query{SQL: "INSERT INTO pairs", Args: []any{"a"}}
	fetchPair  = Query{SQL: "SELECT id, name FROM pairs", Args: []any{"a"}}
)

func TestInsertOrFetch_Inserted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO pairs").WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "a"))

	got, created, err := InsertOrFetch(context.Background(), mock, insertPair, fetchPair, scanPair)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrFetch_ConflictFetchesExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO pairs").WithArgs("a").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id, name FROM pairs").WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "a"))

	got, created, err := InsertOrFetch(context.Background(), mock, insertPair, fetchPair, scanPair)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(7), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrFetch_UniqueViolationFetchesExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO pairs").WithArgs("a").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "pairs_name_key"})
	mock.ExpectQuery("SELECT id, name FROM pairs").WithArgs("a").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(9), "a"))

	got, created, err := InsertOrFetch(context.Background(), mock, insertPair, fetchPair, scanPair)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(9), got.ID)
}

func TestInsertOrFetch_VanishedRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO pairs").WithArgs("a").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id, name FROM pairs").WithArgs("a").WillReturnError(pgx.ErrNoRows)

	_, _, err = InsertOrFetch(context.Background(), mock, insertPair, fetchPair, scanPair)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestInsertOrFetch_InsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery("INSERT INTO pairs").WithArgs("a").WillReturnError(boom)

	_, _, err = InsertOrFetch(context.Background(), mock, insertPair, fetchPair, scanPair)
	assert.ErrorIs(t, err, boom)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "slots_coach_date_start_key"}

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "slots_coach_date_start_key"))
	assert.False(t, IsUniqueViolation(err, "other"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("23505"), ""))
}

func TestWithTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE things").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err = WithTx(context.Background(), mock, func(tx pgx.Tx) error {
			_, err := tx.Exec(context.Background(), "UPDATE things SET x = 1")
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = WithTx(context.Background(), mock, func(pgx.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
