package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "root@tcp(localhost:3306)/visits?charset=utf8mb4&parseTime=true&loc=UTC",
		DSN("root", "", "localhost", "3306", "visits"))
	assert.Equal(t, "app:secret@tcp(db:3306)/visits?charset=utf8mb4&parseTime=true&loc=UTC",
		DSN("app", "secret", "db", "3306", "visits"))
}

func TestStatements(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 7)
	assert.Contains(t, stmts[1], "unique_chief_per_area")
	for _, s := range stmts {
		assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS")
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range Statements() {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("boom"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	require.NoError(t, mock.ExpectationsWereMet())
}
