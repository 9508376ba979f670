package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/models"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSQLRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

const (
	insertQ  = `(?s)^\s*INSERT\s+INTO\s+users\s*\(id,\s*email,\s*salt,\s*password_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`
	byEmailQ = `(?s)^\s*SELECT\s+id,\s*email,\s*salt,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	byIDQ    = `(?s)^\s*SELECT\s+id,\s*email,\s*salt,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQ).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", []byte("salt"), []byte("hash"), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{Email: "alice@example.com", Salt: []byte("salt"), PasswordHash: []byte("hash")}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Len(t, got.ID, 36)
	assert.Equal(t, fixedNow, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "email", "salt", "password_hash", "created_at"}).
		AddRow("u-1", "alice@example.com", []byte("salt"), []byte("hash"), fixedNow)
	mock.ExpectQuery(byEmailQ).WithArgs("alice@example.com").WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, &models.User{
		ID:           "u-1",
		Email:        "alice@example.com",
		Salt:         []byte("salt"),
		PasswordHash: []byte("hash"),
		CreatedAt:    fixedNow,
	}, got)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(byEmailQ).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"id", "email", "salt", "password_hash", "created_at"}).
		AddRow("u-1", "alice@example.com", []byte("salt"), []byte("hash"), fixedNow)
	mock.ExpectQuery(byIDQ).WithArgs("u-1").WillReturnRows(rows)
	mock.ExpectQuery(byIDQ).WithArgs("u-2").WillReturnError(errors.New("db err"))

	got, err := repo.GetByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = repo.GetByID(context.Background(), "u-2")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}
