package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
)

const selectUsersSQL = "SELECT id, username, email, hashed_password, confirmed, created_at, updated_at FROM users"

func userRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{"id", "username", "email", "hashed_password", "confirmed", "created_at", "updated_at"}).
		AddRow(7, "erika", "erika@example.com", "$2a$10$hash", false, now, now)
}

// TestGetUserByUsername reads a user by name and expects the password hash to be loaded.
func TestGetUserByUsername(t *testing.T) {
	db, mock := createMockObjects(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUsersSQL + " WHERE username = ?")).
		WithArgs("erika").
		WillReturnRows(userRows(mock))

	user, err := NewUsers(db).GetByUsername(context.Background(), "erika")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "$2a$10$hash", user.HashedPassword)
	assertExpectations(t, mock)
}

// TestGetUserByIDNotFound expects an unknown user id to be reported as not found.
func TestGetUserByIDNotFound(t *testing.T) {
	db, mock := createMockObjects(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUsersSQL + " WHERE id = ?")).
		WithArgs(int64(404)).
		WillReturnRows(mock.NewRows([]string{"id"}))

	_, err := NewUsers(db).GetByID(context.Background(), 404)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assertExpectations(t, mock)
}

// TestUserExists expects username and email to be checked with one statement.
func TestUserExists(t *testing.T) {
	db, mock := createMockObjects(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE (username = ? OR email = ?)")).
		WithArgs("erika", "erika@example.com").
		WillReturnRows(mock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	exists, err := NewUsers(db).Exists(context.Background(), "erika", "erika@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assertExpectations(t, mock)
}

// TestCreateUser inserts an unconfirmed user and reads it back.
func TestCreateUser(t *testing.T) {
	db, mock := createMockObjects(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("erika", "erika@example.com", "$2a$10$hash", false, now, now).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectUsersSQL + " WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(userRows(mock))

	user, err := NewUsers(db).Create(context.Background(), "erika", "erika@example.com", "$2a$10$hash", now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.False(t, user.Confirmed)
	assertExpectations(t, mock)
}

// TestCreateUserDuplicate expects a unique key violation to be reported as a conflict.
func TestCreateUserDuplicate(t *testing.T) {
	db, mock := createMockObjects(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'erika' for key 'username'"})

	_, err := NewUsers(db).Create(context.Background(), "erika", "erika@example.com", "$2a$10$hash", now)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assertExpectations(t, mock)
}

// TestGetUserByEmail reads the user registered with an email address.
func TestGetUserByEmail(t *testing.T) {
	db, mock := createMockObjects(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUsersSQL + " WHERE email = ?")).
		WithArgs("erika@example.com").
		WillReturnRows(userRows(mock))

	user, err := NewUsers(db).GetByEmail(context.Background(), "erika@example.com")
	require.NoError(t, err)
	assert.Equal(t, "erika", user.Username)
	assertExpectations(t, mock)
}

// TestConfirmUser sets the confirmed flag together with the modification time.
func TestConfirmUser(t *testing.T) {
	db, mock := createMockObjects(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET confirmed = ?, updated_at = ? WHERE id = ?")).
		WithArgs(true, now, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewUsers(db).Confirm(context.Background(), 7, now))
	assertExpectations(t, mock)
}
