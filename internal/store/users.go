package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
)

// erDupEntry is the MySQL error number of a unique key violation.
const erDupEntry = 1062

var userColumns = []string{"id", "username", "email", "hashed_password", "confirmed", "created_at", "updated_at"}

// Users is the account store.
type Users struct {
	db *sqlx.DB
}

func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// GetByID returns the user with the given id.
func (s *Users) GetByID(ctx context.Context, id int64) (model.User, error) {
	return s.getBy(ctx, sq.Eq{"id": id})
}

// GetByUsername returns the user with the given name.
func (s *Users) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return s.getBy(ctx, sq.Eq{"username": username})
}

// GetByEmail returns the user registered with the email address.
func (s *Users) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getBy(ctx, sq.Eq{"email": email})
}

// Exists reports whether the username or the email address is already taken.
func (s *Users) Exists(ctx context.Context, username, email string) (bool, error) {
	sqlText, args, err := sq.Select("COUNT(*)").
		From("users").
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build user query: %w", err)
	}
	var count int
	if err := s.db.GetContext(ctx, &count, sqlText, args...); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new, unconfirmed user and returns it as stored.
func (s *Users) Create(ctx context.Context, username, email, hashedPassword string, now time.Time) (model.User, error) {
	result, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (username, email, hashed_password, confirmed, created_at, updated_at)
		VALUES (:username, :email, :hashed_password, :confirmed, :created_at, :updated_at)
	`, model.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry {
		return model.User{}, apperror.Conflict("username or email already registered")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Confirm marks the user's email address as confirmed.
func (s *Users) Confirm(ctx context.Context, id int64, now time.Time) error {
	sqlText, args, err := sq.Update("users").
		Set("confirmed", true).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	return nil
}

func (s *Users) getBy(ctx context.Context, where sq.Eq) (model.User, error) {
	sqlText, args, err := sq.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return model.User{}, fmt.Errorf("build user query: %w", err)
	}
	var user model.User
	err = s.db.GetContext(ctx, &user, sqlText, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperror.NotFound("user")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}
