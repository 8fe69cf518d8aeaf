// Package store persists contacts and users in MySQL.
//
// Every contact operation is scoped by the id of the owning user. A contact that belongs to
// somebody else behaves exactly like a contact that does not exist.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/query"
)

// contactColumns lists the columns of a contact in the order of model.Contact.
var contactColumns = []string{
	"id", "user_id", "name", "surname", "email", "phone", "birthday", "note", "created_at", "updated_at",
}

const selectContactSQL = `
	SELECT id, user_id, name, surname, email, phone, birthday, note, created_at, updated_at
	FROM contacts
	WHERE id = ? AND user_id = ?`

// Contacts is the contact store.
type Contacts struct {
	db *sqlx.DB

	// insert is a prepared statement for creating a contact.
	insert *sqlx.NamedStmt

	// selectWhereIdAndOwner is a prepared statement for reading a single contact of a user.
	selectWhereIdAndOwner *sqlx.Stmt
}

// NewContacts prepares all statements of the contact store. The database argument can be a
// real database for production use or a mock database within unit tests.
func NewContacts(db *sqlx.DB) (*Contacts, error) {
	insert, err := db.PrepareNamed(`
		INSERT INTO contacts (user_id, name, surname, email, phone, birthday, note, created_at, updated_at)
		VALUES (:user_id, :name, :surname, :email, :phone, :birthday, :note, :created_at, :updated_at)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare contact insert: %w", err)
	}
	selectWhereIdAndOwner, err := db.Preparex(selectContactSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare contact select: %w", err)
	}
	return &Contacts{
		db:                    db,
		insert:                insert,
		selectWhereIdAndOwner: selectWhereIdAndOwner,
	}, nil
}

// Close releases the prepared statements.
func (s *Contacts) Close() error {
	return errors.Join(s.insert.Close(), s.selectWhereIdAndOwner.Close())
}

// List returns the contacts of the owner in insertion order.
func (s *Contacts) List(ctx context.Context, ownerID int64, page query.Page) ([]model.Contact, error) {
	return s.selectContacts(ctx, ownerID, nil, page)
}

// Search returns the contacts of the owner that match the search term.
func (s *Contacts) Search(ctx context.Context, search query.Search, ownerID int64, page query.Page) ([]model.Contact, error) {
	return s.selectContacts(ctx, ownerID, search, page)
}

// UpcomingBirthdays returns the contacts of the owner whose birthday falls into the window.
func (s *Contacts) UpcomingBirthdays(ctx context.Context, window query.BirthdayWindow, ownerID int64, page query.Page) ([]model.Contact, error) {
	return s.selectContacts(ctx, ownerID, window, page)
}

func (s *Contacts) selectContacts(ctx context.Context, ownerID int64, filter sq.Sqlizer, page query.Page) ([]model.Contact, error) {
	builder := sq.Select(contactColumns...).
		From("contacts").
		Where(sq.Eq{"user_id": ownerID})
	if filter != nil {
		builder = builder.Where(filter)
	}
	sqlText, args, err := page.Apply(builder.OrderBy("id")).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact query: %w", err)
	}

	contacts := []model.Contact{}
	if err := s.db.SelectContext(ctx, &contacts, sqlText, args...); err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	return contacts, nil
}

// Get returns a single contact of the owner.
func (s *Contacts) Get(ctx context.Context, id, ownerID int64) (model.Contact, error) {
	var contact model.Contact
	err := s.selectWhereIdAndOwner.GetContext(ctx, &contact, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, apperror.NotFound("contact")
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("select contact %d: %w", id, err)
	}
	return contact, nil
}

// Create inserts a new contact for the owner and returns it as stored.
func (s *Contacts) Create(ctx context.Context, in model.ContactInput, ownerID int64, now time.Time) (model.Contact, error) {
	contact := model.Contact{
		UserID:    ownerID,
		Name:      in.Name,
		Surname:   in.Surname,
		Email:     in.Email,
		Phone:     in.Phone,
		Birthday:  *in.Birthday,
		Note:      in.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	result, err := s.insert.ExecContext(ctx, contact)
	if err != nil {
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return s.Get(ctx, id, ownerID)
}

// Update replaces all editable fields of a contact of the owner. The row stays locked until
// the new version has been read back.
func (s *Contacts) Update(ctx context.Context, id int64, in model.ContactInput, ownerID int64, now time.Time) (model.Contact, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Contact{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockContact(ctx, tx, id, ownerID); err != nil {
		return model.Contact{}, err
	}

	sqlText, args, err := sq.Update("contacts").
		Set("name", in.Name).
		Set("surname", in.Surname).
		Set("email", in.Email).
		Set("phone", in.Phone).
		Set("birthday", *in.Birthday).
		Set("note", in.Note).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return model.Contact{}, fmt.Errorf("build contact update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlText, args...); err != nil {
		return model.Contact{}, fmt.Errorf("update contact %d: %w", id, err)
	}

	var contact model.Contact
	if err := tx.GetContext(ctx, &contact, selectContactSQL, id, ownerID); err != nil {
		return model.Contact{}, fmt.Errorf("reload contact %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Contact{}, fmt.Errorf("commit contact %d: %w", id, err)
	}
	return contact, nil
}

// Delete removes a contact of the owner and returns the contact as it was before.
func (s *Contacts) Delete(ctx context.Context, id, ownerID int64) (model.Contact, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Contact{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var snapshot model.Contact
	err = tx.GetContext(ctx, &snapshot, selectContactSQL+" FOR UPDATE", id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, apperror.NotFound("contact")
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("lock contact %d: %w", id, err)
	}

	sqlText, args, err := sq.Delete("contacts").
		Where(sq.Eq{"id": id, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return model.Contact{}, fmt.Errorf("build contact delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlText, args...); err != nil {
		return model.Contact{}, fmt.Errorf("delete contact %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Contact{}, fmt.Errorf("commit contact %d: %w", id, err)
	}
	return snapshot, nil
}

func lockContact(ctx context.Context, tx *sqlx.Tx, id, ownerID int64) error {
	var locked int64
	err := tx.GetContext(ctx, &locked, "SELECT id FROM contacts WHERE id = ? AND user_id = ? FOR UPDATE", id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("contact")
	}
	if err != nil {
		return fmt.Errorf("lock contact %d: %w", id, err)
	}
	return nil
}
