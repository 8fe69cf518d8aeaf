package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/address-book/internal/apperror"
	"gitlab.com/dirk.krummacker/address-book/internal/model"
	"gitlab.com/dirk.krummacker/address-book/internal/query"
)

const ownerID int64 = 7

var now = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

var selectContactsSQL = "SELECT id, user_id, name, surname, email, phone, birthday, note, created_at, updated_at FROM contacts"

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

// createContactStore instructs the mock object to expect that the statements of the contact
// store are being prepared, and then creates the store.
func createContactStore(t *testing.T) (*Contacts, sqlmock.Sqlmock) {
	db, mock := createMockObjects(t)
	mock.ExpectPrepare("INSERT INTO contacts")
	mock.ExpectPrepare(regexp.QuoteMeta(selectContactsSQL + " WHERE id = ? AND user_id = ?"))
	contacts, err := NewContacts(db)
	require.NoError(t, err)
	return contacts, mock
}

// contactRows returns a result set with the given contacts. All of them belong to the owner.
func contactRows(mock sqlmock.Sqlmock, contacts ...model.Contact) *sqlmock.Rows {
	rows := mock.NewRows([]string{
		"id", "user_id", "name", "surname", "email", "phone", "birthday", "note", "created_at", "updated_at",
	})
	for _, c := range contacts {
		var note interface{}
		if c.Note != nil {
			note = *c.Note
		}
		rows.AddRow(c.ID, ownerID, c.Name, c.Surname, c.Email, c.Phone, c.Birthday.Time, note, now, now)
	}
	return rows
}

func erika(id int64) model.Contact {
	return model.Contact{
		ID:        id,
		UserID:    ownerID,
		Name:      "Erika",
		Surname:   "Mustermann",
		Email:     "erika@example.com",
		Phone:     "+4908154711",
		Birthday:  model.NewDate(1969, time.March, 2),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func erikaInput() model.ContactInput {
	birthday := model.NewDate(1969, time.March, 2)
	return model.ContactInput{
		Name:     "Erika",
		Surname:  "Mustermann",
		Email:    "erika@example.com",
		Phone:    "+4908154711",
		Birthday: &birthday,
	}
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestList reads the second page of size one. It expects the owner filter, the storage order
// and the paging to be part of the statement.
func TestList(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectContactsSQL + " WHERE user_id = ? ORDER BY id LIMIT 1 OFFSET 1")).
		WithArgs(ownerID).
		WillReturnRows(contactRows(mock, erika(2)))

	page, _ := query.NewPage(1, 1)
	result, err := contacts.List(context.Background(), ownerID, page)
	require.NoError(t, err)
	assert.Equal(t, []model.Contact{erika(2)}, result)
	assertExpectations(t, mock)
}

// TestListEmpty expects an empty but non-nil list for a user without contacts.
func TestListEmpty(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE user_id = \\?").
		WithArgs(int64(99)).
		WillReturnRows(contactRows(mock))

	result, err := contacts.List(context.Background(), 99, query.Page{Limit: query.DefaultLimit})
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
	assertExpectations(t, mock)
}

// TestListStorageFailure expects database errors to be passed on.
func TestListStorageFailure(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectQuery("SELECT (.+) FROM contacts").
		WillReturnError(errors.New("connection refused"))

	_, err := contacts.List(context.Background(), ownerID, query.Page{Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
	assertExpectations(t, mock)
}

// TestSearch expects the search predicate to be combined with the owner filter.
func TestSearch(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectContactsSQL+
		" WHERE user_id = ? AND (LOWER(name) LIKE ? OR LOWER(surname) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?)"+
		" ORDER BY id LIMIT 100 OFFSET 0")).
		WithArgs(ownerID, "%eri%", "%eri%", "%eri%", "%eri%").
		WillReturnRows(contactRows(mock, erika(1)))

	result, err := contacts.Search(context.Background(), query.Search{Term: "ERI"}, ownerID,
		query.Page{Skip: query.DefaultSkip, Limit: query.DefaultLimit})
	require.NoError(t, err)
	assert.Len(t, result, 1)
	assertExpectations(t, mock)
}

// TestUpcomingBirthdays expects the birthday window to be combined with the owner filter.
func TestUpcomingBirthdays(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectContactsSQL+
		" WHERE user_id = ? AND (MONTH(birthday) * 100 + DAYOFMONTH(birthday)) BETWEEN ? AND ?"+
		" ORDER BY id LIMIT 100 OFFSET 0")).
		WithArgs(ownerID, 225, 304).
		WillReturnRows(contactRows(mock, erika(1)))

	window, err := query.NewBirthdayWindow(time.Date(2026, time.February, 25, 0, 0, 0, 0, time.UTC), 7)
	require.NoError(t, err)
	result, err := contacts.UpcomingBirthdays(context.Background(), window, ownerID, query.Page{Limit: query.DefaultLimit})
	require.NoError(t, err)
	assert.Equal(t, []model.Contact{erika(1)}, result)
	assertExpectations(t, mock)
}

// TestGet reads a single contact with the prepared statement.
func TestGet(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectContactsSQL+" WHERE id = ? AND user_id = ?")).
		WithArgs(int64(29), ownerID).
		WillReturnRows(contactRows(mock, erika(29)))

	contact, err := contacts.Get(context.Background(), 29, ownerID)
	require.NoError(t, err)
	assert.Equal(t, erika(29), contact)
	assertExpectations(t, mock)
}

// TestGetNotFound expects a contact of another user to be reported as not found.
func TestGetNotFound(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\? AND user_id = \\?").
		WithArgs(int64(29), int64(8)).
		WillReturnRows(contactRows(mock))

	_, err := contacts.Get(context.Background(), 29, 8)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assertExpectations(t, mock)
}

// TestCreate inserts a contact and expects it to be read back by id and owner.
func TestCreate(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(ownerID, "Erika", "Mustermann", "erika@example.com", "+4908154711",
			time.Date(1969, time.March, 2, 0, 0, 0, 0, time.UTC), nil, now, now).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\? AND user_id = \\?").
		WithArgs(int64(42), ownerID).
		WillReturnRows(contactRows(mock, erika(42)))

	contact, err := contacts.Create(context.Background(), erikaInput(), ownerID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(42), contact.ID)
	assert.Equal(t, ownerID, contact.UserID)
	assertExpectations(t, mock)
}

// TestCreateWithNote expects the note to be stored as given.
func TestCreateWithNote(t *testing.T) {
	contacts, mock := createContactStore(t)
	note := "met at the conference"
	withNote := erika(43)
	withNote.Note = &note
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(ownerID, "Erika", "Mustermann", "erika@example.com", "+4908154711",
			time.Date(1969, time.March, 2, 0, 0, 0, 0, time.UTC), note, now, now).
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectQuery("SELECT (.+) FROM contacts").
		WithArgs(int64(43), ownerID).
		WillReturnRows(contactRows(mock, withNote))

	in := erikaInput()
	in.Note = &note
	contact, err := contacts.Create(context.Background(), in, ownerID, now)
	require.NoError(t, err)
	require.NotNil(t, contact.Note)
	assert.Equal(t, note, *contact.Note)
	assertExpectations(t, mock)
}

// TestUpdate replaces all fields of a contact within one transaction.
func TestUpdate(t *testing.T) {
	contacts, mock := createContactStore(t)
	later := now.Add(time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM contacts WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(int64(29), ownerID).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(29))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contacts SET name = ?, surname = ?, email = ?, phone = ?, birthday = ?, note = ?, updated_at = ? WHERE id = ? AND user_id = ?")).
		WithArgs("Erika", "Mustermann", "erika@example.com", "+4908154711",
			time.Date(1969, time.March, 2, 0, 0, 0, 0, time.UTC), nil, later, int64(29), ownerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectContactsSQL+" WHERE id = ? AND user_id = ?")).
		WithArgs(int64(29), ownerID).
		WillReturnRows(contactRows(mock, erika(29)))
	mock.ExpectCommit()

	contact, err := contacts.Update(context.Background(), 29, erikaInput(), ownerID, later)
	require.NoError(t, err)
	assert.Equal(t, int64(29), contact.ID)
	assertExpectations(t, mock)
}

// TestUpdateUnknownID expects nothing to be written when the contact does not exist.
func TestUpdateUnknownID(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM contacts WHERE id = \\? AND user_id = \\? FOR UPDATE").
		WithArgs(int64(9999), ownerID).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := contacts.Update(context.Background(), 9999, erikaInput(), ownerID, now)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assertExpectations(t, mock)
}

// TestUpdateFailureRollsBack expects the transaction to be rolled back when the update fails.
func TestUpdateFailureRollsBack(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM contacts").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(29))
	mock.ExpectExec("UPDATE contacts").
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := contacts.Update(context.Background(), 29, erikaInput(), ownerID, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock wait timeout")
	assertExpectations(t, mock)
}

// TestDelete removes a contact and expects the snapshot taken before the deletion.
func TestDelete(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectContactsSQL+" WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(int64(29), ownerID).
		WillReturnRows(contactRows(mock, erika(29)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contacts WHERE id = ? AND user_id = ?")).
		WithArgs(int64(29), ownerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	snapshot, err := contacts.Delete(context.Background(), 29, ownerID)
	require.NoError(t, err)
	assert.Equal(t, erika(29), snapshot)
	assertExpectations(t, mock)
}

// TestDeleteNotFound expects a second deletion of the same contact to fail with not found.
func TestDeleteNotFound(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM contacts WHERE id = \\? AND user_id = \\? FOR UPDATE").
		WithArgs(int64(29), ownerID).
		WillReturnRows(contactRows(mock))
	mock.ExpectRollback()

	_, err := contacts.Delete(context.Background(), 29, ownerID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assertExpectations(t, mock)
}

// TestDeleteCommitFailure expects a failed commit to be reported as a storage error.
func TestDeleteCommitFailure(t *testing.T) {
	contacts, mock := createContactStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM contacts").
		WillReturnRows(contactRows(mock, erika(29)))
	mock.ExpectExec("DELETE FROM contacts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

	_, err := contacts.Delete(context.Background(), 29, ownerID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
	assertExpectations(t, mock)
}
