package model

import "time"

// Contact is the data structure for a person that we know. Every contact belongs to exactly
// one user; the owner is never part of the JSON representation.
type Contact struct {
	ID        int64     `json:"id"         db:"id"`
	UserID    int64     `json:"-"          db:"user_id"`
	Name      string    `json:"name"       db:"name"`
	Surname   string    `json:"surname"    db:"surname"`
	Email     string    `json:"email"      db:"email"`
	Phone     string    `json:"phone"      db:"phone"`
	Birthday  Date      `json:"birthday"   db:"birthday"`
	Note      *string   `json:"note"       db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ContactInput holds the editable fields of a contact. It is used for creating a contact as
// well as for replacing all fields of an existing one, so every required field has to be
// supplied on update too. A missing note clears the stored note.
type ContactInput struct {
	Name     string  `json:"name"     validate:"required,min=2,max=25"`
	Surname  string  `json:"surname"  validate:"required,min=2,max=25"`
	Email    string  `json:"email"    validate:"required,email,max=100"`
	Phone    string  `json:"phone"    validate:"required,min=9,max=13"`
	Birthday *Date   `json:"birthday" validate:"required"`
	Note     *string `json:"note"     validate:"omitempty,max=200"`
}

// BirthdayQuery is the request body of the upcoming birthdays search.
type BirthdayQuery struct {
	Days *int `json:"days"`
}

// User is an account of the address book. Users own contacts.
type User struct {
	ID             int64     `json:"id"         db:"id"`
	Username       string    `json:"username"   db:"username"`
	Email          string    `json:"email"      db:"email"`
	HashedPassword string    `json:"-"          db:"hashed_password"`
	Confirmed      bool      `json:"confirmed"  db:"confirmed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SignupInput is the body of an account registration.
type SignupInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput is the body of a login request. It is accepted as JSON and as an OAuth2
// password form.
type LoginInput struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Token is the answer to a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
