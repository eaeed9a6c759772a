package models

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
)

// User is a participant identity. Display names come from [User.Name].
type User struct {
	base
	email string
	name  string
}

// NewUser creates an unsaved user.
func NewUser(sequence int, email, name string) *User {
	return &User{
		base:  newBase(sequence),
		email: strings.ToLower(strings.TrimSpace(email)),
		name:  strings.TrimSpace(name),
	}
}

func (u *User) Email() string { return u.email }
func (u *User) Name() string  { return u.name }

// DisplayName falls back to the local part of the email when no name is set.
func (u *User) DisplayName() string {
	if u.name != "" {
		return u.name
	}
	if local, _, ok := strings.Cut(u.email, "@"); ok && local != "" {
		return local
	}
	return "You"
}

// Validate checks required fields.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user ID is required")
	}
	if _, err := mail.ParseAddress(u.email); err != nil {
		return fmt.Errorf("invalid email %q", u.email)
	}
	return nil
}

// MarshalJSON renders the user for API responses.
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}{u.id, u.email, u.DisplayName()})
}
