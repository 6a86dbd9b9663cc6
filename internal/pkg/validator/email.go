package validator

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrEmptyEmail   = errors.New("email is empty")
	ErrInvalidEmail = errors.New("invalid email format")
)

// ValidateRecipient checks that email is a bare address usable as a To header.
// Display-name forms ("Ana <ana@x.com>") are rejected.
func ValidateRecipient(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 || !strings.Contains(parts[1], ".") {
		return ErrInvalidEmail
	}

	return nil
}
