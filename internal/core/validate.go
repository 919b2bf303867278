package core

import (
	"regexp"
	"strings"
	"time"
)

var (
	// 3-20 characters, alphanumeric and underscore only
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateUsername checks the username format accepted by the server.
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// ValidateEmail checks basic email shape.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum length the server requires.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// ValidateName checks a user-facing entity name (account or topic).
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateTargetDate checks that a topic target date lies in the future.
func ValidateTargetDate(target time.Time) error {
	if !target.After(time.Now()) {
		return ErrPastTargetDate
	}
	return nil
}
