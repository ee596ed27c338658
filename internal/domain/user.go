package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for User
var (
	ErrEmptyUserID      = errors.New("user ID cannot be empty")
	ErrEmptyUserEmail   = errors.New("user email cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong  = errors.New("password cannot exceed 72 characters")
)

// Password length limits. The upper bound is the bcrypt input limit.
const (
	MinPasswordLength = 12
	MaxPasswordLength = 72
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents a registered account holder. A user owns one credit
// balance row and any number of tasks and transactions.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastSignedIn   time.Time `json:"last_signed_in"`

	// Password holds the plaintext password during registration only.
	// It is never persisted or serialized.
	Password string `json:"-"`
}

// NewUser creates a new User with the given email and plaintext password.
// It generates a new UUID for the user and sets timestamps. The password
// is validated here but hashed by the caller before storage.
func NewUser(email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Password:     password,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastSignedIn: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Email == "" {
		return ErrEmptyUserEmail
	}

	if !emailPattern.MatchString(u.Email) {
		return ErrInvalidEmail
	}

	// Only validate the plaintext password when present; it is empty when
	// the user was loaded from storage.
	if u.Password != "" {
		if len(u.Password) < MinPasswordLength {
			return ErrPasswordTooShort
		}
		if len(u.Password) > MaxPasswordLength {
			return ErrPasswordTooLong
		}
	}

	return nil
}

// TouchSignIn records a successful login.
func (u *User) TouchSignIn() {
	now := time.Now().UTC()
	u.LastSignedIn = now
	u.UpdatedAt = now
}
