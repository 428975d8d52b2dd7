package users

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"bookingdesk/internal/apperr"
)

const MinPasswordLength = 8

var (
	ErrNotFound   = apperr.NotFoundError{Resource: "user"}
	ErrEmailTaken = apperr.ConflictError{Code: "EMAIL_TAKEN", Message: "user already exists"}
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	SendEmail bool      `json:"send_email"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is a user together with the stored password hash. Never serialized.
type Credentials struct {
	User
	PasswordHash string
}

type Store interface {
	List(ctx context.Context) ([]User, error)
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	SetSendEmail(ctx context.Context, id string, send bool) (*User, error)
}

// Auditor records staff actions. *audit.Repository satisfies it.
type Auditor interface {
	Record(ctx context.Context, action, actor string, metadata any) error
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func ValidEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}
