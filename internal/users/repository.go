package users

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// List returns every staff user, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	const q = `
SELECT id, email, send_email, created_at
FROM users
ORDER BY created_at DESC
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "query users")
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.SendEmail, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	const q = `
INSERT INTO users (email, password_hash)
VALUES ($1, $2)
RETURNING id, email, send_email, created_at
`
	u := &User{}
	if err := r.db.QueryRow(ctx, q, email, passwordHash).Scan(&u.ID, &u.Email, &u.SendEmail, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "insert user")
	}
	return u, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*Credentials, error) {
	const q = `
SELECT id, email, send_email, created_at, password_hash
FROM users
WHERE email = $1
`
	return r.findOne(ctx, q, NormalizeEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Credentials, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	const q = `
SELECT id, email, send_email, created_at, password_hash
FROM users
WHERE id = $1
`
	return r.findOne(ctx, q, id)
}

func (r *Repository) findOne(ctx context.Context, q string, arg any) (*Credentials, error) {
	c := &Credentials{}
	if err := r.db.QueryRow(ctx, q, arg).Scan(&c.ID, &c.Email, &c.SendEmail, &c.CreatedAt, &c.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "query user")
	}
	return c, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return errors.Wrap(err, "update password")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetSendEmail(ctx context.Context, id string, send bool) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	const q = `
UPDATE users SET send_email = $2, updated_at = NOW()
WHERE id = $1
RETURNING id, email, send_email, created_at
`
	u := &User{}
	if err := r.db.QueryRow(ctx, q, id, send).Scan(&u.ID, &u.Email, &u.SendEmail, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "update send_email")
	}
	return u, nil
}

// SubscribedEmails lists staff who receive new-booking emails.
func (r *Repository) SubscribedEmails(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT email FROM users WHERE send_email = true ORDER BY email`)
	if err != nil {
		return nil, errors.Wrap(err, "query subscribed users")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
