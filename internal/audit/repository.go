package audit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Record writes an audit row outside any transaction (logins, user management).
func (r *Repository) Record(ctx context.Context, action, actor string, metadata any) error {
	return Insert(ctx, r.db, nil, action, actor, metadata)
}

func Insert(ctx context.Context, db Execer, bookingID *string, action, actor string, metadata any) error {
	var s *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return errors.Wrap(err, "marshal audit metadata")
		}
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO audit_logs (booking_id, action, actor, metadata)
VALUES ($1, $2, $3, CAST($4 AS jsonb))
`
	_, err := db.Exec(ctx, q, bookingID, action, actor, s)
	return errors.Wrapf(err, "insert audit %s", action)
}
