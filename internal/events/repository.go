package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingdesk/internal/audit"
)

const (
	TypeCreated       = "BOOKING_CREATED"
	TypeUpdated       = "BOOKING_UPDATED"
	TypeStatusChanged = "STATUS_CHANGED"
)

type Event struct {
	ID         string          `json:"id"`
	BookingID  string          `json:"booking_id"`
	EventType  string          `json:"event_type"`
	Summary    string          `json:"summary"`
	Actor      string          `json:"actor"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListByBooking returns a booking's timeline, oldest first.
func (r *Repository) ListByBooking(ctx context.Context, bookingID string) ([]Event, error) {
	const q = `
SELECT id, booking_id, event_type, summary, actor, occurred_at, COALESCE(data, '{}'::jsonb)
FROM booking_events
WHERE booking_id = $1
ORDER BY occurred_at ASC, created_at ASC
`
	rows, err := r.db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, errors.Wrap(err, "query booking events")
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.BookingID, &e.EventType, &e.Summary, &e.Actor, &e.OccurredAt, &e.Data); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func Insert(ctx context.Context, db audit.Execer, bookingID, eventType, summary, actor string, occurredAt time.Time, data any) error {
	var s *string
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return errors.Wrap(err, "marshal event data")
		}
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO booking_events (booking_id, event_type, summary, actor, occurred_at, data)
VALUES ($1, $2, $3, $4, $5, CAST($6 AS jsonb))
`
	_, err := db.Exec(ctx, q, bookingID, eventType, summary, actor, occurredAt, s)
	return errors.Wrapf(err, "insert event %s", eventType)
}
