package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bookingdesk/internal/audit"
	"bookingdesk/internal/events"
	"bookingdesk/internal/pricing"
	"bookingdesk/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectBooking = `
SELECT b.id, b.reference_number, b.is_confirmed, b.full_name, b.email, b.phone_number,
       b.event_date::text, to_char(b.ready_time, 'HH24:MI'), to_char(b.serving_time, 'HH24:MI'),
       b.address, b.location, b.is_filming, b.comment, b.downpayment_screenshot,
       b.area_id, b.event_type_id, a.area_en, a.area_ar, et.event_en, et.event_ar,
       COALESCE(bp.id::text, ''), COALESCE(bp.package_id, 0), COALESCE(p.name, ''),
       COALESCE(bp.num_guests, 0), COALESCE(bp.num_classic_pizzas, 0), COALESCE(bp.num_signature_pizzas, 0),
       COALESCE(bp.sub_total, 0)::text, b.created_at, b.updated_at
FROM bookings b
JOIN areas a ON a.id = b.area_id
JOIN event_types et ON et.id = b.event_type_id
LEFT JOIN booking_package bp ON bp.booking_id = b.id
LEFT JOIN packages p ON p.id = bp.package_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var (
		b        Booking
		subTotal string
	)
	err := row.Scan(
		&b.ID, &b.ReferenceNumber, &b.IsConfirmed, &b.FullName, &b.Email, &b.PhoneNumber,
		&b.EventDate, &b.ReadyTime, &b.ServingTime,
		&b.Address, &b.Location, &b.IsFilming, &b.Comment, &b.DownpaymentScreenshot,
		&b.AreaID, &b.EventTypeID, &b.Area.EN, &b.Area.AR, &b.EventType.EN, &b.EventType.AR,
		&b.Package.ID, &b.Package.PackageID, &b.Package.Name,
		&b.Package.NumGuests, &b.Package.NumClassicPizzas, &b.Package.NumSignaturePizzas,
		&subTotal, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = StatusFromFlag(b.IsConfirmed)
	b.Package.SubTotal, err = decimal.NewFromString(subTotal)
	if err != nil {
		return nil, errors.Wrap(err, "parse sub_total")
	}
	return &b, nil
}

func (r *Repository) PackageKind(ctx context.Context, packageID int) (pricing.PackageKind, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM packages WHERE id = $1`, packageID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.KindUnknown, ErrPackageNotFound
		}
		return pricing.KindUnknown, errors.Wrap(err, "query package")
	}
	return pricing.KindFromName(name), nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	b, err := scanBooking(r.db.QueryRow(ctx, selectBooking+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "query booking")
	}
	return b, nil
}

// List orders by event date. Rejected bookings are left out unless showRejected is set.
func (r *Repository) List(ctx context.Context, showRejected bool) ([]Booking, error) {
	const where = `
WHERE ($1 OR b.is_confirmed IS NULL OR b.is_confirmed = true)
ORDER BY b.event_date ASC, b.ready_time ASC, b.created_at ASC
`
	rows, err := r.db.Query(ctx, selectBooking+where, showRejected)
	if err != nil {
		return nil, errors.Wrap(err, "query bookings")
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan booking")
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, rec Record, actor string) (*Booking, error) {
	var id string
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
INSERT INTO bookings (
  event_date, ready_time, serving_time, full_name, email, phone_number, is_filming,
  address, location, comment, downpayment_screenshot, area_id, event_type_id
) VALUES (
  CAST($1 AS date), CAST($2 AS time), CAST($3 AS time), $4, $5, $6, $7,
  $8, $9, $10, $11, $12, $13
)
RETURNING id, reference_number
`
		d := rec.Details
		var ref string
		if err := tx.QueryRow(ctx, q,
			d.EventDate, d.ReadyTime, d.ServingTime, d.FullName, d.Email, d.Phone, filming(d),
			d.Address, d.Location, nullString(d.Comment), nullString(d.PaymentProofURL), d.AreaID, d.EventTypeID,
		).Scan(&id, &ref); err != nil {
			return foreignKeyError(err)
		}

		if err := upsertPackage(ctx, tx, id, rec); err != nil {
			return err
		}
		if err := events.Insert(ctx, tx, id, events.TypeCreated, "Booking "+ref+" created", actor, time.Now().UTC(), map[string]any{
			"package_id": rec.PackageID,
			"sub_total":  rec.Subtotal.String(),
		}); err != nil {
			return err
		}
		return audit.Insert(ctx, tx, &id, "BOOKING_CREATED", actor, map[string]any{"reference_number": ref})
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update rewrites the booking fields and its package row. Rejected bookings are locked.
func (r *Repository) Update(ctx context.Context, id string, rec Record, actor string) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		from, err := lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if from == StatusRejected {
			return ErrNotEditable
		}

		const q = `
UPDATE bookings SET
  event_date = CAST($2 AS date), ready_time = CAST($3 AS time), serving_time = CAST($4 AS time),
  full_name = $5, email = $6, phone_number = $7, is_filming = $8,
  address = $9, location = $10, comment = $11, downpayment_screenshot = $12,
  area_id = $13, event_type_id = $14, updated_at = NOW()
WHERE id = $1
`
		d := rec.Details
		if _, err := tx.Exec(ctx, q, id,
			d.EventDate, d.ReadyTime, d.ServingTime, d.FullName, d.Email, d.Phone, filming(d),
			d.Address, d.Location, nullString(d.Comment), nullString(d.PaymentProofURL), d.AreaID, d.EventTypeID,
		); err != nil {
			return foreignKeyError(err)
		}
		if err := upsertPackage(ctx, tx, id, rec); err != nil {
			return err
		}
		if err := events.Insert(ctx, tx, id, events.TypeUpdated, "Booking details updated", actor, time.Now().UTC(), map[string]any{
			"package_id": rec.PackageID,
			"sub_total":  rec.Subtotal.String(),
		}); err != nil {
			return err
		}
		return audit.Insert(ctx, tx, &id, "BOOKING_UPDATED", actor, nil)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Transition locks the row, checks the move and records it on the timeline in one tx.
func (r *Repository) Transition(ctx context.Context, id string, to Status, actor string) (*Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		from, err := lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanTransition(from, to) {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
		}

		if _, err := tx.Exec(ctx, `UPDATE bookings SET is_confirmed = $2, updated_at = NOW() WHERE id = $1`, id, to.Flag()); err != nil {
			return errors.Wrap(err, "update status")
		}
		data := map[string]any{"from": from, "to": to}
		summary := fmt.Sprintf("Status changed from %s to %s", from, to)
		if err := events.Insert(ctx, tx, id, events.TypeStatusChanged, summary, actor, time.Now().UTC(), data); err != nil {
			return err
		}
		return audit.Insert(ctx, tx, &id, "BOOKING_"+strings.ToUpper(string(to)), actor, data)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func lockStatus(ctx context.Context, tx pgx.Tx, id string) (Status, error) {
	var flag *bool
	err := tx.QueryRow(ctx, `SELECT is_confirmed FROM bookings WHERE id = $1 FOR UPDATE`, id).Scan(&flag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", errors.Wrap(err, "lock booking")
	}
	return StatusFromFlag(flag), nil
}

func upsertPackage(ctx context.Context, tx pgx.Tx, bookingID string, rec Record) error {
	const q = `
INSERT INTO booking_package (booking_id, package_id, num_guests, num_classic_pizzas, num_signature_pizzas, sub_total)
VALUES ($1, $2, $3, $4, $5, CAST($6 AS numeric))
ON CONFLICT (booking_id) DO UPDATE SET
  package_id = EXCLUDED.package_id,
  num_guests = EXCLUDED.num_guests,
  num_classic_pizzas = EXCLUDED.num_classic_pizzas,
  num_signature_pizzas = EXCLUDED.num_signature_pizzas,
  sub_total = EXCLUDED.sub_total
`
	sel := rec.Selection
	var guests, classic, signature *int
	switch sel.Kind {
	case pricing.KindFullExperience:
		guests = &sel.Guests
	case pricing.KindLiveSetup:
		classic, signature = &sel.ClassicPizzas, &sel.SignaturePizzas
	}
	_, err := tx.Exec(ctx, q, bookingID, rec.PackageID, guests, classic, signature, rec.Subtotal.String())
	return errors.Wrap(err, "upsert booking package")
}

// foreignKeyError turns a dangling area or event type reference into a field error.
func foreignKeyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		switch pgErr.ConstraintName {
		case "bookings_area_id_fkey":
			return ValidationErrors{FieldError{Field: "areaId", Message: "unknown area"}}
		case "bookings_event_type_id_fkey":
			return ValidationErrors{FieldError{Field: "eventTypeId", Message: "unknown event type"}}
		}
	}
	return errors.Wrap(err, "write booking")
}

func filming(d Details) bool {
	return d.AllowFilming != nil && *d.AllowFilming
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
