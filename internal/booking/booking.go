package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bookingdesk/internal/apperr"
	"bookingdesk/internal/pricing"
	"bookingdesk/internal/ratelimit"
)

var (
	ErrNotFound          = apperr.NotFoundError{Resource: "booking"}
	ErrPackageNotFound   = apperr.NotFoundError{Resource: "package"}
	ErrInvalidTransition = apperr.ConflictError{Code: "INVALID_STATE_TRANSITION", Message: "invalid state transition"}
	ErrNotEditable       = apperr.ConflictError{Code: "BOOKING_NOT_EDITABLE", Message: "rejected bookings cannot be edited"}
	ErrNotConfirmed      = apperr.ValidationError{Code: "BOOKING_NOT_CONFIRMED", Message: "booking is not confirmed"}
)

type Lookup struct {
	EN string `json:"en"`
	AR string `json:"ar"`
}

type Package struct {
	ID                 string          `json:"id"`
	PackageID          int             `json:"package_id"`
	Name               string          `json:"name"`
	NumGuests          int             `json:"num_guests"`
	NumClassicPizzas   int             `json:"num_classic_pizzas"`
	NumSignaturePizzas int             `json:"num_signature_pizzas"`
	SubTotal           decimal.Decimal `json:"sub_total"`
}

// Booking is the persisted booking joined with its area, event type and package.
type Booking struct {
	ID                    string    `json:"id"`
	ReferenceNumber       string    `json:"reference_number"`
	Status                Status    `json:"status"`
	IsConfirmed           *bool     `json:"is_confirmed"`
	FullName              string    `json:"full_name"`
	Email                 string    `json:"email"`
	PhoneNumber           string    `json:"phone_number"`
	EventDate             string    `json:"event_date"`
	ReadyTime             string    `json:"ready_time"`
	ServingTime           string    `json:"serving_time"`
	Address               string    `json:"address"`
	Location              string    `json:"location"`
	IsFilming             bool      `json:"is_filming"`
	Comment               *string   `json:"comment"`
	DownpaymentScreenshot *string   `json:"downpayment_screenshot"`
	AreaID                int       `json:"area_id"`
	EventTypeID           int       `json:"event_type_id"`
	Area                  Lookup    `json:"areas"`
	EventType             Lookup    `json:"event_types"`
	Package               Package   `json:"booking_package"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Record is what gets written for a create or an edit.
type Record struct {
	Details   Details
	PackageID int
	Selection pricing.Selection
	Subtotal  decimal.Decimal
}

// Store is the storage collaborator. Transition must lock the row and reject moves
// CanTransition does not allow with ErrInvalidTransition.
type Store interface {
	PackageKind(ctx context.Context, packageID int) (pricing.PackageKind, error)
	Create(ctx context.Context, rec Record, actor string) (*Booking, error)
	Get(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, showRejected bool) ([]Booking, error)
	Update(ctx context.Context, id string, rec Record, actor string) (*Booking, error)
	Transition(ctx context.Context, id string, to Status, actor string) (*Booking, error)
}

// CreationNotifier announces a new pending booking to the customer and subscribed staff.
type CreationNotifier interface {
	BookingCreated(ctx context.Context, b *Booking) error
}

// ConfirmationSender emails the customer that their booking is confirmed.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, b *Booking) (messageID string, err error)
}

type Gate interface {
	Check(ctx context.Context, identifier string, window time.Duration, max int) (ratelimit.Decision, error)
}
