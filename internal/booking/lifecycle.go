package booking

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/apperr"
	"bookingdesk/internal/observability"
	"bookingdesk/internal/pricing"
)

const (
	ConfirmEmailWindow = 10 * time.Minute
	ConfirmEmailMax    = 20

	sideEffectTimeout = 30 * time.Second
)

type Service struct {
	Store    Store
	Notifier CreationNotifier
	Sender   ConfirmationSender
	Gate     Gate
	Logger   observability.Logger
	Location *time.Location
	Now      func() time.Time

	wg sync.WaitGroup
}

// SubmitInput is the whole draft as one request.
type SubmitInput struct {
	PackageID       int `json:"packageId"`
	Guests          int `json:"guests"`
	ClassicPizzas   int `json:"classicPizzas"`
	SignaturePizzas int `json:"signaturePizzas"`
	Details
}

type EmailOutcome struct {
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Throttled bool   `json:"throttled"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ConfirmResult struct {
	Booking *Booking     `json:"booking"`
	Email   EmailOutcome `json:"email"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger(ctx context.Context) observability.Logger {
	fallback := s.Logger
	if fallback == nil {
		fallback = observability.NewNopLogger()
	}
	return observability.LoggerFrom(ctx, fallback)
}

// Draft runs the input through both form steps and returns the ready draft.
func (s *Service) Draft(ctx context.Context, in SubmitInput) (*Draft, error) {
	if in.PackageID <= 0 {
		return nil, ValidationErrors{FieldError{Field: "package", Message: "package is required"}}
	}
	kind, err := s.Store.PackageKind(ctx, in.PackageID)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return nil, ValidationErrors{FieldError{Field: "package", Message: "package is required"}}
		}
		return nil, err
	}

	d := NewDraft()
	if err := d.SetPackage(in.PackageID, pricing.Selection{
		Kind:            kind,
		Guests:          in.Guests,
		ClassicPizzas:   in.ClassicPizzas,
		SignaturePizzas: in.SignaturePizzas,
	}); err != nil {
		return nil, err
	}
	if err := d.SetDetails(in.Details, s.now(), s.Location); err != nil {
		return nil, err
	}
	return d, nil
}

// Submit validates and prices the draft, stores it as a pending booking and hands the
// creation notification off in the background.
func (s *Service) Submit(ctx context.Context, in SubmitInput, actor string) (*Booking, error) {
	d, err := s.Draft(ctx, in)
	if err != nil {
		return nil, err
	}

	b, err := s.Store.Create(ctx, recordOf(d), actor)
	if err != nil {
		return nil, errors.Wrap(err, "create booking")
	}
	if err := d.Complete(b); err != nil {
		return nil, err
	}

	observability.BookingTransitions.WithLabelValues(string(StatusPending)).Inc()
	lg := s.logger(ctx).WithField("booking_id", b.ID).WithField("reference", b.ReferenceNumber)
	lg.Info("booking created")

	if s.Notifier != nil {
		s.goAsync(ctx, func(ctx context.Context) {
			if err := s.Notifier.BookingCreated(ctx, b); err != nil {
				lg.WithError(err).Error("booking created notification failed")
			}
		})
	}
	return b, nil
}

// Update edits a booking that has not been rejected. Status is unchanged.
func (s *Service) Update(ctx context.Context, id string, in SubmitInput, actor string) (*Booking, error) {
	d, err := s.Draft(ctx, in)
	if err != nil {
		return nil, err
	}
	b, err := s.Store.Update(ctx, id, recordOf(d), actor)
	if err != nil {
		return nil, errors.Wrapf(err, "update booking %s", id)
	}
	s.logger(ctx).WithField("booking_id", b.ID).Info("booking updated")
	return b, nil
}

// Confirm moves a pending booking to confirmed, then tries the confirmation email once.
// The email outcome is reported but never undoes the committed transition.
func (s *Service) Confirm(ctx context.Context, id, actor string) (*ConfirmResult, error) {
	b, err := s.Store.Transition(ctx, id, StatusConfirmed, actor)
	if err != nil {
		return nil, errors.Wrapf(err, "confirm booking %s", id)
	}
	observability.BookingTransitions.WithLabelValues(string(StatusConfirmed)).Inc()

	lg := s.logger(ctx).WithField("booking_id", b.ID).WithField("status", b.Status)
	lg.Info("booking confirmed")

	res := &ConfirmResult{Booking: b}
	res.Email = s.sendConfirmation(ctx, b, actor, lg)
	return res, nil
}

// Deny moves a pending booking to rejected. No email is sent.
func (s *Service) Deny(ctx context.Context, id, actor string) (*Booking, error) {
	b, err := s.Store.Transition(ctx, id, StatusRejected, actor)
	if err != nil {
		return nil, errors.Wrapf(err, "deny booking %s", id)
	}
	observability.BookingTransitions.WithLabelValues(string(StatusRejected)).Inc()
	s.logger(ctx).WithField("booking_id", b.ID).WithField("status", b.Status).Info("booking denied")
	return b, nil
}

// ResendConfirmation emails an already confirmed booking again. The caller's
// confirm-email quota is taken before the lookup, so unknown or unconfirmed ids count too.
func (s *Service) ResendConfirmation(ctx context.Context, id, actor string) (string, error) {
	if s.Gate != nil {
		if _, err := s.Gate.Check(ctx, "confirm-email:"+actor, ConfirmEmailWindow, ConfirmEmailMax); err != nil {
			return "", err
		}
	}
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", errors.Wrapf(err, "get booking %s", id)
	}
	if b.Status != StatusConfirmed {
		return "", ErrNotConfirmed
	}
	msgID, err := s.Sender.SendConfirmation(ctx, b)
	if err != nil {
		return "", apperr.Dependency("email", err)
	}
	return msgID, nil
}

// QuoteInput is the package step on its own.
type QuoteInput struct {
	PackageID       int `json:"packageId"`
	Guests          int `json:"guests"`
	ClassicPizzas   int `json:"classicPizzas"`
	SignaturePizzas int `json:"signaturePizzas"`
}

// Quote prices a package selection without touching details or storage writes.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (pricing.Quote, error) {
	kind := pricing.KindUnknown
	if in.PackageID > 0 {
		k, err := s.Store.PackageKind(ctx, in.PackageID)
		if err != nil && !errors.Is(err, ErrPackageNotFound) {
			return pricing.Quote{}, err
		}
		kind = k
	}
	sel := pricing.Selection{
		Kind:            kind,
		Guests:          in.Guests,
		ClassicPizzas:   in.ClassicPizzas,
		SignaturePizzas: in.SignaturePizzas,
	}
	if err := ValidatePackage(sel); err != nil {
		return pricing.Quote{}, err
	}
	return pricing.Price(sel), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get booking %s", id)
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, showRejected bool) ([]Booking, error) {
	items, err := s.Store.List(ctx, showRejected)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	return items, nil
}

// Wait blocks until background notifications started by Submit have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) sendConfirmation(ctx context.Context, b *Booking, actor string, lg observability.Logger) EmailOutcome {
	var out EmailOutcome
	if s.Sender == nil {
		return out
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.Gate != nil {
		if _, err := s.Gate.Check(ctx, "confirm-email:"+actor, ConfirmEmailWindow, ConfirmEmailMax); err != nil {
			var rl apperr.RateLimitError
			if errors.As(err, &rl) {
				out.Throttled = true
				lg.WithField("retry_after", rl.RetryAfter.String()).Warn("confirmation email throttled")
				return out
			}
			out.Error = err.Error()
			lg.WithError(err).Error("confirmation email gate failed")
			return out
		}
	}

	out.Attempted = true
	msgID, err := s.Sender.SendConfirmation(ctx, b)
	if err != nil {
		out.Error = err.Error()
		lg.WithError(err).Error("confirmation email failed")
		return out
	}
	out.Sent = true
	out.MessageID = msgID
	return out
}

func (s *Service) goAsync(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func recordOf(d *Draft) Record {
	return Record{
		Details:   d.Details,
		PackageID: d.PackageID,
		Selection: d.Selection,
		Subtotal:  d.Subtotal,
	}
}
