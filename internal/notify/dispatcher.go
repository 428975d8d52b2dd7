package notify

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"bookingdesk/internal/booking"
	"bookingdesk/internal/observability"
	"bookingdesk/pkg/postmark"
)

const managerFanOut = 4

// Mailer is the email collaborator. *postmark.Client satisfies it.
type Mailer interface {
	SendTemplate(ctx context.Context, msg postmark.Message) (*postmark.Result, error)
}

// Recipients lists staff who opted into new-booking emails.
type Recipients interface {
	SubscribedEmails(ctx context.Context) ([]string, error)
}

type Summary struct {
	CustomerSent  bool
	ManagerSent   int
	TotalManagers int
}

// Dispatcher delivers booking emails. It implements booking.CreationNotifier and
// booking.ConfirmationSender.
type Dispatcher struct {
	Mailer       Mailer
	Recipients   Recipients
	DashboardURL string
	Logger       observability.Logger
}

func (d *Dispatcher) logger(ctx context.Context) observability.Logger {
	fallback := d.Logger
	if fallback == nil {
		fallback = observability.NewNopLogger()
	}
	return observability.LoggerFrom(ctx, fallback)
}

// Notify sends the customer the request-received email and every subscribed staff
// user the manager email. Individual failures are logged and counted, never returned.
func (d *Dispatcher) Notify(ctx context.Context, b *booking.Booking) Summary {
	lg := d.logger(ctx).WithField("booking_id", b.ID)
	var s Summary

	if _, err := d.send(ctx, TemplateRequestReceived, b.Email, RequestReceived(b)); err != nil {
		lg.WithError(err).WithField("template", TemplateRequestReceived).Error("customer notification failed")
	} else {
		s.CustomerSent = true
	}

	if d.Recipients == nil {
		return s
	}
	emails, err := d.Recipients.SubscribedEmails(ctx)
	if err != nil {
		lg.WithError(err).Error("load subscribed staff failed")
		return s
	}
	s.TotalManagers = len(emails)
	if len(emails) == 0 {
		return s
	}

	model := ManagerBookingReceived(b, d.DashboardURL)
	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(managerFanOut)
	for _, to := range emails {
		g.Go(func() error {
			if _, err := d.send(gctx, TemplateManagerReceived, to, model); err != nil {
				lg.WithError(err).WithField("template", TemplateManagerReceived).WithField("to", to).Warn("manager notification failed")
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	s.ManagerSent = int(sent.Load())

	lg.WithField("customer_sent", s.CustomerSent).
		WithField("manager_sent", s.ManagerSent).
		WithField("total_managers", s.TotalManagers).
		Info("booking notifications sent")
	return s
}

// BookingCreated reports an error only when the customer email did not go out.
func (d *Dispatcher) BookingCreated(ctx context.Context, b *booking.Booking) error {
	if s := d.Notify(ctx, b); !s.CustomerSent {
		return errors.Newf("customer notification for booking %s not sent", b.ID)
	}
	return nil
}

func (d *Dispatcher) SendConfirmation(ctx context.Context, b *booking.Booking) (string, error) {
	return d.send(ctx, TemplateBookingConfirmed, b.Email, BookingConfirmed(b))
}

func (d *Dispatcher) send(ctx context.Context, template, to string, model any) (string, error) {
	res, err := d.Mailer.SendTemplate(ctx, postmark.Message{To: to, Template: template, Model: model})
	if err != nil {
		observability.EmailsTotal.WithLabelValues(template, "failed").Inc()
		return "", errors.Wrapf(err, "send %s", template)
	}
	observability.EmailsTotal.WithLabelValues(template, "sent").Inc()
	return res.MessageID, nil
}
