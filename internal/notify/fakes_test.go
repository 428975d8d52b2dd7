package notify

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/booking"
	"bookingdesk/pkg/postmark"
)

type sentMail struct {
	To       string
	Template string
	Model    any
}

type recordingMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]bool
}

func (m *recordingMailer) SendTemplate(_ context.Context, msg postmark.Message) (*postmark.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[msg.To] {
		return nil, &postmark.APIError{Status: 422, ErrorCode: 300, Message: "Invalid 'To' address"}
	}
	m.sent = append(m.sent, sentMail{To: msg.To, Template: msg.Template, Model: msg.Model})
	return &postmark.Result{MessageID: "pm-" + msg.To}, nil
}

func (m *recordingMailer) To(template string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.Template == template {
			out = append(out, s.To)
		}
	}
	sort.Strings(out)
	return out
}

type staticRecipients struct {
	emails []string
	err    error
}

func (s staticRecipients) SubscribedEmails(context.Context) ([]string, error) {
	return s.emails, s.err
}

type mapLoader map[string]*booking.Booking

func (m mapLoader) Get(_ context.Context, id string) (*booking.Booking, error) {
	b, ok := m[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return b, nil
}

type countingNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (c *countingNotifier) BookingCreated(_ context.Context, b *booking.Booking) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, b.ID)
	return nil
}

var errBoom = errors.New("boom")

func sampleBooking() *booking.Booking {
	comment := "Gate code 42\n<ring twice> & wait"
	return &booking.Booking{
		ID:              "0b9c1f6e-7a53-4f0e-9d61-4c8b0f1a2b3c",
		ReferenceNumber: "BK-000042",
		Status:          booking.StatusPending,
		FullName:        "Mona Adel Hassan",
		Email:           "mona@example.com",
		EventDate:       "2025-03-11",
		ReadyTime:       "17:30",
		ServingTime:     "19:05",
		Address:         "12 Nile St",
		Location:        "Villa 4",
		Comment:         &comment,
		Area:            booking.Lookup{EN: "Zamalek", AR: "الزمالك"},
		EventType:       booking.Lookup{EN: "Wedding", AR: "زفاف"},
	}
}
