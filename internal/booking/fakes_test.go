package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/pricing"
)

type memStore struct {
	mu       sync.Mutex
	seq      int
	packages map[int]pricing.PackageKind
	bookings map[string]*Booking
	actors   []string
}

func newMemStore() *memStore {
	return &memStore{
		packages: map[int]pricing.PackageKind{
			1: pricing.KindFullExperience,
			2: pricing.KindLiveSetup,
		},
		bookings: map[string]*Booking{},
	}
}

func (s *memStore) PackageKind(_ context.Context, id int) (pricing.PackageKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.packages[id]
	if !ok {
		return pricing.KindUnknown, ErrPackageNotFound
	}
	return k, nil
}

func (s *memStore) Create(_ context.Context, rec Record, actor string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	b := &Booking{
		ID:              fmt.Sprintf("b-%d", s.seq),
		ReferenceNumber: fmt.Sprintf("BK-%06d", s.seq),
		CreatedAt:       time.Now(),
	}
	apply(b, rec)
	setStatus(b, StatusPending)
	s.bookings[b.ID] = b
	s.actors = append(s.actors, actor)
	cp := *b
	return &cp, nil
}

func (s *memStore) Get(_ context.Context, id string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) List(_ context.Context, showRejected bool) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if !showRejected && b.Status == StatusRejected {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, id string, rec Record, actor string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status == StatusRejected {
		return nil, ErrNotEditable
	}
	apply(b, rec)
	cp := *b
	return &cp, nil
}

func (s *memStore) Transition(_ context.Context, id string, to Status, actor string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(b.Status, to) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", b.Status, to)
	}
	setStatus(b, to)
	cp := *b
	return &cp, nil
}

func (s *memStore) status(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Status
}

func apply(b *Booking, rec Record) {
	d := rec.Details
	b.FullName, b.Email, b.PhoneNumber = d.FullName, d.Email, d.Phone
	b.EventDate, b.ReadyTime, b.ServingTime = d.EventDate, d.ReadyTime, d.ServingTime
	b.Address, b.Location = d.Address, d.Location
	b.AreaID, b.EventTypeID = d.AreaID, d.EventTypeID
	b.IsFilming = d.AllowFilming != nil && *d.AllowFilming
	b.Package = Package{
		PackageID:          rec.PackageID,
		Name:               string(rec.Selection.Kind),
		NumGuests:          rec.Selection.Guests,
		NumClassicPizzas:   rec.Selection.ClassicPizzas,
		NumSignaturePizzas: rec.Selection.SignaturePizzas,
		SubTotal:           rec.Subtotal,
	}
}

func setStatus(b *Booking, s Status) {
	b.Status = s
	b.IsConfirmed = s.Flag()
}

// recordingSender records every confirmation attempt and can be told to fail.
type recordingSender struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingSender) SendConfirmation(_ context.Context, b *Booking) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, b.ID)
	if r.err != nil {
		return "", r.err
	}
	return "msg-" + b.ID, nil
}

func (r *recordingSender) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	block   chan struct{}
}

func (r *recordingNotifier) BookingCreated(_ context.Context, b *Booking) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, b.ID)
	return nil
}

func (r *recordingNotifier) Created() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.created...)
}
