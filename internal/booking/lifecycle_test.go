package booking

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"bookingdesk/internal/apperr"
	"bookingdesk/internal/ratelimit"
)

type harness struct {
	svc      *Service
	store    *memStore
	sender   *recordingSender
	notifier *recordingNotifier
}

func newHarness() *harness {
	h := &harness{
		store:    newMemStore(),
		sender:   &recordingSender{},
		notifier: &recordingNotifier{},
	}
	h.svc = &Service{
		Store:    h.store,
		Notifier: h.notifier,
		Sender:   h.sender,
		Gate:     ratelimit.NewGate(ratelimit.NewMemoryStore(0), ratelimit.WithClock(func() time.Time { return testNow })),
		Location: cairo,
		Now:      func() time.Time { return testNow },
	}
	return h
}

func liveSetupInput() SubmitInput {
	return SubmitInput{PackageID: 2, ClassicPizzas: 50, SignaturePizzas: 70, Details: validDetails()}
}

func (h *harness) submit(t *testing.T) *Booking {
	t.Helper()
	b, err := h.svc.Submit(context.Background(), liveSetupInput(), "user-1")
	require.NoError(t, err)
	h.svc.Wait()
	return b
}

func TestSubmit_CreatesPendingPricedBooking(t *testing.T) {
	h := newHarness()
	b := h.submit(t)

	require.Equal(t, StatusPending, b.Status)
	require.Nil(t, b.IsConfirmed)
	require.NotEmpty(t, b.ReferenceNumber)
	require.Equal(t, "39500", b.Package.SubTotal.String())
	require.Equal(t, []string{b.ID}, h.notifier.Created())
	require.Empty(t, h.sender.Calls())
}

func TestSubmit_DoesNotWaitForNotification(t *testing.T) {
	h := newHarness()
	h.notifier.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		_, err := h.svc.Submit(context.Background(), liveSetupInput(), "user-1")
		require.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submit blocked on the creation notification")
	}
	require.Empty(t, h.notifier.Created())

	close(h.notifier.block)
	h.svc.Wait()
	require.Len(t, h.notifier.Created(), 1)
}

func TestSubmit_InvalidDraftPersistsNothing(t *testing.T) {
	h := newHarness()
	in := liveSetupInput()
	in.ClassicPizzas, in.SignaturePizzas = 10, 9

	_, err := h.svc.Submit(context.Background(), in, "user-1")
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, []string{"pizzas"}, verrs.FieldNames())

	items, _ := h.store.List(context.Background(), true)
	require.Empty(t, items)
	h.svc.Wait()
	require.Empty(t, h.notifier.Created())
}

func TestSubmit_UnknownPackage(t *testing.T) {
	h := newHarness()
	in := liveSetupInput()
	in.PackageID = 99

	_, err := h.svc.Submit(context.Background(), in, "user-1")
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, []string{"package"}, verrs.FieldNames())
}

func TestConfirm_SetsFlagAndEmailsOnce(t *testing.T) {
	h := newHarness()
	b := h.submit(t)

	res, err := h.svc.Confirm(context.Background(), b.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, res.Booking.Status)
	require.True(t, *res.Booking.IsConfirmed)
	require.True(t, res.Email.Attempted)
	require.True(t, res.Email.Sent)
	require.Equal(t, "msg-"+b.ID, res.Email.MessageID)
	require.Equal(t, []string{b.ID}, h.sender.Calls())
}

func TestConfirm_EmailFailureStillCommits(t *testing.T) {
	h := newHarness()
	h.sender.err = errors.New("postmark down")
	b := h.submit(t)

	res, err := h.svc.Confirm(context.Background(), b.ID, "user-1")
	require.NoError(t, err)
	require.True(t, res.Email.Attempted)
	require.False(t, res.Email.Sent)
	require.Contains(t, res.Email.Error, "postmark down")
	require.Equal(t, StatusConfirmed, h.store.status(b.ID))
	require.Len(t, h.sender.Calls(), 1)
}

func TestConfirm_ThrottledEmailStillCommits(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	for i := 0; i < ConfirmEmailMax; i++ {
		_, err := h.svc.Gate.Check(ctx, "confirm-email:user-1", ConfirmEmailWindow, ConfirmEmailMax)
		require.NoError(t, err)
	}
	b := h.submit(t)

	res, err := h.svc.Confirm(ctx, b.ID, "user-1")
	require.NoError(t, err)
	require.True(t, res.Email.Throttled)
	require.False(t, res.Email.Attempted)
	require.Empty(t, h.sender.Calls())
	require.Equal(t, StatusConfirmed, h.store.status(b.ID))
}

func TestDeny_SetsFlagFalseWithoutEmail(t *testing.T) {
	h := newHarness()
	b := h.submit(t)

	got, err := h.svc.Deny(context.Background(), b.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, got.Status)
	require.False(t, *got.IsConfirmed)
	require.Empty(t, h.sender.Calls())
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	confirmed := h.submit(t)
	_, err := h.svc.Confirm(ctx, confirmed.ID, "user-1")
	require.NoError(t, err)

	_, err = h.svc.Deny(ctx, confirmed.ID, "user-1")
	require.True(t, errors.Is(err, ErrInvalidTransition))
	_, err = h.svc.Confirm(ctx, confirmed.ID, "user-1")
	require.True(t, errors.Is(err, ErrInvalidTransition))
	require.Len(t, h.sender.Calls(), 1, "a rejected transition sends nothing")

	rejected := h.submit(t)
	_, err = h.svc.Deny(ctx, rejected.ID, "user-1")
	require.NoError(t, err)
	_, err = h.svc.Confirm(ctx, rejected.ID, "user-1")

	var conflict apperr.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, "INVALID_STATE_TRANSITION", conflict.Code)
}

func TestConfirm_NotFound(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Confirm(context.Background(), "missing", "user-1")
	require.True(t, errors.Is(err, ErrNotFound))
	require.Empty(t, h.sender.Calls())
}

func TestUpdate_RejectedBookingIsNotEditable(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	b := h.submit(t)

	in := liveSetupInput()
	in.ClassicPizzas = 150
	got, err := h.svc.Update(ctx, b.ID, in, "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	require.Equal(t, "66500", got.Package.SubTotal.String())

	_, err = h.svc.Deny(ctx, b.ID, "user-1")
	require.NoError(t, err)
	_, err = h.svc.Update(ctx, b.ID, in, "user-1")
	require.True(t, errors.Is(err, ErrNotEditable))
}

func TestResendConfirmation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	b := h.submit(t)

	_, err := h.svc.ResendConfirmation(ctx, b.ID, "user-2")
	var ve apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "BOOKING_NOT_CONFIRMED", ve.Code)

	_, err = h.svc.Confirm(ctx, b.ID, "user-1")
	require.NoError(t, err)

	msgID, err := h.svc.ResendConfirmation(ctx, b.ID, "user-2")
	require.NoError(t, err)
	require.Equal(t, "msg-"+b.ID, msgID)

	h.sender.err = errors.New("boom")
	_, err = h.svc.ResendConfirmation(ctx, b.ID, "user-2")
	var dep apperr.DependencyError
	require.True(t, errors.As(err, &dep))

	_, err = h.svc.ResendConfirmation(ctx, "missing", "user-2")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestResendConfirmation_QuotaTakenBeforeLookup(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	b := h.submit(t)
	_, err := h.svc.Confirm(ctx, b.ID, "user-1")
	require.NoError(t, err)

	for i := 0; i < ConfirmEmailMax; i++ {
		_, err := h.svc.ResendConfirmation(ctx, "missing", "user-3")
		require.True(t, errors.Is(err, ErrNotFound))
	}

	_, err = h.svc.ResendConfirmation(ctx, b.ID, "user-3")
	var rl apperr.RateLimitError
	require.True(t, errors.As(err, &rl))
	require.True(t, rl.RetryAfter > 0)
	require.Len(t, h.sender.Calls(), 1)

	msgID, err := h.svc.ResendConfirmation(ctx, b.ID, "user-4")
	require.NoError(t, err)
	require.Equal(t, "msg-"+b.ID, msgID)
}
