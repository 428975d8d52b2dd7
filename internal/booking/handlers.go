package booking

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookingdesk/internal/api"
	"bookingdesk/internal/apperr"
	"bookingdesk/internal/events"
	"bookingdesk/internal/observability"
)

type EventLister interface {
	ListByBooking(ctx context.Context, bookingID string) ([]events.Event, error)
}

type Handlers struct {
	Service  *Service
	Timeline EventLister
	Logger   observability.Logger
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	showRejected := false
	if v := r.URL.Query().Get("showRejected"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "showRejected must be true or false")
			return
		}
		showRejected = b
	}

	var status Status
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "status must be pending, confirmed or rejected")
			return
		}
		status = st
		showRejected = showRejected || st == StatusRejected
	}

	items, err := h.Service.List(r.Context(), showRejected)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if status != "" {
		items = filterStatus(items, status)
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"bookings": items})
}

func filterStatus(items []Booking, status Status) []Booking {
	out := make([]Booking, 0, len(items))
	for _, b := range items {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	b, err := h.Service.Submit(r.Context(), in, api.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"booking": b})
}

func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var in SubmitInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	b, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), in, api.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Confirm(r.Context(), chi.URLParam(r, "id"), api.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

func (h Handlers) Deny(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Deny(r.Context(), chi.URLParam(r, "id"), api.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Service.Get(r.Context(), id); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	items, err := h.Timeline.ListByBooking(r.Context(), id)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"events": items})
}

func (h Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	var in QuoteInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	q, err := h.Service.Quote(r.Context(), in)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, q)
}

type resendRequest struct {
	BookingID string `json:"bookingId"`
}

func (h Handlers) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if req.BookingID == "" {
		api.WriteErr(w, r, apperr.ValidationError{Message: "bookingId is required", Fields: map[string]string{"bookingId": "required"}}, h.Logger)
		return
	}
	msgID, err := h.Service.ResendConfirmation(r.Context(), req.BookingID, api.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "messageId": msgID})
}
