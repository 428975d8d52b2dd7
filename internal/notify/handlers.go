package notify

import (
	"net/http"
	"time"

	"bookingdesk/internal/api"
	"bookingdesk/internal/apperr"
	"bookingdesk/internal/observability"
	"bookingdesk/internal/ratelimit"
)

// Public notification limit, keyed by client IP.
const (
	PublicWindow = 15 * time.Minute
	PublicMax    = 5
)

type Handlers struct {
	Bookings   BookingLoader
	Dispatcher *Dispatcher
	Logger     observability.Logger
}

type notificationRequest struct {
	BookingID string `json:"bookingId"`
}

type notificationResponse struct {
	Success           bool `json:"success"`
	CustomerEmailSent bool `json:"customer_email_sent"`
	ManagerEmailsSent int  `json:"manager_emails_sent"`
	TotalManagers     int  `json:"total_managers"`
	RemainingRequests int  `json:"remaining_requests"`
}

// BookingNotification is the public form's follow-up call after a booking is stored.
// Origin and rate limit checks run as middleware in front of it.
func (h Handlers) BookingNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if req.BookingID == "" {
		api.WriteErr(w, r, apperr.ValidationError{Message: "bookingId is required", Fields: map[string]string{"bookingId": "required"}}, h.Logger)
		return
	}

	b, err := h.Bookings.Get(r.Context(), req.BookingID)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}

	s := h.Dispatcher.Notify(r.Context(), b)
	resp := notificationResponse{
		Success:           true,
		CustomerEmailSent: s.CustomerSent,
		ManagerEmailsSent: s.ManagerSent,
		TotalManagers:     s.TotalManagers,
	}
	if d, ok := ratelimit.DecisionFrom(r.Context()); ok {
		resp.RemainingRequests = d.Remaining
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
