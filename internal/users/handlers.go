package users

import (
	"net/http"

	"bookingdesk/internal/api"
	"bookingdesk/internal/apperr"
	"bookingdesk/internal/observability"
)

type Handlers struct {
	Store  Store
	Hash   func(password string) (string, error)
	Audit  Auditor
	Logger observability.Logger
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.List(r.Context())
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"users": items})
}

type createRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	email := NormalizeEmail(req.Email)

	fields := map[string]string{}
	if !ValidEmail(email) {
		fields["email"] = "a valid email is required"
	}
	if len(req.Password) < MinPasswordLength {
		fields["password"] = "Password must be at least 8 characters"
	}
	if len(fields) > 0 {
		api.WriteErr(w, r, apperr.ValidationError{Message: "invalid user", Fields: fields}, h.Logger)
		return
	}

	hash, err := h.Hash(req.Password)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	u, err := h.Store.Create(r.Context(), email, hash)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	h.audit(r, "USER_CREATED", map[string]any{"user_id": u.ID, "email": u.Email})
	api.WriteJSON(w, http.StatusCreated, map[string]any{"user": u})
}

type preferenceRequest struct {
	UserID    string `json:"userId"`
	SendEmail *bool  `json:"sendEmail"`
}

func (h Handlers) EmailPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if req.UserID == "" || req.SendEmail == nil {
		api.WriteErr(w, r, apperr.ValidationError{Message: "userId and sendEmail are required"}, h.Logger)
		return
	}
	u, err := h.Store.SetSendEmail(r.Context(), req.UserID, *req.SendEmail)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	h.audit(r, "USER_EMAIL_PREFERENCE", map[string]any{"user_id": u.ID, "send_email": u.SendEmail})
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

func (h Handlers) audit(r *http.Request, action string, metadata any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), action, api.UserIDFromContext(r.Context()), metadata); err != nil {
		observability.LoggerFrom(r.Context(), h.Logger).WithError(err).WithField("action", action).Warn("audit write failed")
	}
}
