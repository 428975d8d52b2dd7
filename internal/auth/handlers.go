package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/api"
	"bookingdesk/internal/apperr"
	"bookingdesk/internal/observability"
	"bookingdesk/internal/users"
	"bookingdesk/pkg/session"
)

var errInvalidCredentials = apperr.AuthError{Message: "invalid credentials"}

type Accounts interface {
	FindByEmail(ctx context.Context, email string) (*users.Credentials, error)
	FindByID(ctx context.Context, id string) (*users.Credentials, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type Handlers struct {
	Accounts Accounts
	Audit    users.Auditor
	Secret   string
	TTL      time.Duration
	Secure   bool
	Now      func() time.Time
	Logger   observability.Logger
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if req.Email == "" || req.Password == "" {
		api.WriteErr(w, r, apperr.ValidationError{Message: "Email and password required"}, h.Logger)
		return
	}

	c, err := h.Accounts.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			api.WriteErr(w, r, errInvalidCredentials, h.Logger)
			return
		}
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if !CheckPassword(c.PasswordHash, req.Password) {
		observability.LoggerFrom(r.Context(), h.Logger).WithField("user_id", c.ID).Warn("login rejected")
		api.WriteErr(w, r, errInvalidCredentials, h.Logger)
		return
	}

	token, err := session.Issue(c.ID, h.Secret, h.now(), h.TTL)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.SetSessionCookie(w, token, h.TTL, h.Secure)
	h.audit(r, "LOGIN", c.ID)
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "user": userView{ID: c.ID, Email: c.Email}})
}

func (h Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	api.ClearSessionCookie(w, h.Secure)
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h Handlers) Me(w http.ResponseWriter, r *http.Request) {
	c, err := h.Accounts.FindByID(r.Context(), api.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			api.WriteErr(w, r, apperr.AuthError{Message: "user no longer exists"}, h.Logger)
			return
		}
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"user": userView{ID: c.ID, Email: c.Email}})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		api.WriteErr(w, r, apperr.ValidationError{Message: "Current and new password are required"}, h.Logger)
		return
	}
	if len(req.NewPassword) < users.MinPasswordLength {
		api.WriteErr(w, r, apperr.ValidationError{
			Message: "Password must be at least 8 characters",
			Fields:  map[string]string{"newPassword": "Password must be at least 8 characters"},
		}, h.Logger)
		return
	}

	userID := api.UserIDFromContext(r.Context())
	c, err := h.Accounts.FindByID(r.Context(), userID)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if !CheckPassword(c.PasswordHash, req.CurrentPassword) {
		api.WriteErr(w, r, apperr.AuthError{Message: "Current password is incorrect"}, h.Logger)
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	if err := h.Accounts.UpdatePassword(r.Context(), userID, hash); err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	h.audit(r, "PASSWORD_CHANGED", userID)
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password changed successfully"})
}

func (h Handlers) audit(r *http.Request, action, actor string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), action, actor, nil); err != nil {
		observability.LoggerFrom(r.Context(), h.Logger).WithError(err).WithField("action", action).Warn("audit write failed")
	}
}
