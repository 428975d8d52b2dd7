package files

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/api"
	"bookingdesk/internal/apperr"
	"bookingdesk/internal/observability"
)

const (
	MaxUploadBytes = 10 << 20
	SignedURLTTL   = 365 * 24 * time.Hour
)

// ObjectStore is the file storage collaborator. storage.Client satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error
	SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error)
}

// PaymentHandlers stores down-payment screenshots attached to bookings.
type PaymentHandlers struct {
	Storage ObjectStore
	Bucket  string
	Now     func() time.Time
	Logger  observability.Logger
}

func (h PaymentHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h PaymentHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.WriteError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file must be 10 MiB or smaller")
			return
		}
		api.WriteErr(w, r, apperr.ValidationError{Message: "invalid multipart form"}, h.Logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		api.WriteErr(w, r, apperr.ValidationError{Message: "No file provided", Fields: map[string]string{"file": "required"}}, h.Logger)
		return
	}
	defer f.Close()
	if hdr.Size > MaxUploadBytes {
		api.WriteError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file must be 10 MiB or smaller")
		return
	}

	name := ObjectName(h.now(), hdr.Filename)
	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}

	if err := h.Storage.Upload(r.Context(), h.Bucket, name, contentType, f); err != nil {
		api.WriteErr(w, r, apperr.Dependency("storage", err), h.Logger)
		return
	}
	url, err := h.Storage.SignedURL(r.Context(), h.Bucket, name, SignedURLTTL)
	if err != nil {
		api.WriteErr(w, r, apperr.Dependency("storage", err), h.Logger)
		return
	}

	observability.LoggerFrom(r.Context(), h.Logger).
		WithField("file", name).
		WithField("size", hdr.Size).
		Info("payment proof uploaded")
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "fileName": name, "url": url})
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName is "<unix-ms>-<sanitized base name>". Characters outside [A-Za-z0-9._-] become "_".
func ObjectName(now time.Time, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "upload"
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + base
}
