package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookingdesk/internal/api"
	"bookingdesk/internal/audit"
	"bookingdesk/internal/auth"
	"bookingdesk/internal/booking"
	"bookingdesk/internal/catalog"
	"bookingdesk/internal/events"
	"bookingdesk/internal/files"
	"bookingdesk/internal/notify"
	"bookingdesk/internal/observability"
	"bookingdesk/internal/ratelimit"
	"bookingdesk/internal/users"
	"bookingdesk/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Logger observability.Logger

	// Gate defaults to an in-memory gate.
	Gate    *ratelimit.Gate
	Mailer  notify.Mailer
	Storage files.ObjectStore

	// Publisher, when set, replaces inline creation emails with a queued hand-off.
	Publisher booking.CreationNotifier

	// Bookings defaults to NewBookingService(deps).
	Bookings *booking.Service
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = observability.NewNopLogger()
	}
	if d.Gate == nil {
		d.Gate = ratelimit.NewGate(ratelimit.NewMemoryStore(0), ratelimit.WithLogger(d.Logger))
	}
	return d
}

func dispatcher(deps Dependencies) *notify.Dispatcher {
	return &notify.Dispatcher{
		Mailer:       deps.Mailer,
		Recipients:   users.NewRepository(deps.DB),
		DashboardURL: deps.Cfg.AppURL,
		Logger:       deps.Logger,
	}
}

// NewBookingService wires the lifecycle service to Postgres, email and the gate.
func NewBookingService(deps Dependencies) *booking.Service {
	deps = deps.withDefaults()
	d := dispatcher(deps)

	var notifier booking.CreationNotifier = d
	if deps.Publisher != nil {
		notifier = deps.Publisher
	}
	return &booking.Service{
		Store:    booking.NewRepository(deps.DB),
		Notifier: notifier,
		Sender:   d,
		Gate:     deps.Gate,
		Logger:   deps.Logger,
		Location: deps.Cfg.Location(),
	}
}

func NewRouter(deps Dependencies) http.Handler {
	deps = deps.withDefaults()
	if deps.Bookings == nil {
		deps.Bookings = NewBookingService(deps)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.Tracing)
	r.Use(observability.RequestLogger(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	usersRepo := users.NewRepository(deps.DB)
	auditRepo := audit.NewRepository(deps.DB)

	authHandlers := auth.Handlers{
		Accounts: usersRepo,
		Audit:    auditRepo,
		Secret:   deps.Cfg.Session.Secret,
		TTL:      deps.Cfg.Session.TTL,
		Secure:   deps.Cfg.IsProd(),
		Logger:   deps.Logger,
	}
	userHandlers := users.Handlers{
		Store:  usersRepo,
		Hash:   auth.HashPassword,
		Audit:  auditRepo,
		Logger: deps.Logger,
	}
	bookingHandlers := booking.Handlers{
		Service:  deps.Bookings,
		Timeline: events.NewRepository(deps.DB),
		Logger:   deps.Logger,
	}
	notifyHandlers := notify.Handlers{
		Bookings:   deps.Bookings,
		Dispatcher: dispatcher(deps),
		Logger:     deps.Logger,
	}
	catalogHandlers := catalog.Handlers{Store: catalog.NewRepository(deps.DB), Logger: deps.Logger}
	paymentHandlers := files.PaymentHandlers{
		Storage: deps.Storage,
		Bucket:  deps.Cfg.Storage.Bucket,
		Logger:  deps.Logger,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandlers.Login)
		r.Post("/auth/logout", authHandlers.Logout)

		// Called by the public booking site after a submission.
		r.Route("/email/booking-notification", func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.NotifyAllowedOrigins,
				AllowedMethods: []string{"POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAgeSeconds:  86400,
			}))
			r.Use(api.RequireOrigin(deps.Cfg.NotifyAllowedOrigins))
			r.Use(ratelimit.Middleware(deps.Gate, "booking-notification", notify.PublicWindow, notify.PublicMax, deps.Logger))
			r.Post("/", notifyHandlers.BookingNotification)
			r.Options("/", func(w http.ResponseWriter, r *http.Request) {})
		})

		r.Group(func(r chi.Router) {
			r.Use(api.SessionAuth(deps.Cfg.Session.Secret, time.Now))

			r.Get("/auth/me", authHandlers.Me)
			r.Post("/auth/change-password", authHandlers.ChangePassword)

			r.Get("/bookings", bookingHandlers.List)
			r.Post("/bookings", bookingHandlers.Create)
			r.Get("/bookings/{id}", bookingHandlers.Get)
			r.Put("/bookings/{id}", bookingHandlers.Update)
			r.Get("/bookings/{id}/events", bookingHandlers.Events)
			r.Post("/bookings/{id}/confirm", bookingHandlers.Confirm)
			r.Post("/bookings/{id}/deny", bookingHandlers.Deny)

			r.Post("/pricing/quote", bookingHandlers.Quote)
			r.Post("/email/send-confirmation", bookingHandlers.ResendConfirmation)

			r.Get("/users", userHandlers.List)
			r.Post("/users", userHandlers.Create)
			r.Post("/users/email-preference", userHandlers.EmailPreference)

			r.Get("/areas", catalogHandlers.Areas)
			r.Get("/event-types", catalogHandlers.EventTypes)
			r.Get("/packages", catalogHandlers.Packages)

			r.Post("/upload-payment", paymentHandlers.Upload)
		})
	})

	return r
}
