package catalog

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingdesk/internal/api"
	"bookingdesk/internal/observability"
)

// Item is a lookup row rendered for form dropdowns.
type Item struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	NameAR string `json:"name_ar,omitempty"`
}

type Store interface {
	Areas(ctx context.Context) ([]Item, error)
	EventTypes(ctx context.Context) ([]Item, error)
	Packages(ctx context.Context) ([]Item, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Areas(ctx context.Context) ([]Item, error) {
	return r.list(ctx, `SELECT id, area_en, area_ar FROM areas ORDER BY area_en`)
}

func (r *Repository) EventTypes(ctx context.Context) ([]Item, error) {
	return r.list(ctx, `SELECT id, event_en, event_ar FROM event_types ORDER BY event_en`)
}

func (r *Repository) Packages(ctx context.Context) ([]Item, error) {
	return r.list(ctx, `SELECT id, name, '' FROM packages ORDER BY id`)
}

func (r *Repository) list(ctx context.Context, q string) ([]Item, error) {
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "query catalog")
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.NameAR); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type Handlers struct {
	Store  Store
	Logger observability.Logger
}

func (h Handlers) Areas(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "areas", h.Store.Areas)
}

func (h Handlers) EventTypes(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "eventTypes", h.Store.EventTypes)
}

func (h Handlers) Packages(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "packages", h.Store.Packages)
}

func (h Handlers) write(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) ([]Item, error)) {
	items, err := load(r.Context())
	if err != nil {
		api.WriteErr(w, r, err, h.Logger)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{key: items})
}
