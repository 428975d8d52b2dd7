package booking

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"bookingdesk/internal/events"
	"bookingdesk/internal/pricing"
	"bookingdesk/pkg/config"
	"bookingdesk/pkg/db"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in -short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "bookingdesk",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	migrations, err := filepath.Abs("../../migrations")
	require.NoError(t, err)

	cfg := config.Config{DatabaseURL: "postgres://postgres:postgres@" + endpoint + "/bookingdesk?sslmode=disable"}
	require.NoError(t, db.Migrate("file://"+migrations, cfg))

	pool, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `INSERT INTO areas (id, area_en, area_ar) VALUES (3, 'Zamalek', 'الزمالك')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO event_types (id, event_en, event_ar) VALUES (2, 'Wedding', 'زفاف')`)
	require.NoError(t, err)
	return pool
}

func liveSetupRecord() Record {
	d := validDetails()
	d.Comment = "gate code 42"
	sel := pricing.Selection{Kind: pricing.KindLiveSetup, ClassicPizzas: 50, SignaturePizzas: 70}
	return Record{Details: d, PackageID: 2, Selection: sel, Subtotal: pricing.Subtotal(sel)}
}

func TestRepository_Lifecycle(t *testing.T) {
	pool := startPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	kind, err := repo.PackageKind(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, pricing.KindLiveSetup, kind)
	_, err = repo.PackageKind(ctx, 99)
	require.True(t, errors.Is(err, ErrPackageNotFound))

	b, err := repo.Create(ctx, liveSetupRecord(), "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusPending, b.Status)
	require.Nil(t, b.IsConfirmed)
	require.True(t, strings.HasPrefix(b.ReferenceNumber, "BK-"))
	require.Equal(t, "2025-03-11", b.EventDate)
	require.Equal(t, "17:30", b.ReadyTime)
	require.Equal(t, "Zamalek", b.Area.EN)
	require.Equal(t, "Wedding", b.EventType.EN)
	require.Equal(t, "live setup", b.Package.Name)
	require.Equal(t, 0, b.Package.NumGuests)
	require.Equal(t, 50, b.Package.NumClassicPizzas)
	require.True(t, decimal.NewFromInt(39500).Equal(b.Package.SubTotal))
	require.NotNil(t, b.Comment)

	confirmed, err := repo.Transition(ctx, b.ID, StatusConfirmed, "user-1")
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = repo.Transition(ctx, b.ID, StatusRejected, "user-1")
	require.True(t, errors.Is(err, ErrInvalidTransition))

	timeline, err := events.NewRepository(pool).ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	require.Equal(t, events.TypeCreated, timeline[0].EventType)
	require.Equal(t, events.TypeStatusChanged, timeline[1].EventType)

	var audits int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs WHERE booking_id = $1`, b.ID).Scan(&audits))
	require.Equal(t, 2, audits)
}

func TestRepository_ListHidesRejected(t *testing.T) {
	pool := startPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	later := liveSetupRecord()
	later.Details.EventDate = "2025-04-01"
	first, err := repo.Create(ctx, later, "user-1")
	require.NoError(t, err)
	second, err := repo.Create(ctx, liveSetupRecord(), "user-1")
	require.NoError(t, err)
	rejected, err := repo.Create(ctx, liveSetupRecord(), "user-1")
	require.NoError(t, err)
	_, err = repo.Transition(ctx, rejected.ID, StatusRejected, "user-1")
	require.NoError(t, err)

	items, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, second.ID, items[0].ID)
	require.Equal(t, first.ID, items[1].ID)

	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = repo.Update(ctx, rejected.ID, liveSetupRecord(), "user-1")
	require.True(t, errors.Is(err, ErrNotEditable))
}

func TestRepository_UpdateRepricesPackage(t *testing.T) {
	pool := startPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	b, err := repo.Create(ctx, liveSetupRecord(), "user-1")
	require.NoError(t, err)

	rec := liveSetupRecord()
	rec.PackageID = 1
	rec.Selection = pricing.Selection{Kind: pricing.KindFullExperience, Guests: 150}
	rec.Subtotal = pricing.Subtotal(rec.Selection)
	rec.Details.Comment = ""

	updated, err := repo.Update(ctx, b.ID, rec, "user-2")
	require.NoError(t, err)
	require.Equal(t, StatusPending, updated.Status)
	require.Equal(t, "full experience", updated.Package.Name)
	require.Equal(t, 150, updated.Package.NumGuests)
	require.Equal(t, 0, updated.Package.NumClassicPizzas)
	require.True(t, decimal.NewFromInt(150000).Equal(updated.Package.SubTotal))
	require.Nil(t, updated.Comment)
}

func TestRepository_UnknownReferences(t *testing.T) {
	pool := startPostgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	rec := liveSetupRecord()
	rec.Details.AreaID = 404
	_, err := repo.Create(ctx, rec, "user-1")
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, []string{"areaId"}, verrs.FieldNames())

	_, err = repo.Get(ctx, "not-a-uuid")
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = repo.Get(ctx, "6f1c1a52-8a9e-4a53-9a57-3f5b6f0b2b11")
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = repo.Transition(ctx, "6f1c1a52-8a9e-4a53-9a57-3f5b6f0b2b11", StatusConfirmed, "user-1")
	require.True(t, errors.Is(err, ErrNotFound))
}
