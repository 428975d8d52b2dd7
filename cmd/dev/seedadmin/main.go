package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"bookingdesk/internal/auth"
	"bookingdesk/internal/users"
	"bookingdesk/pkg/config"
	"bookingdesk/pkg/db"
)

// seedadmin creates a staff user and, optionally, a few areas and event types for local testing.
func main() {
	var (
		email    = flag.String("email", "admin@example.com", "staff email")
		password = flag.String("password", "", "staff password (min 8 chars)")
		notify   = flag.Bool("notify", true, "subscribe the user to new-booking emails")
		lookups  = flag.Bool("lookups", false, "also insert sample areas and event types")
	)
	flag.Parse()

	if len(*password) < users.MinPasswordLength {
		fmt.Fprintln(os.Stderr, "missing -password (min 8 chars)")
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}

	repo := users.NewRepository(pool)
	u, err := repo.Create(ctx, users.NormalizeEmail(*email), hash)
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		c, ferr := repo.FindByEmail(ctx, *email)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "lookup failed: %v\n", ferr)
			os.Exit(1)
		}
		if err := repo.UpdatePassword(ctx, c.ID, hash); err != nil {
			fmt.Fprintf(os.Stderr, "password reset failed: %v\n", err)
			os.Exit(1)
		}
		u = &c.User
		fmt.Printf("user %s exists, password reset\n", u.Email)
	case err != nil:
		fmt.Fprintf(os.Stderr, "create failed: %v\n", err)
		os.Exit(1)
	default:
		fmt.Printf("created user %s (%s)\n", u.Email, u.ID)
	}

	if _, err := repo.SetSendEmail(ctx, u.ID, *notify); err != nil {
		fmt.Fprintf(os.Stderr, "set send_email failed: %v\n", err)
		os.Exit(1)
	}

	if *lookups {
		stmts := []string{`
INSERT INTO areas (area_en, area_ar)
SELECT v.en, v.ar FROM (VALUES ('Zamalek', 'الزمالك'), ('New Cairo', 'القاهرة الجديدة'), ('Sheikh Zayed', 'الشيخ زايد')) AS v(en, ar)
WHERE NOT EXISTS (SELECT 1 FROM areas)
`, `
INSERT INTO event_types (event_en, event_ar)
SELECT v.en, v.ar FROM (VALUES ('Wedding', 'زفاف'), ('Birthday', 'عيد ميلاد'), ('Corporate', 'شركات')) AS v(en, ar)
WHERE NOT EXISTS (SELECT 1 FROM event_types)
`}
		for _, q := range stmts {
			if _, err := pool.Exec(ctx, q); err != nil {
				fmt.Fprintf(os.Stderr, "seed lookups failed: %v\n", err)
				os.Exit(1)
			}
		}
		fmt.Println("lookups seeded")
	}
}
