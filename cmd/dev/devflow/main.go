package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"bookingdesk/pkg/config"
)

// devflow drives a running API through login, booking creation, confirmation and the timeline.
func main() {
	var (
		baseURL  = flag.String("base-url", "", "api base url (defaults to http://localhost<HTTP_ADDR>)")
		email    = flag.String("email", "admin@example.com", "staff email")
		password = flag.String("password", "", "staff password")
		pkg      = flag.Int("package-id", 2, "package id (2 = live setup in the seed data)")
		areaID   = flag.Int("area-id", 1, "area id")
		eventID  = flag.Int("event-type-id", 1, "event type id")
	)
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "missing -password")
		os.Exit(2)
	}

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = defaultBaseURL(cfg.HTTPAddr)
	}

	jar, _ := cookiejar.New(nil)
	c := client{http: &http.Client{Jar: jar, Timeout: 30 * time.Second}, base: strings.TrimRight(*baseURL, "/")}

	c.must("login", http.MethodPost, "/v1/auth/login", map[string]any{"email": *email, "password": *password}, nil)

	var quote map[string]any
	c.must("quote", http.MethodPost, "/v1/pricing/quote", map[string]any{
		"packageId": *pkg, "guests": 120, "classicPizzas": 60, "signaturePizzas": 60,
	}, &quote)
	fmt.Printf("quote subtotal=%v\n", quote["subtotal"])

	filming := false
	var created struct {
		Booking struct {
			ID              string `json:"id"`
			ReferenceNumber string `json:"reference_number"`
			Status          string `json:"status"`
		} `json:"booking"`
	}
	c.must("create", http.MethodPost, "/v1/bookings", map[string]any{
		"packageId":       *pkg,
		"guests":          120,
		"classicPizzas":   60,
		"signaturePizzas": 60,
		"fullName":        "Dev Flow",
		"phone":           "+20 100 000 0000",
		"email":           "devflow@example.com",
		"eventDate":       time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		"readyTime":       "18:00",
		"servingTime":     "19:30",
		"address":         "1 Test St",
		"location":        "Garden",
		"areaId":          *areaID,
		"eventTypeId":     *eventID,
		"allowFilming":    &filming,
		"comment":         "created by devflow",
	}, &created)
	id := created.Booking.ID
	fmt.Printf("created booking %s (%s) status=%s\n", id, created.Booking.ReferenceNumber, created.Booking.Status)

	var confirmed map[string]any
	c.must("confirm", http.MethodPost, "/v1/bookings/"+id+"/confirm", nil, &confirmed)
	fmt.Printf("confirm email=%v\n", confirmed["email"])

	var timeline struct {
		Events []struct {
			EventType string `json:"event_type"`
			Summary   string `json:"summary"`
		} `json:"events"`
	}
	c.must("events", http.MethodGet, "/v1/bookings/"+id+"/events", nil, &timeline)
	for _, e := range timeline.Events {
		fmt.Printf("  %s: %s\n", e.EventType, e.Summary)
	}

	fmt.Println("devflow completed")
}

type client struct {
	http *http.Client
	base string
}

func (c client) must(step, method, path string, body, out any) {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		fail(step, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		fail(step, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fail(step, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(raw)))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fail(step, err)
		}
	}
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "%s failed: %v\n", step, err)
	os.Exit(1)
}

func defaultBaseURL(httpAddr string) string {
	if httpAddr == "" {
		return "http://localhost:8081"
	}
	if strings.HasPrefix(httpAddr, ":") {
		return "http://localhost" + httpAddr
	}
	return "http://" + httpAddr
}
