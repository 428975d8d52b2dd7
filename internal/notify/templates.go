package notify

import (
	"html"
	"strings"
	"time"

	"bookingdesk/internal/booking"
)

const (
	TemplateRequestReceived  = "request-received"
	TemplateManagerReceived  = "manager-booking-received"
	TemplateBookingConfirmed = "booking-confirmed"
)

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type Event struct {
	Title      string `json:"title"`
	DatePretty string `json:"date_pretty"`
	TimePretty string `json:"time_pretty"`
	Location   string `json:"location"`
}

type RequestReceivedModel struct {
	Customer Customer `json:"customer"`
}

type ManagerModel struct {
	Customer     Customer `json:"customer"`
	Event        Event    `json:"event"`
	NotesHTML    string   `json:"notes_html"`
	DashboardURL string   `json:"dashboard_url"`
}

type ConfirmedModel struct {
	Customer Customer `json:"customer"`
	Event    Event    `json:"event"`
}

func RequestReceived(b *booking.Booking) RequestReceivedModel {
	first, _ := splitName(b.FullName)
	return RequestReceivedModel{Customer: Customer{FirstName: first}}
}

func ManagerBookingReceived(b *booking.Booking, dashboardURL string) ManagerModel {
	first, last := splitName(b.FullName)
	return ManagerModel{
		Customer:     Customer{FirstName: first, LastName: last, Email: b.Email},
		Event:        eventOf(b),
		NotesHTML:    notesHTML(b.Comment),
		DashboardURL: dashboardURL,
	}
}

func BookingConfirmed(b *booking.Booking) ConfirmedModel {
	first, _ := splitName(b.FullName)
	return ConfirmedModel{Customer: Customer{FirstName: first}, Event: eventOf(b)}
}

// splitName returns the first word and the rest. A blank name yields itself as the first name.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return full, ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func eventOf(b *booking.Booking) Event {
	title := b.EventType.EN
	if title == "" {
		title = "Event"
	}
	area := b.Area.EN
	if area == "" {
		area = "Area"
	}
	place := b.Location
	if place == "" {
		place = b.Address
	}
	return Event{
		Title:      title,
		DatePretty: prettyDate(b.EventDate),
		TimePretty: prettyTime(b.ServingTime),
		Location:   area + " - " + place,
	}
}

// prettyDate renders a calendar date like "Tuesday, March 11, 2025". Unparseable input is returned as is.
func prettyDate(s string) string {
	d, err := time.Parse(booking.DateLayout, s)
	if err != nil {
		return s
	}
	return d.Format("Monday, January 2, 2006")
}

// prettyTime renders HH:MM (or HH:MM:SS) as 12-hour time, e.g. "7:00 PM".
func prettyTime(s string) string {
	if len(s) > 5 {
		s = s[:5]
	}
	t, err := time.Parse(booking.TimeLayout, s)
	if err != nil {
		return s
	}
	return t.Format("3:04 PM")
}

func notesHTML(comment *string) string {
	if comment == nil || strings.TrimSpace(*comment) == "" {
		return "No notes provided"
	}
	return strings.ReplaceAll(html.EscapeString(*comment), "\n", "<br>")
}
